// Package httpclient provides the outbound HTTP client used by connectors.
// It refuses schemes other than http(s), URLs with embedded credentials,
// and (unless allowed) any host resolving to a loopback, private or
// otherwise non-public address, including after redirects.
package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/teranos/facts/errors"
)

// maxBody caps how much of a response GetJSON will read.
const maxBody = 32 << 20

// Client is an http.Client that validates every destination.
type Client struct {
	*http.Client

	schemes      []string
	blockPrivate bool
	maxRedirects int
	userAgent    string
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithMaxRedirects overrides the default of 10.
func WithMaxRedirects(n int) Option {
	return func(c *Client) { c.maxRedirects = n }
}

// AllowPrivate disables address filtering. Only for tests against
// httptest servers on loopback.
func AllowPrivate() Option {
	return func(c *Client) { c.blockPrivate = false }
}

// New builds a client with the given overall request timeout.
func New(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		Client:       &http.Client{Timeout: timeout},
		schemes:      []string{"http", "https"},
		blockPrivate: true,
		maxRedirects: 10,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= c.maxRedirects {
			return errors.Newf("stopped after %d redirects", c.maxRedirects)
		}
		if err := c.check(req.URL); err != nil {
			return errors.Wrap(err, "redirect blocked")
		}
		return nil
	}

	if c.blockPrivate {
		dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
		c.Transport = &http.Transport{
			// Resolved addresses are checked at dial time so that DNS
			// answers cannot smuggle in an internal address.
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, errors.Wrap(err, "invalid address")
				}
				ips, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
				if err != nil {
					return nil, errors.Wrapf(err, "failed to resolve host %q", host)
				}
				for _, ip := range ips {
					if !IsPublic(ip) {
						return nil, errors.Newf("non-public address blocked: %s", ip)
					}
				}
				if len(ips) == 0 {
					return nil, errors.Newf("no addresses for host %q", host)
				}
				return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].String(), port))
			},
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
	}
	return c
}

// Check parses raw and validates it as a destination.
func (c *Client) Check(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "invalid URL")
	}
	if err := c.check(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (c *Client) check(u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	allowed := false
	for _, s := range c.schemes {
		if s == scheme {
			allowed = true
			break
		}
	}
	if !allowed {
		return errors.Newf("scheme %q not allowed (allowed: %v)", scheme, c.schemes)
	}
	if u.User != nil {
		return errors.New("URL carries user info")
	}

	host := u.Hostname()
	if host == "" {
		return errors.New("URL missing hostname")
	}
	if !c.blockPrivate {
		return nil
	}
	if isLocalhost(host) {
		return errors.New("localhost access blocked")
	}
	if ip, err := netip.ParseAddr(host); err == nil && !IsPublic(ip) {
		return errors.Newf("non-public address blocked: %s", host)
	}
	return nil
}

// Do validates the request URL before sending it.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := c.check(req.URL); err != nil {
		return nil, errors.Wrap(err, "request blocked")
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.Client.Do(req)
}

// GetJSON fetches raw and decodes the JSON body into v. A 404 is reported
// as a not-found error; any other non-2xx status is an error carrying the
// start of the body.
func (c *Client) GetJSON(ctx context.Context, raw string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", redact(req.URL))
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxBody)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.NewNotFoundError("GET %s: %s", redact(req.URL), resp.Status)
	case resp.StatusCode == http.StatusTooManyRequests:
		return errors.WithHint(
			errors.Newf("GET %s: %s", redact(req.URL), resp.Status),
			"lower ingest.rate_limit_per_sec")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(body, 512))
		return errors.WithDetail(
			errors.Newf("GET %s: %s", redact(req.URL), resp.Status),
			strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(body).Decode(v); err != nil {
		return errors.Wrapf(err, "failed to decode response from %s", redact(req.URL))
	}
	return nil
}

// redact drops the query, which may carry an API key.
func redact(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	return c.String()
}

var reserved = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("fec0::/10"),
	netip.MustParsePrefix("2001:db8::/32"),
}

// IsPublic reports whether ip is a globally routable unicast address.
func IsPublic(ip netip.Addr) bool {
	ip = ip.Unmap()
	if !ip.IsValid() || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() ||
		ip.IsInterfaceLocalMulticast() {
		return false
	}
	for _, p := range reserved {
		if p.Contains(ip) {
			return false
		}
	}
	return true
}

func isLocalhost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	return host == "localhost" ||
		host == "localhost.localdomain" ||
		strings.HasSuffix(host, ".localhost")
}
