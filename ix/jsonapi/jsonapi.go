// Package jsonapi is a Source for HTTP APIs that answer with JSON rows,
// such as weather or economics indicator services. One request is made per
// entity; each configured field is looked up in every returned row under a
// list of key aliases.
package jsonapi

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/teranos/facts/errors"
	"github.com/teranos/facts/internal/httpclient"
	"github.com/teranos/facts/ix"
	"github.com/teranos/facts/value"
)

const (
	defaultAPIKeyParam     = "api_key"
	defaultRateLimitPerSec = 2
	defaultBurst           = 2
	defaultTimeout         = 30 * time.Second
	defaultUserAgent       = "facts/0.1"
)

var defaultTimeKeys = []string{"date", "Date", "time", "Time", "period", "Period", "year", "Year"}

// rowContainers are tried in order when Records is empty and the document
// is an object.
var rowContainers = []string{"data", "Data", "results", "Results", "items", "Items", "value", "Value"}

// Config describes one JSON API.
type Config struct {
	Name    string
	BaseURL string
	// PathTemplate is appended to BaseURL; "{entity}" is replaced by the
	// path-escaped entity title.
	PathTemplate string
	Query        map[string]string
	APIKey       string
	APIKeyParam  string
	// Records is a dot path to the row array ("1" for the second element of
	// a top-level array). Empty means auto-detect.
	Records string
	// Fields maps fragment field names to key aliases; aliases may be dot
	// paths into nested objects.
	Fields   map[string][]string
	TimeKeys []string

	RateLimitPerSec float64
	Burst           int
	Timeout         time.Duration
	UserAgent       string
	AllowPrivate    bool
}

// Source fetches fragments from a JSON API.
type Source struct {
	config  Config
	client  *httpclient.Client
	limiter *rate.Limiter
	fields  []string
}

var _ ix.Source = (*Source)(nil)

// New validates cfg and fills in defaults.
func New(cfg Config) (*Source, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, errors.Wrap(errors.ErrMissingOption, "json source has no name")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.Wrapf(errors.ErrMissingOption, "json source %q has no base_url", cfg.Name)
	}
	if len(cfg.Fields) == 0 {
		return nil, errors.Wrapf(errors.ErrMissingOption, "json source %q maps no fields", cfg.Name)
	}
	if cfg.APIKeyParam == "" {
		cfg.APIKeyParam = defaultAPIKeyParam
	}
	if len(cfg.TimeKeys) == 0 {
		cfg.TimeKeys = defaultTimeKeys
	}
	if cfg.RateLimitPerSec <= 0 {
		cfg.RateLimitPerSec = defaultRateLimitPerSec
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	opts := []httpclient.Option{httpclient.WithUserAgent(cfg.UserAgent)}
	if cfg.AllowPrivate {
		opts = append(opts, httpclient.AllowPrivate())
	}
	client := httpclient.New(cfg.Timeout, opts...)
	if _, err := client.Check(cfg.BaseURL); err != nil {
		return nil, errors.Wrapf(err, "json source %q", cfg.Name)
	}

	fields := make([]string, 0, len(cfg.Fields))
	for f := range cfg.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	return &Source{
		config:  cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.Burst),
		fields:  fields,
	}, nil
}

func (s *Source) Name() string { return s.config.Name }

// Fetch requests the entity's document and turns every row into fragments.
// Rows without a recognisable time produce fragments stamped at fetch time.
func (s *Source) Fetch(ctx context.Context, entity string) ([]ix.Fragment, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter")
	}

	var doc any
	if err := s.client.GetJSON(ctx, s.buildURL(entity), &doc); err != nil {
		return nil, err
	}

	rows, err := extractRows(doc, s.config.Records)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: %s", s.config.Name, entity)
	}

	var out []ix.Fragment
	for _, row := range rows {
		t, _ := rowTime(row, s.config.TimeKeys)
		for _, field := range s.fields {
			v, ok := getValue(row, s.config.Fields[field]...)
			if !ok || v == nil {
				continue
			}
			out = append(out, ix.Fragment{
				Entity: entity,
				Field:  field,
				Raw:    value.FromAny(v),
				Source: s.config.Name,
				Time:   t,
			})
		}
	}
	return out, nil
}

func (s *Source) buildURL(entity string) string {
	path := strings.ReplaceAll(s.config.PathTemplate, "{entity}", url.PathEscape(entity))
	u := strings.TrimRight(s.config.BaseURL, "/")
	if path != "" {
		u += "/" + strings.TrimLeft(path, "/")
	}

	params := url.Values{}
	for k, v := range s.config.Query {
		params.Set(k, v)
	}
	if s.config.APIKey != "" {
		params.Set(s.config.APIKeyParam, s.config.APIKey)
	}
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + params.Encode()
	}
	return u
}

func extractRows(doc any, path string) ([]map[string]any, error) {
	if path != "" {
		v, ok := walk(doc, path)
		if !ok {
			return nil, errors.Newf("no records at %q", path)
		}
		doc = v
	}

	switch typed := doc.(type) {
	case []any:
		return toRowList(typed), nil
	case map[string]any:
		if path == "" {
			for _, key := range rowContainers {
				if inner, ok := typed[key].([]any); ok {
					return toRowList(inner), nil
				}
			}
		}
		return []map[string]any{typed}, nil
	case nil:
		return nil, nil
	default:
		return nil, errors.Newf("unexpected response type %T", doc)
	}
}

func toRowList(items []any) []map[string]any {
	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if row, ok := item.(map[string]any); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// walk follows a dot path; numeric segments index arrays.
func walk(v any, path string) (any, bool) {
	for _, seg := range strings.Split(path, ".") {
		switch typed := v.(type) {
		case map[string]any:
			next, ok := lookupKey(typed, seg)
			if !ok {
				return nil, false
			}
			v = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(typed) {
				return nil, false
			}
			v = typed[i]
		default:
			return nil, false
		}
	}
	return v, true
}

// getValue returns the first alias present in row. Exact keys win over
// case-insensitive matches.
func getValue(row map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := walk(row, key); ok {
			return v, true
		}
	}
	return nil, false
}

func lookupKey(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func rowTime(row map[string]any, keys []string) (time.Time, bool) {
	v, ok := getValue(row, keys...)
	if !ok {
		return time.Time{}, false
	}
	switch typed := v.(type) {
	case string:
		return parsePeriod(typed)
	case float64:
		if typed == float64(int(typed)) && typed >= 1 && typed <= 9999 {
			return time.Date(int(typed), time.January, 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// parsePeriod reads RFC 3339 timestamps, dates, and the period forms
// indicator APIs use: "2016", "2016-04", "201604", "2016Q2".
func parsePeriod(raw string) (time.Time, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01", "200601", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if year, q, ok := strings.Cut(strings.Replace(s, "-Q", "Q", 1), "Q"); ok {
		y, errY := strconv.Atoi(year)
		n, errQ := strconv.Atoi(q)
		if errY == nil && errQ == nil && len(year) == 4 && n >= 1 && n <= 4 {
			return time.Date(y, time.Month((n-1)*3+1), 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
