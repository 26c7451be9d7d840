// Package value defines the raw inputs handed to the coercion engine and the
// Link cross-reference type it can produce.
package value

import (
	"context"
	"strings"

	"github.com/teranos/facts/errors"
)

// Link points at another entity in some source's namespace without
// resolving it. Equality ignores the display label.
type Link struct {
	Source string `json:"source"`
	ID     string `json:"id"`
	Label  string `json:"label,omitempty"`
}

// NewLink returns a link without a label.
func NewLink(source, id string) Link {
	return Link{Source: source, ID: id}
}

// Equal reports whether both links name the same foreign entity.
func (l Link) Equal(o Link) bool {
	return l.Source == o.Source && l.ID == o.ID
}

// IsZero reports whether the link has no target.
func (l Link) IsZero() bool {
	return l.ID == ""
}

// String renders "source://id".
func (l Link) String() string {
	return l.Source + "://" + l.ID
}

// Display returns the label, falling back to the id.
func (l Link) Display() string {
	if l.Label != "" {
		return l.Label
	}
	return l.ID
}

// ParseLink reads the "source://id" form produced by String.
func ParseLink(text string) (Link, error) {
	source, id, ok := strings.Cut(strings.TrimSpace(text), "://")
	if !ok || source == "" || id == "" {
		return Link{}, errors.Newf("invalid link %q: want source://id", text)
	}
	return Link{Source: source, ID: id}, nil
}

// Resolver turns a link into whatever the entity layer keeps for it.
type Resolver interface {
	Resolve(ctx context.Context, l Link) (any, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, l Link) (any, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, l Link) (any, error) {
	return f(ctx, l)
}
