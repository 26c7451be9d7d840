// Package ix is the ingestion boundary. Sources turn whatever a remote
// system returns into Fragments; the Pipeline coerces fragments through the
// rule table and assembles one Entity per requested title.
package ix

import (
	"context"
	"time"

	"github.com/teranos/facts/value"
)

// Fragment is one raw field value as a source reported it.
type Fragment struct {
	Entity string
	Field  string
	Raw    value.Raw
	// Source overrides the reporting source's name when set.
	Source string
	// Time is when the value was true. Zero means "as of the fetch".
	Time time.Time
}

// Source fetches the fragments one remote system holds for an entity.
type Source interface {
	Name() string
	Fetch(ctx context.Context, entity string) ([]Fragment, error)
}

// SourceFunc adapts a fetch function to Source.
type SourceFunc struct {
	SourceName string
	FetchFunc  func(ctx context.Context, entity string) ([]Fragment, error)
}

func (s SourceFunc) Name() string { return s.SourceName }

func (s SourceFunc) Fetch(ctx context.Context, entity string) ([]Fragment, error) {
	return s.FetchFunc(ctx, entity)
}
