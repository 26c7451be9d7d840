package ix

import (
	"github.com/teranos/facts/entity"
)

// Issue codes reported by the pipeline.
const (
	CodeSourceFailed   = "SOURCE_FAILED"
	CodeNoRule         = "NO_RULE"
	CodeNotCoercible   = "NOT_COERCIBLE"
	CodeEntityMismatch = "ENTITY_MISMATCH"
)

// Issue captures a warning or error with optional hints.
type Issue struct {
	Stage   string   `json:"stage"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Entity  string   `json:"entity,omitempty"`
	Field   string   `json:"field,omitempty"`
	Source  string   `json:"source,omitempty"`
	Hints   []string `json:"hints,omitempty"`
}

// Stats summarises one pipeline run.
type Stats struct {
	Fetched    int   `json:"fetched"`
	Coerced    int   `json:"coerced"`
	Skipped    int   `json:"skipped"`
	Failed     int   `json:"failed"`
	DurationMs int64 `json:"duration_ms"`
}

func (s *Stats) add(o Stats) {
	s.Fetched += o.Fetched
	s.Coerced += o.Coerced
	s.Skipped += o.Skipped
	s.Failed += o.Failed
}

// Result is the outcome of Pipeline.Run. Entities are in the order they
// were requested.
type Result struct {
	Entities []*entity.Entity `json:"-"`
	Stats    Stats            `json:"stats"`
	Warnings []Issue          `json:"warnings,omitempty"`
	Errors   []Issue          `json:"errors,omitempty"`
}

// Summary flattens the stats for progress emitters.
func (r *Result) Summary() map[string]interface{} {
	return map[string]interface{}{
		"entities":    len(r.Entities),
		"fetched":     r.Stats.Fetched,
		"coerced":     r.Stats.Coerced,
		"skipped":     r.Stats.Skipped,
		"failed":      r.Stats.Failed,
		"warnings":    len(r.Warnings),
		"errors":      len(r.Errors),
		"duration_ms": r.Stats.DurationMs,
	}
}
