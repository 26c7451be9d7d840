package ix

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

// ProgressEmitter receives progress from a pipeline run. Runs call it from
// several goroutines; implementations must be safe for concurrent use.
//
// Implementations include:
// - CLIEmitter: pretty-printed terminal output using pterm
// - JSONEmitter: one JSON event per line for machine consumers
type ProgressEmitter interface {
	EmitStage(stage string, message string)
	EmitProgress(count int, metadata map[string]interface{})
	EmitComplete(summary map[string]interface{})
	EmitError(stage string, err error)
	EmitInfo(message string)
}

// ProgressEvent represents a structured JSON progress event
type ProgressEvent struct {
	Type      string                 `json:"type"` // "stage", "progress", "complete", "error", "info"
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// CLIEmitter outputs pretty-printed progress to terminal using pterm
type CLIEmitter struct {
	verbosity int
	mu        sync.Mutex
}

// NewCLIEmitter creates a CLI progress emitter for terminal output
func NewCLIEmitter(verbosity int) *CLIEmitter {
	return &CLIEmitter{verbosity: verbosity}
}

func (e *CLIEmitter) EmitStage(stage string, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pterm.Printf("🔄 %s: %s\n", pterm.LightCyan(stage), message)
}

// EmitProgress prints one line per finished entity.
func (e *CLIEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if name, ok := metadata["entity"].(string); ok {
		pterm.Printf("✅ %s: %s observations\n", name, pterm.Green(fmt.Sprintf("%d", count)))
		return
	}
	pterm.Printf("✅ Processed %s items\n", pterm.Green(fmt.Sprintf("%d", count)))
}

// EmitComplete prints the run summary; keys are listed only at verbosity >= 1.
func (e *CLIEmitter) EmitComplete(summary map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pterm.Success.Println("Ingestion complete!")
	if e.verbosity >= 1 {
		keys := make([]string, 0, len(summary))
		for k := range summary {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			pterm.Printf("  %s: %v\n", k, summary[k])
		}
	}
}

func (e *CLIEmitter) EmitError(stage string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pterm.Error.Printf("Error in %s: %v\n", stage, err)
}

func (e *CLIEmitter) EmitInfo(message string) {
	if e.verbosity >= 1 {
		e.mu.Lock()
		defer e.mu.Unlock()
		pterm.Info.Println(message)
	}
}

// JSONEmitter writes newline-delimited JSON events.
type JSONEmitter struct {
	mu      sync.Mutex
	encoder *json.Encoder
	now     func() time.Time
}

// NewJSONEmitter creates a JSON progress emitter writing to w.
func NewJSONEmitter(w io.Writer) *JSONEmitter {
	return &JSONEmitter{encoder: json.NewEncoder(w), now: time.Now}
}

func (e *JSONEmitter) emit(eventType string, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	// Encoding failures on a progress stream are not actionable.
	_ = e.encoder.Encode(ProgressEvent{
		Type:      eventType,
		Timestamp: e.now(),
		Data:      data,
	})
}

func (e *JSONEmitter) EmitStage(stage string, message string) {
	e.emit("stage", map[string]interface{}{"stage": stage, "message": message})
}

func (e *JSONEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	data := map[string]interface{}{"count": count}
	for k, v := range metadata {
		data[k] = v
	}
	e.emit("progress", data)
}

func (e *JSONEmitter) EmitComplete(summary map[string]interface{}) {
	e.emit("complete", summary)
}

func (e *JSONEmitter) EmitError(stage string, err error) {
	e.emit("error", map[string]interface{}{"stage": stage, "error": err.Error()})
}

func (e *JSONEmitter) EmitInfo(message string) {
	e.emit("info", map[string]interface{}{"message": message})
}

// NopEmitter discards all progress.
type NopEmitter struct{}

func (NopEmitter) EmitStage(string, string) {}
func (NopEmitter) EmitProgress(int, map[string]interface{}) {}
func (NopEmitter) EmitComplete(map[string]interface{}) {}
func (NopEmitter) EmitError(string, error) {}
func (NopEmitter) EmitInfo(string) {}
