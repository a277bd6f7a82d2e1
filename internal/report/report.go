// Package report collects run metadata and the operation history of a
// verification run into a reproducibility bundle.
//
// A bundle directory contains:
//   - run.json: configuration, seeds, versions, per-scenario verdicts
//   - history.log.<codec>: the recorded operation history, compressed
//
// Everything needed to rerun a failing scenario — seed, thread count,
// exec count, dataset kind — is in run.json.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aalhour/indexharness/internal/compression"
	"github.com/aalhour/indexharness/internal/oracle"
)

// ScenarioResult is one scenario's verdict in run.json.
type ScenarioResult struct {
	Name       string   `json:"name"`
	Status     string   `json:"status"` // "passed", "failed", "skipped"
	SkipReason string   `json:"skip_reason,omitempty"`
	Violations []string `json:"violations,omitempty"`
	Elapsed    string   `json:"elapsed"`
}

// RunInfo contains metadata about a verification run.
type RunInfo struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`

	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`

	Seed      uint64 `json:"seed"`
	Threads   int    `json:"threads"`
	ExecNum   int    `json:"exec_num"`
	Dataset   string `json:"dataset"`
	Codec     string `json:"codec"`

	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    bool             `json:"passed"`
	Elapsed   string           `json:"elapsed,omitempty"`
}

// NewRunInfo returns run metadata stamped with a fresh run id and the current
// environment.
func NewRunInfo(seed uint64, threads, execNum int, dataset string) *RunInfo {
	return &RunInfo{
		RunID:     uuid.NewString(),
		Timestamp: time.Now().UTC(),
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		Seed:      seed,
		Threads:   threads,
		ExecNum:   execNum,
		Dataset:   dataset,
		Passed:    true,
	}
}

// AddScenario appends a scenario verdict, lowering Passed on failure.
func (ri *RunInfo) AddScenario(name, status, skipReason string, violations []oracle.Violation, elapsed time.Duration) {
	res := ScenarioResult{
		Name:       name,
		Status:     status,
		SkipReason: skipReason,
		Elapsed:    elapsed.String(),
	}
	for _, v := range violations {
		res.Violations = append(res.Violations, v.String())
	}
	if status == "failed" {
		ri.Passed = false
	}
	ri.Scenarios = append(ri.Scenarios, res)
}

// History buffers the operation log of a run. Safe for concurrent use.
type History struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	count int
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Recordf appends one formatted line to the history.
func (h *History) Recordf(format string, args ...any) {
	h.mu.Lock()
	h.count++
	fmt.Fprintf(&h.buf, format+"\n", args...)
	h.mu.Unlock()
}

// Count returns the number of recorded lines.
func (h *History) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Bytes returns a copy of the recorded history.
func (h *History) Bytes() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]byte(nil), h.buf.Bytes()...)
}

// Bundle writes run metadata and history to a directory.
type Bundle struct {
	Info    *RunInfo
	History *History
	Codec   compression.Type
}

// Write creates dir if needed and emits run.json plus the compressed history.
func (b *Bundle) Write(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}

	b.Info.Codec = b.Codec.String()
	data, err := json.MarshalIndent(b.Info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run info: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "run.json"), data, 0o644); err != nil {
		return fmt.Errorf("write run.json: %w", err)
	}

	if b.History != nil {
		compressed, err := compression.Compress(b.Codec, b.History.Bytes())
		if err != nil {
			return fmt.Errorf("compress history: %w", err)
		}
		name := "history.log." + b.Codec.String()
		if err := os.WriteFile(filepath.Join(dir, name), compressed, 0o644); err != nil {
			return fmt.Errorf("write history: %w", err)
		}
	}
	return nil
}

// ReadRunInfo loads run.json from a bundle directory.
func ReadRunInfo(dir string) (*RunInfo, error) {
	data, err := os.ReadFile(filepath.Join(dir, "run.json"))
	if err != nil {
		return nil, fmt.Errorf("read run.json: %w", err)
	}
	var info RunInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse run.json: %w", err)
	}
	return &info, nil
}

// ReadHistory loads and decompresses the history file from a bundle
// directory, using the codec recorded in run.json.
func ReadHistory(dir string) ([]byte, error) {
	info, err := ReadRunInfo(dir)
	if err != nil {
		return nil, err
	}
	codec, err := compression.TypeFromName(info.Codec)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "history.log."+info.Codec))
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return compression.Decompress(codec, data)
}
