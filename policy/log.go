package policy

import (
	"context"
	"sync"
	"time"

	"github.com/Hussein-Mazeh/PhishGuard/risk"
)

// BlockRecord is the structured record emitted for every confirmed block.
// Timestamps are UTC; the JSON form is ISO-8601.
type BlockRecord struct {
	Timestamp time.Time  `json:"timestamp"`
	URL       string     `json:"url"`
	Hostname  string     `json:"hostname"`
	RiskScore float64    `json:"riskScore"`
	RiskLevel risk.Level `json:"riskLevel"`
}

// BlockLogger is the logging collaborator. It receives confirmed blocks
// only; per-signal breakdowns stay transient at the engine boundary.
type BlockLogger interface {
	LogBlock(ctx context.Context, rec BlockRecord) error
}

type discardLogger struct{}

func (discardLogger) LogBlock(context.Context, BlockRecord) error { return nil }

// MemoryLog keeps block records in memory. Used by tests and the CLI.
type MemoryLog struct {
	mu      sync.Mutex
	records []BlockRecord
}

// LogBlock appends the record.
func (m *MemoryLog) LogBlock(_ context.Context, rec BlockRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Records returns a copy of everything logged so far.
func (m *MemoryLog) Records() []BlockRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]BlockRecord, len(m.records))
	copy(out, m.records)
	return out
}
