package recorder

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// RunEvent holds the outcome of one daily cycle.
type RunEvent struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Symbol     string
	Status     string // StatusOK or StatusFailed
	BarDate    string
	Attempts   int
	NotFound   int
	Failures   int
	Open       decimal.Decimal
	Close      decimal.Decimal
	Verdict    bool
	// VerdictNote is set when the oracle failed and the verdict defaulted.
	VerdictNote     string
	CorpusPosts     int
	PriorExperiment decimal.Decimal
	PriorControl    decimal.Decimal
	Experiment      decimal.Decimal
	Control         decimal.Decimal
	Error           string
}

// ProbeEvent records one date probe of a run.
type ProbeEvent struct {
	Date    string
	Outcome string
	Error   string
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Recorder persists run history for analysis.
type Recorder interface {
	RecordRun(evt *RunEvent) error
	RecordProbes(runID string, probes []ProbeEvent) error
	Close() error
}
