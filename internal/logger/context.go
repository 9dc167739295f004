package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds run-scoped logging context for a sync engine invocation.
type LogContext struct {
	RunID     string    // identifier of one StateSync invocation
	Phase     string    // state_sync, hash_process, sync_process, autosave
	Disk      string    // disk name currently being processed
	BlockIdx  uint64    // block index currently being processed
	StartTime time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a run identifier.
func NewLogContext(runID string) *LogContext {
	return &LogContext{
		RunID:     runID,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		RunID:     lc.RunID,
		Phase:     lc.Phase,
		Disk:      lc.Disk,
		BlockIdx:  lc.BlockIdx,
		StartTime: lc.StartTime,
	}
}

// WithPhase returns a copy with the phase set
func (lc *LogContext) WithPhase(phase string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Phase = phase
	}
	return clone
}

// WithDisk returns a copy with the disk name set
func (lc *LogContext) WithDisk(disk string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Disk = disk
	}
	return clone
}

// WithBlock returns a copy with the block index set
func (lc *LogContext) WithBlock(blockIdx uint64) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.BlockIdx = blockIdx
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
