package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the simulation core. Fatal conditions abort a session;
// the rest are recorded per bar and never stop the replay.
var (
	// Fatal, reported before replay starts.
	ErrInsufficientData  = errors.New("insufficient history for strategy lookback")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrTranslationFailed = errors.New("strategy translation failed")

	// Fatal, reported during replay.
	ErrReplayTimeout  = errors.New("replay time budget exceeded")
	ErrFaultThreshold = errors.New("strategy fault threshold exceeded")

	// Non-fatal, recorded per bar.
	ErrStrategyFault = errors.New("strategy fault")
	ErrOrderRejected = errors.New("order rejected")

	// Session state errors.
	ErrSessionClosed  = errors.New("session closed")
	ErrSessionRunning = errors.New("session already running")
	ErrStateNotFound  = errors.New("session state not found")
)

// Diagnostic is a structured error carrying the failure kind, the bar it
// occurred at and a human readable message. Fatal replay errors are always
// returned as Diagnostics, never as silent empty results.
type Diagnostic struct {
	Kind     error
	BarIndex int
	BarTime  time.Time
	Message  string
}

func (d *Diagnostic) Error() string {
	if d.BarTime.IsZero() {
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("%s at bar %d (%s): %s",
		d.Kind, d.BarIndex, d.BarTime.Format(time.RFC3339), d.Message)
}

// Unwrap makes errors.Is work against the sentinel kinds.
func (d *Diagnostic) Unwrap() error {
	return d.Kind
}

// NewDiagnostic creates a diagnostic for a failure outside any bar.
func NewDiagnostic(kind error, message string) *Diagnostic {
	return &Diagnostic{Kind: kind, BarIndex: -1, Message: message}
}

// NewBarDiagnostic creates a diagnostic pinned to a specific bar.
func NewBarDiagnostic(kind error, barIndex int, barTime time.Time, message string) *Diagnostic {
	return &Diagnostic{Kind: kind, BarIndex: barIndex, BarTime: barTime, Message: message}
}
