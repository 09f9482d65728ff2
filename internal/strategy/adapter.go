package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marketforge/simcore/internal/types"
)

// Fault records one failed strategy call or one rejected signal.
type Fault struct {
	BarIndex int       `json:"bar_index"`
	BarTime  time.Time `json:"bar_time"`
	Reason   string    `json:"reason"`
}

// Adapter runs a strategy as an untrusted computation. Each Decide call runs
// in its own goroutine under a per-call timeout; panics, errors, timeouts and
// invalid signals are recorded as faults and swallowed, so one bad bar never
// aborts a replay. The caller checks the accumulated fault count against its
// own threshold.
type Adapter struct {
	strategy Strategy
	timeout  time.Duration
	logger   *slog.Logger
	faults   []Fault
}

// NewAdapter wraps a strategy with timeout and fault handling. A zero timeout
// disables the per-call deadline.
func NewAdapter(strategy Strategy, timeout time.Duration, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		strategy: strategy,
		timeout:  timeout,
		logger:   logger,
	}
}

// Name returns the wrapped strategy's name.
func (a *Adapter) Name() string {
	return a.strategy.Name()
}

type outcome struct {
	signals []types.Signal
	err     error
}

// Decide runs the strategy for one bar and returns the validated signals.
// It never returns an error; failures become faults.
func (a *Adapter) Decide(ctx context.Context, barIndex int, history []types.Bar) []types.Signal {
	if len(history) == 0 {
		return nil
	}
	bar := history[len(history)-1]

	callCtx := ctx
	cancel := context.CancelFunc(func() {})
	if a.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
	}
	defer cancel()

	// Buffered so the goroutine can finish after a timeout abandons it.
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: panic: %v", types.ErrStrategyFault, r)}
			}
		}()
		signals, err := a.strategy.Decide(callCtx, history)
		done <- outcome{signals: signals, err: err}
	}()

	var signals []types.Signal
	select {
	case <-callCtx.Done():
		a.recordFault(barIndex, bar.Time, fmt.Sprintf("decide aborted: %v", callCtx.Err()))
		return nil
	case out := <-done:
		if out.err != nil {
			a.recordFault(barIndex, bar.Time, out.err.Error())
			return nil
		}
		signals = out.signals
	}

	valid := signals[:0]
	for _, signal := range signals {
		if err := validateSignal(signal, bar); err != nil {
			a.recordFault(barIndex, bar.Time, err.Error())
			continue
		}
		valid = append(valid, signal)
	}
	return valid
}

// FaultCount returns the number of faults recorded so far.
func (a *Adapter) FaultCount() int {
	return len(a.faults)
}

// Faults returns a copy of the fault log.
func (a *Adapter) Faults() []Fault {
	out := make([]Fault, len(a.faults))
	copy(out, a.faults)
	return out
}

func (a *Adapter) recordFault(barIndex int, barTime time.Time, reason string) {
	a.faults = append(a.faults, Fault{BarIndex: barIndex, BarTime: barTime, Reason: reason})
	a.logger.Warn("strategy fault",
		"strategy", a.strategy.Name(),
		"bar_index", barIndex,
		"bar_time", barTime,
		"reason", reason)
}

// validateSignal checks a signal against the bar it was generated from.
// Signals referencing any other time would let a strategy trade the past.
func validateSignal(signal types.Signal, bar types.Bar) error {
	if !signal.Time.Equal(bar.Time) {
		return fmt.Errorf("%w: signal time %s does not match bar time %s",
			types.ErrStrategyFault, signal.Time.Format(time.RFC3339), bar.Time.Format(time.RFC3339))
	}
	if !signal.Quantity.IsPositive() {
		return fmt.Errorf("%w: signal quantity %s is not positive", types.ErrStrategyFault, signal.Quantity)
	}
	if signal.Type == types.OrderTypeLimit && !signal.LimitPrice.IsPositive() {
		return fmt.Errorf("%w: limit signal without a positive limit price", types.ErrStrategyFault)
	}
	if signal.Symbol == "" {
		return fmt.Errorf("%w: signal without a symbol", types.ErrStrategyFault)
	}
	return nil
}
