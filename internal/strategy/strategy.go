// Package strategy implements trading decision procedures and the sandbox
// adapter that runs them during a replay.
package strategy

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/marketforge/simcore/internal/types"
)

// Strategy is a decision procedure. Decide is called once per bar with the
// full history up to and including the current bar, and returns the signals
// for that bar. Implementations must not touch the network or the filesystem;
// they see only the bars they are given.
type Strategy interface {
	// Name returns the strategy identifier.
	Name() string

	// Decide inspects the bar history and returns zero or more signals
	// timestamped at the last bar.
	Decide(ctx context.Context, history []types.Bar) ([]types.Signal, error)
}

// Func wraps a bare decision function as a Strategy.
func Func(name string, fn func(ctx context.Context, history []types.Bar) ([]types.Signal, error)) Strategy {
	return &funcStrategy{name: name, fn: fn}
}

type funcStrategy struct {
	name string
	fn   func(ctx context.Context, history []types.Bar) ([]types.Signal, error)
}

func (f *funcStrategy) Name() string { return f.name }

func (f *funcStrategy) Decide(ctx context.Context, history []types.Bar) ([]types.Signal, error) {
	return f.fn(ctx, history)
}

// Params configures a registry-built strategy instance.
type Params struct {
	// Symbol is stamped onto every signal the strategy emits.
	Symbol string

	// Quantity is the fixed order size per signal.
	Quantity decimal.Decimal

	// Options holds strategy-specific tuning values keyed by name.
	// Missing keys fall back to the strategy's defaults.
	Options map[string]float64
}

func (p Params) intOption(key string, def int) int {
	if v, ok := p.Options[key]; ok {
		return int(v)
	}
	return def
}

func (p Params) decimalOption(key string, def decimal.Decimal) decimal.Decimal {
	if v, ok := p.Options[key]; ok {
		return decimal.NewFromFloat(v)
	}
	return def
}

// Factory builds a strategy instance from parameters.
type Factory func(p Params) (Strategy, error)

// Registry maps strategy names to factories so callers can select a
// decision procedure by name.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with the built-in strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("smacross", newSMACrossFromParams)
	r.Register("rsireversion", newRSIReversionFromParams)
	return r
}

// Register adds a factory under a name, replacing any existing entry.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// New builds a strategy by name.
func (r *Registry) New(name string, p Params) (Strategy, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown strategy %q", types.ErrInvalidConfig, name)
	}
	return factory(p)
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
