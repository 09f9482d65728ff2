// Package alerting provides notification capabilities for simulation
// sessions.
package alerting

import (
	"context"
	"fmt"
)

// Severity represents the alert severity level.
type Severity int

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = iota
	// SeverityWarning is for warning messages.
	SeverityWarning
	// SeverityHigh is for high priority alerts.
	SeverityHigh
	// SeverityCritical is for critical alerts requiring immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Alerter defines the interface for sending alerts.
type Alerter interface {
	// Alert sends an alert with the given severity and message.
	Alert(ctx context.Context, severity Severity, message string, fields ...any) error
	// Name returns the name of the alerter.
	Name() string
}

// FormatFields converts variadic key-value fields to a formatted string.
func FormatFields(fields ...any) string {
	if len(fields) == 0 {
		return ""
	}

	result := ""
	for i := 0; i < len(fields)-1; i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		if result != "" {
			result += "\n"
		}
		result += fmt.Sprintf("• %s: %v", key, fields[i+1])
	}
	return result
}

// AlertEvent represents a pre-defined alert event type.
type AlertEvent string

const (
	// EventSessionStarted is sent when a simulation session starts.
	EventSessionStarted AlertEvent = "session_started"
	// EventSessionCompleted is sent when a backtest completes.
	EventSessionCompleted AlertEvent = "session_completed"
	// EventSessionFaulted is sent when a session aborts on a fatal diagnostic.
	EventSessionFaulted AlertEvent = "session_faulted"
	// EventFaultThreshold is sent when strategy faults cross the threshold.
	EventFaultThreshold AlertEvent = "fault_threshold"
	// EventOrderRejected is sent when an order is rejected.
	EventOrderRejected AlertEvent = "order_rejected"
	// EventPositionLiquidated is sent when close-on-finish flattens a position.
	EventPositionLiquidated AlertEvent = "position_liquidated"
	// EventReplayTimeout is sent when a backtest exceeds its time budget.
	EventReplayTimeout AlertEvent = "replay_timeout"
)

// EventSeverity returns the default severity for an event.
func EventSeverity(event AlertEvent) Severity {
	switch event {
	case EventSessionFaulted, EventReplayTimeout:
		return SeverityCritical
	case EventFaultThreshold:
		return SeverityHigh
	case EventOrderRejected:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}
