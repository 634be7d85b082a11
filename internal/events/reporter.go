package events

import (
	"log"
	"strings"
)

//go:generate mockgen -destination=mocks/mock_reporter.go -package=mocks github.com/KirkDiggler/gridbus/internal/events Reporter,Observer

// Severity ranks diagnostics sent to a Reporter
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseSeverity maps a level name to a Severity, defaulting to info
func ParseSeverity(level string) Severity {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return SeverityDebug
	case "warn", "warning":
		return SeverityWarn
	case "error":
		return SeverityError
	default:
		return SeverityInfo
	}
}

// Reporter receives diagnostics from the bus and from capability descriptors
type Reporter interface {
	Report(severity Severity, message string)
}

// ReporterFunc adapts a function to Reporter
type ReporterFunc func(severity Severity, message string)

func (f ReporterFunc) Report(severity Severity, message string) { f(severity, message) }

// NopReporter discards all diagnostics
type NopReporter struct{}

func (NopReporter) Report(Severity, string) {}

// LogReporter writes diagnostics at or above MinSeverity through a standard logger
type LogReporter struct {
	Logger      *log.Logger
	Prefix      string
	MinSeverity Severity
}

// NewLogReporter creates a reporter on the standard logger
func NewLogReporter(prefix string, min Severity) *LogReporter {
	return &LogReporter{
		Logger:      log.Default(),
		Prefix:      prefix,
		MinSeverity: min,
	}
}

func (r *LogReporter) Report(severity Severity, message string) {
	if severity < r.MinSeverity {
		return
	}
	logger := r.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("%s[%s] %s", r.Prefix, severity, message)
}

// Observer is told about every completed dispatch. It runs on the publishing
// goroutine after all callbacks and must not block.
type Observer interface {
	ObserveDispatch(result Result)
}
