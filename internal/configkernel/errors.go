package configkernel

import (
	"fmt"
	"strings"
)

// ConfigIOError wraps a failure to read, parse, or atomically write the
// on-disk configuration document.
type ConfigIOError struct {
	Path string
	Op   string
	Err  error
}

func (e *ConfigIOError) Error() string {
	return fmt.Sprintf("config io %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *ConfigIOError) Unwrap() error { return e.Err }

// Severity is a validation finding's severity level, each with a fixed
// score penalty (spec.md §4.3).
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityWarning  Severity = "warning"
)

// Penalty returns the score deduction for this severity.
func (s Severity) Penalty() int {
	switch s {
	case SeverityCritical:
		return 25
	case SeverityHigh:
		return 15
	case SeverityMedium:
		return 10
	case SeverityLow:
		return 5
	case SeverityWarning:
		return 2
	default:
		return 0
	}
}

// Category groups a validation finding by which check produced it.
type Category string

const (
	CategorySchema       Category = "schema"
	CategoryReferential  Category = "referential"
	CategorySecurity     Category = "security"
	CategoryPerformance  Category = "performance"
	CategoryConnectivity Category = "connectivity"
	CategoryCustomRouter Category = "custom_router"
)

// Finding is a single validation error or warning.
type Finding struct {
	Category Category
	Severity Severity
	Field    string
	Message  string
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s/%s] %s: %s", f.Category, f.Severity, f.Field, f.Message)
}

// VersionError covers unknown-version and rollback-refused conditions from
// the Version Manager.
type VersionError struct {
	VersionID string
	Message   string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("version %q: %s", e.VersionID, e.Message)
}

// joinFindings renders a slice of findings the way policy/manager's ErrorList
// did: one line per entry, a short summary when there's exactly one.
func joinFindings(findings []Finding) string {
	if len(findings) == 0 {
		return ""
	}
	if len(findings) == 1 {
		return findings[0].String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation findings:\n", len(findings))
	for _, f := range findings {
		fmt.Fprintf(&b, "  - %s\n", f)
	}
	return b.String()
}
