package flatten

import (
	"fmt"
	"log/slog"
)

// WarningKind classifies a soft irregularity found while building a schema.
type WarningKind int

const (
	// WarnSchemaMismatch means an axis' distinct hierarchy count differs
	// from its member slot count.
	WarnSchemaMismatch WarningKind = iota + 1
)

// String returns the string representation of a WarningKind.
func (k WarningKind) String() string {
	switch k {
	case WarnSchemaMismatch:
		return "schema_mismatch"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Warning describes a tolerated irregularity in the source result.
type Warning struct {
	Kind        WarningKind
	Axis        int
	Expected    int      // member slots counted by the analyzer
	Observed    int      // distinct hierarchy names found on the axis
	Hierarchies []string // the names in encounter order
}

// Diagnostics receives warnings raised during schema construction.
type Diagnostics func(Warning)

// Discard ignores every warning.
func Discard(Warning) {}

// SlogDiagnostics reports warnings through logger.
func SlogDiagnostics(logger *slog.Logger) Diagnostics {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w Warning) {
		logger.Warn("hierarchy count differs from member slot count",
			"kind", w.Kind.String(),
			"axis", w.Axis,
			"expected", w.Expected,
			"observed", w.Observed,
			"hierarchies", w.Hierarchies,
		)
	}
}
