package reconcile

import (
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Run id formats.
const (
	RunIDTimestamp = "timestamp"
	RunIDUUID      = "uuid"
)

// runIDLayout is a second-resolution local timestamp, e.g. 20240503093000.
const runIDLayout = "20060102150405"

// NewRunID generates a run identifier in the given format.
func NewRunID(format string, now time.Time) (string, error) {
	switch format {
	case "", RunIDTimestamp:
		return now.Format(runIDLayout), nil
	case RunIDUUID:
		return uuid.NewString(), nil
	default:
		return "", eris.Errorf("reconcile: unknown run id format %q", format)
	}
}
