package models

import "errors"

// Error taxonomy for a batch run. Integrity errors abort the run before any
// report is written; validation and unresolved errors skip a single execution
// and let the batch continue.
var (
	// ErrDataIntegrity marks self-contradictory reference or market data,
	// such as a duplicate instrument id or two observations at the same
	// timestamp with different prices.
	ErrDataIntegrity = errors.New("data integrity violation")

	// ErrValidation marks a single structurally invalid execution row.
	ErrValidation = errors.New("validation failed")

	// ErrUnresolved marks an execution for which no benchmark price could be
	// determined within the configured tolerance.
	ErrUnresolved = errors.New("benchmark unresolved")

	// ErrUnknownInstrument marks an execution referencing an instrument id
	// absent from the catalog.
	ErrUnknownInstrument = errors.New("unknown instrument")
)
