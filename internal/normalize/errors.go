package normalize

import "errors"

// Domain errors for payload normalisation.
var (
	// ErrUnrecognisedDialect is returned when a discovery payload does not
	// fit any supported gateway dialect.
	ErrUnrecognisedDialect = errors.New("normalize: unrecognised discovery dialect")
)
