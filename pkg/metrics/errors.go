package metrics

import "errors"

// ErrUnknownOutcome is returned by RecordOutcome for an empty kind label.
var ErrUnknownOutcome = errors.New("metrics: unknown outcome kind")
