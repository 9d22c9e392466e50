package shift

import "fmt"

// InvalidPartitionError is returned when foreground branches do not
// form a valid partition of the tree branches.
type InvalidPartitionError struct {
	// IDs are the offending branch ids, if any.
	IDs    []int
	Reason string
}

func (e *InvalidPartitionError) Error() string {
	if len(e.IDs) > 0 {
		return fmt.Sprintf("invalid branch partition: %s: %v", e.Reason, e.IDs)
	}
	return "invalid branch partition: " + e.Reason
}

// ModelConstructionError is returned when the one-rate or the
// two-rate likelihood model cannot be created.
type ModelConstructionError struct {
	Model string
	Err   error
}

func (e *ModelConstructionError) Error() string {
	return fmt.Sprintf("cannot construct rate models from %s: %v", e.Model, e.Err)
}

func (e *ModelConstructionError) Unwrap() error {
	return e.Err
}

// SinkWriteError is returned when the result table cannot be opened
// or written.
type SinkWriteError struct {
	Path string
	Err  error
}

func (e *SinkWriteError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("cannot write results: %v", e.Err)
	}
	return fmt.Sprintf("cannot write results to %s: %v", e.Path, e.Err)
}

func (e *SinkWriteError) Unwrap() error {
	return e.Err
}
