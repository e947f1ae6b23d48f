package campus

import "fmt"

// TopologyError is returned by Assemble when the wired equipment graph
// violates one of the invariants spec.md §4.E requires: every AHU has
// at least one VAV or is 100% outside air, every chiller has a
// condenser-side tower, every pump belongs to a named loop. It is
// fatal at startup (BAD_TOPOLOGY).
type TopologyError struct {
	Reason string
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("campus: bad topology: %s", e.Reason)
}

func badTopology(format string, args ...any) error {
	return &TopologyError{Reason: fmt.Sprintf(format, args...)}
}
