// Error types for decision validation and action parameters.
//
// Information Hiding:
// - Validation failure details hidden behind error interfaces

package agent

import "fmt"

// MissingParameterError reports a required action parameter that was absent
// from a decision's params. It is fatal for that single action invocation.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing %s parameter", e.Name)
}

// ValidationError reports a decoded structured block that is missing
// required keys or carries values of the wrong shape.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}
