package bcsnet

// errors.go holds the error kinds reported while building a topology and
// assembling peer configurations.  Every one of them is fatal to a run.

import (
	"errors"
	"fmt"
	"strings"
)

// sentinel values that a TopoError wraps, so callers can test with errors.Is
var (
	ErrFormat     = errors.New("malformed topology description")
	ErrRange      = errors.New("index out of range")
	ErrSelfLoop   = errors.New("link endpoints are identical")
	ErrConstraint = errors.New("constraint violated")
	ErrConfig     = errors.New("invalid configuration")
)

// TopoError describes one validation failure.  Kind is one of the sentinels
// above, Input is the offending token or parameter name
type TopoError struct {
	Kind  error
	Input string
	Msg   string
}

func (te *TopoError) Error() string {
	if len(te.Input) == 0 {
		return fmt.Sprintf("%s: %s", te.Kind.Error(), te.Msg)
	}
	return fmt.Sprintf("%s: %s (%q)", te.Kind.Error(), te.Msg, te.Input)
}

// Unwrap exposes the sentinel kind
func (te *TopoError) Unwrap() error {
	return te.Kind
}

func formatErr(input, format string, args ...any) error {
	return &TopoError{Kind: ErrFormat, Input: input, Msg: fmt.Sprintf(format, args...)}
}

func rangeErr(input, format string, args ...any) error {
	return &TopoError{Kind: ErrRange, Input: input, Msg: fmt.Sprintf(format, args...)}
}

func selfLoopErr(input, format string, args ...any) error {
	return &TopoError{Kind: ErrSelfLoop, Input: input, Msg: fmt.Sprintf(format, args...)}
}

func constraintErr(input, format string, args ...any) error {
	return &TopoError{Kind: ErrConstraint, Input: input, Msg: fmt.Sprintf(format, args...)}
}

func configErr(input, format string, args ...any) error {
	return &TopoError{Kind: ErrConfig, Input: input, Msg: fmt.Sprintf(format, args...)}
}

// ReportErrs transforms a list of errors and transforms the non-nil ones into a single error
// with comma-separated report of all the constituent errors, and returns it.
// The first non-nil error stays reachable through errors.Is and errors.As.
func ReportErrs(errs []error) error {
	errMsg := make([]string, 0)
	var first error
	for _, err := range errs {
		if err != nil {
			if first == nil {
				first = err
			}
			errMsg = append(errMsg, err.Error())
		}
	}
	if len(errMsg) == 0 {
		return nil
	}
	if len(errMsg) == 1 {
		return first
	}

	return fmt.Errorf("%w; %s", first, strings.Join(errMsg[1:], ","))
}
