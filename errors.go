package sqlgrid

import (
	"errors"
	"fmt"
)

/*
Error codes. You probably shouldn't use this directly; instead, use the `Err`
variables with `errors.Is`.
*/
type ErrCode string

const (
	ErrCodeUnknown        ErrCode = ""
	ErrCodeSyntax         ErrCode = "Syntax"
	ErrCodeMalformedQuery ErrCode = "MalformedQuery"
	ErrCodeInvalidValue   ErrCode = "InvalidValue"
	ErrCodeInvalidInput   ErrCode = "InvalidInput"
	ErrCodeArgCount       ErrCode = "ArgCount"
	ErrCodeExec           ErrCode = "Exec"
	ErrCodeInternal       ErrCode = "Internal"
)

/*
Use blank error variables to detect error types:

	if errors.Is(err, sqlgrid.ErrSyntax) {
		// Handle specific error.
	}

Note that errors returned by this package can't be compared via `==` because
they may include additional details about the circumstances. When compared by
`errors.Is`, they compare `.Cause` and fall back on `.Code`.

`ErrSyntax`: the SQL text or a raw predicate fragment can't be parsed.

`ErrMalformedQuery`: internal consistency violation, such as a placeholder
marker missing from a rendered statement, or an empty OR-group.

`ErrInvalidValue`: a filter value can't be converted per its declared
semantics, for example a date in the wrong format.
*/
var (
	ErrSyntax         Err = Err{Code: ErrCodeSyntax, Cause: errors.New(`syntax error`)}
	ErrMalformedQuery Err = Err{Code: ErrCodeMalformedQuery, Cause: errors.New(`malformed query`)}
	ErrInvalidValue   Err = Err{Code: ErrCodeInvalidValue, Cause: errors.New(`invalid value`)}
	ErrInvalidInput   Err = Err{Code: ErrCodeInvalidInput, Cause: errors.New(`invalid input`)}
	ErrArgCount       Err = Err{Code: ErrCodeArgCount, Cause: errors.New(`placeholder and argument counts differ`)}
	ErrExec           Err = Err{Code: ErrCodeExec, Cause: errors.New(`execution failed`)}
	ErrInternal       Err = Err{Code: ErrCodeInternal, Cause: errors.New(`internal error`)}
)

// Type of errors returned by this package.
type Err struct {
	Code  ErrCode
	While string
	Cause error
}

// Implement `error`.
func (self Err) Error() string {
	if self == (Err{}) {
		return ""
	}
	msg := `[sqlgrid]`
	if self.Code != ErrCodeUnknown {
		msg += fmt.Sprintf(` %s`, self.Code)
	}
	if self.While != "" {
		msg += fmt.Sprintf(` while %v`, self.While)
	}
	if self.Cause != nil {
		msg += `: ` + self.Cause.Error()
	}
	return msg
}

// Implement a hidden interface in "errors".
func (self Err) Is(other error) bool {
	if self.Cause != nil && errors.Is(self.Cause, other) {
		return true
	}
	err, ok := other.(Err)
	return ok && err.Code == self.Code
}

// Implement a hidden interface in "errors".
func (self Err) Unwrap() error {
	return self.Cause
}

func errSyntax(while string, cause error) Err {
	return Err{Code: ErrCodeSyntax, While: while, Cause: cause}
}

func errMalformed(while string, cause error) Err {
	return Err{Code: ErrCodeMalformedQuery, While: while, Cause: cause}
}

func errValue(while string, cause error) Err {
	return Err{Code: ErrCodeInvalidValue, While: while, Cause: cause}
}

func errInput(while string, cause error) Err {
	return Err{Code: ErrCodeInvalidInput, While: while, Cause: cause}
}

func errArgCount(while string, params, args int) Err {
	return Err{
		Code:  ErrCodeArgCount,
		While: while,
		Cause: fmt.Errorf(`found %v placeholders and %v arguments`, params, args),
	}
}
