package baseerror

import "strings"

// Error is an error kind. Kinds form a tree through New, so errors.Is matches
// a kind against any of its ancestors.
type Error struct {
	parent error
	msg    string
}

func New(msg string) *Error {
	return &Error{msg: msg}
}

func (err *Error) New(msg string) *Error {
	return &Error{
		parent: err,
		msg:    msg,
	}
}

func (err *Error) Error() string {
	return err.msg
}

func (err *Error) Unwrap() error {
	return err.parent
}

// Wrap attaches the kind to a cause. Both the kind (with its ancestors) and
// the cause are reachable with errors.Is and errors.As.
func (err *Error) Wrap(cause error, detail string) error {
	return &wrapped{kind: err, cause: cause, detail: detail}
}

// Detail returns an error of this kind without an underlying cause.
func (err *Error) Detail(detail string) error {
	return &wrapped{kind: err, detail: detail}
}

type wrapped struct {
	kind   *Error
	cause  error
	detail string
}

func (w *wrapped) Error() string {
	parts := make([]string, 0, 3)
	parts = append(parts, w.kind.msg)

	if w.detail != "" {
		parts = append(parts, w.detail)
	}

	if w.cause != nil {
		parts = append(parts, w.cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (w *wrapped) Unwrap() []error {
	if w.cause == nil {
		return []error{w.kind}
	}

	return []error{w.kind, w.cause}
}
