// Package protoerr defines the typed error kinds shared by every layer of
// the streaming protocol, so a consumer session can map a decode failure
// directly to the completion code it must report exactly once.
package protoerr

import "fmt"

// Kind identifies a class of protocol failure.
type Kind int

// KindEnum groups the recognized error kinds, following the same
// struct-literal enumeration idiom used for the wire-level constants.
var KindEnum = struct {
	// MalformedHeader marks an invalid transport type or a set reserved bit.
	MalformedHeader Kind
	// Protocol marks an envelope with an unsupported meta type, or a
	// stream-scoped frame carrying signal data.
	Protocol Kind
	// BadMeta marks meta JSON missing required fields, internally
	// inconsistent, or referring to an unknown data type.
	BadMeta Kind
	// UnknownSignal marks a data or meta frame for an unsubscribed signal number.
	UnknownSignal Kind
	// UnboundTime marks a data frame for a signal whose table has no time signal.
	UnboundTime Kind
	// UnsupportedRule marks a domain signal declared with an invalid rule.
	UnsupportedRule Kind
	// UnsupportedVersion marks an apiVersion below the supported floor.
	UnsupportedVersion Kind
	// TransportError marks an I/O failure from the underlying byte stream.
	TransportError Kind
	// ControlRequestFailed marks an HTTP/JSON-RPC failure on the control channel.
	ControlRequestFailed Kind
}{
	MalformedHeader:      1,
	Protocol:             2,
	BadMeta:              3,
	UnknownSignal:        4,
	UnboundTime:          5,
	UnsupportedRule:      6,
	UnsupportedVersion:   7,
	TransportError:       8,
	ControlRequestFailed: 9,
}

var kindNames = map[Kind]string{
	KindEnum.MalformedHeader:      "MalformedHeader",
	KindEnum.Protocol:             "Protocol",
	KindEnum.BadMeta:              "BadMeta",
	KindEnum.UnknownSignal:        "UnknownSignal",
	KindEnum.UnboundTime:          "UnboundTime",
	KindEnum.UnsupportedRule:      "UnsupportedRule",
	KindEnum.UnsupportedVersion:   "UnsupportedVersion",
	KindEnum.TransportError:       "TransportError",
	KindEnum.ControlRequestFailed: "ControlRequestFailed",
}

// String returns the kind's symbolic name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "Unknown"
}

// Error is a protocol failure tagged with its Kind, optionally wrapping an
// underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New creates an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error of the given kind wrapping an existing error.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a protoerr.Error of the same Kind, allowing
// callers to write errors.Is(err, protoerr.New(protoerr.KindEnum.BadMeta, "")).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}

	return e.Kind == other.Kind
}
