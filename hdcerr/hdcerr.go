// Package hdcerr carries the engine-internal error taxonomy for wire,
// protocol, and descriptor-integrity failures. It is deliberately distinct
// from model.Exception, the numeric command-failure taxonomy that rides in
// the wire reply's fourth byte: hdcerr.Code never appears on the wire, it
// only flows between engine-internal Go calls.
package hdcerr

// Code is a stable, allocation-free error identifier. It is a string newtype,
// comparable, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Wire / frame errors.
const (
	Oversized   Code = "oversized"
	BadChecksum Code = "bad_checksum"
	MissingTerm Code = "missing_terminator"
	Incomplete  Code = "incomplete" // not an error: caller should wait for more bytes
)

// Protocol errors.
const (
	UnknownMsgType Code = "unknown_message_type"
	MalformedCmd   Code = "malformed_command_request"
)

// TX composer misuse: begin/end without a matching counterpart is a
// returned error, never a dead assert.
const (
	NotComposing Code = "not_composing"
	AlreadyBegun Code = "already_composing"
	FlushTimeout Code = "flush_timeout"
)

// Descriptor-integrity errors, surfaced at Engine.Init. These are
// programming errors, not runtime faults.
const (
	BadPropertyBacking Code = "bad_property_backing"
	MissingValueSize   Code = "missing_value_size"
	DuplicateID        Code = "duplicate_id"
	MissingCoreFeature Code = "missing_core_feature"
	BadDescriptorText  Code = "bad_descriptor_text"
	ReqSizeOutOfRange  Code = "max_req_size_out_of_range"

	Error Code = "error" // generic fallback
)

// E wraps a Code with optional context and a cause, for errors.Is/As chains.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return ""
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
