// Package errs defines the error taxonomy shared by all public operations.
// Handlers map a Kind to an HTTP status instead of inspecting message strings.
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindUnknown covers errors that were not produced by this package.
	KindUnknown Kind = iota
	// KindInput: a required field, file, or parameter is missing or malformed.
	KindInput
	// KindExtraction: no parseable structured data in an LLM reply, or an
	// unreadable document.
	KindExtraction
	// KindUpstream: network or API failure talking to the LLM, the calendar
	// service, or a remote URL.
	KindUpstream
	// KindConfig: missing credentials or configuration for an external
	// collaborator.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindExtraction:
		return "extraction"
	case KindUpstream:
		return "upstream"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg != "" {
			return e.Msg + ": " + e.Err.Error()
		}
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Input(format string, args ...any) error {
	return &Error{Kind: KindInput, Msg: fmt.Sprintf(format, args...)}
}

func Extraction(format string, args ...any) error {
	return &Error{Kind: KindExtraction, Msg: fmt.Sprintf(format, args...)}
}

func Config(format string, args ...any) error {
	return &Error{Kind: KindConfig, Msg: fmt.Sprintf(format, args...)}
}

// Upstream wraps a transport or remote-API error with an explanatory message.
func Upstream(err error, format string, args ...any) error {
	return &Error{Kind: KindUpstream, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Wrap attaches a kind and message to an underlying error. If err already
// carries a kind, that kind wins so the outermost wrap doesn't reclassify.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if existing := KindOf(err); existing != KindUnknown {
		kind = existing
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
