package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a Failure.
type Kind string

const (
	KindTransport          Kind = "TransportError"
	KindProvider           Kind = "ProviderError"
	KindEmptyResponse      Kind = "EmptyResponse"
	KindDecode             Kind = "DecodeError"
	KindInvalidRecord      Kind = "InvalidRecord"
	KindInvalidQuery       Kind = "InvalidQuery"
	KindPersistence        Kind = "PersistenceError"
	KindRelationResolution Kind = "RelationResolutionError"
)

// unreadableMessage is shown for malformed provider payloads.
const unreadableMessage = "unable to read provider response"

// Failure is the typed error surfaced by the client, orchestrator and reconciler.
type Failure struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (f *Failure) Error() string {
	switch {
	case f.Status != 0:
		return fmt.Sprintf("%s (%d): %s", f.Kind, f.Status, f.Message)
	case f.Message != "":
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	default:
		return string(f.Kind)
	}
}

func (f *Failure) Unwrap() error { return f.Err }

// Is matches failures by kind so callers can use errors.Is with a bare Failure.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return t.Kind == f.Kind && t.Status == 0 && t.Message == ""
}

// UserMessage is the text a caller should render verbatim.
func (f *Failure) UserMessage() string {
	switch f.Kind {
	case KindEmptyResponse, KindDecode:
		return unreadableMessage
	}
	if f.Message != "" {
		return f.Message
	}
	return string(f.Kind)
}

// Sentinels usable with errors.Is.
var (
	ErrTransport     = &Failure{Kind: KindTransport}
	ErrProvider      = &Failure{Kind: KindProvider}
	ErrEmptyResponse = &Failure{Kind: KindEmptyResponse}
	ErrDecode        = &Failure{Kind: KindDecode}
	ErrInvalidRecord = &Failure{Kind: KindInvalidRecord}
	ErrInvalidQuery  = &Failure{Kind: KindInvalidQuery}
	ErrPersistence   = &Failure{Kind: KindPersistence}
)

func TransportFailure(err error) *Failure {
	return &Failure{Kind: KindTransport, Message: err.Error(), Err: err}
}

func ProviderFailure(status int, message string) *Failure {
	return &Failure{Kind: KindProvider, Status: status, Message: message}
}

func EmptyResponseFailure() *Failure {
	return &Failure{Kind: KindEmptyResponse, Message: "provider returned an empty body"}
}

func DecodeFailure(err error) *Failure {
	msg := "provider payload is not a JSON object"
	if err != nil {
		msg = err.Error()
	}
	return &Failure{Kind: KindDecode, Message: msg, Err: err}
}

func InvalidRecordFailure(message string) *Failure {
	return &Failure{Kind: KindInvalidRecord, Message: message}
}

func InvalidQueryFailure(message string) *Failure {
	return &Failure{Kind: KindInvalidQuery, Message: message}
}

func PersistenceFailure(op string, err error) *Failure {
	return &Failure{Kind: KindPersistence, Message: fmt.Sprintf("%s: %v", op, err), Err: err}
}

func RelationFailure(category Category, name string, err error) *Failure {
	return &Failure{Kind: KindRelationResolution, Message: fmt.Sprintf("%s %q: %v", category, name, err), Err: err}
}

// KindOf returns the Failure kind carried by err, or "" when err is not a Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}
