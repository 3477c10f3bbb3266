package integrations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrInvalidCredentials  = errors.New("invalid Trello credentials")
	ErrNotFound            = errors.New("not found on Trello")
	ErrRateLimited         = errors.New("rate limited by Trello")
	ErrTransport           = errors.New("could not reach Trello")
	ErrCreateUnsupported   = errors.New("card creation is not supported by any configured transport")
	ErrAllStrategiesFailed = errors.New("all transport strategies failed")
	ErrInvalidCard         = errors.New("invalid card")
)

type Kind int

const (
	KindTransport Kind = iota
	KindInvalidCredentials
	KindNotFound
	KindRateLimited
	KindCreateUnsupported
	KindInvalidCard
)

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidCredentials:
		return ErrInvalidCredentials
	case KindNotFound:
		return ErrNotFound
	case KindRateLimited:
		return ErrRateLimited
	case KindCreateUnsupported:
		return ErrCreateUnsupported
	case KindInvalidCard:
		return ErrInvalidCard
	default:
		return ErrTransport
	}
}

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "InvalidCredentials"
	case KindNotFound:
		return "NotFound"
	case KindRateLimited:
		return "RateLimited"
	case KindCreateUnsupported:
		return "CreateUnsupported"
	case KindInvalidCard:
		return "InvalidCard"
	default:
		return "TransportError"
	}
}

// Error is a single classified failure. Status and Err are kept for logs; the
// Error string is always fit to show a user.
type Error struct {
	Kind     Kind
	Op       string
	Strategy string
	Status   int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = defaultMessage(e.Kind)
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (e *Error) Unwrap() error { return e.Err }

func defaultMessage(k Kind) string {
	switch k {
	case KindInvalidCredentials:
		return "invalid API key or token"
	case KindNotFound:
		return "the board, list or card no longer exists"
	case KindRateLimited:
		return "rate limited by Trello, please try again in a moment"
	case KindCreateUnsupported:
		return "card creation requires the relay backend"
	case KindInvalidCard:
		return "the card is invalid"
	default:
		return "unable to reach Trello, check your network connection"
	}
}

// AggregatedError is returned when every attempted strategy failed.
type AggregatedError struct {
	Op       string
	Attempts []string
	Last     error
}

func (e *AggregatedError) Error() string {
	return fmt.Sprintf("%s failed on every transport (%s): %v", e.Op, strings.Join(e.Attempts, ", "), e.Last)
}

func (e *AggregatedError) Is(target error) bool { return target == ErrAllStrategiesFailed }

func (e *AggregatedError) Unwrap() error { return e.Last }

// StatusError classifies an upstream HTTP status.
func StatusError(op, strategy string, status int, body string) *Error {
	e := &Error{Op: op, Strategy: strategy, Status: status}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindInvalidCredentials
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
	default:
		e.Kind = KindTransport
		e.Message = fmt.Sprintf("unexpected status %d from Trello", status)
	}
	if body != "" {
		e.Err = fmt.Errorf("status %d: %s", status, truncateBody(body))
	}
	return e
}

// transportError wraps a network, timeout or decoding failure.
func transportError(op, strategy string, err error) *Error {
	e := &Error{Kind: KindTransport, Op: op, Strategy: strategy, Err: err}
	if errors.Is(err, context.DeadlineExceeded) {
		e.Message = "request to Trello timed out"
	}
	return e
}

func malformed(op, strategy string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Strategy: strategy, Message: "malformed response from Trello", Err: err}
}

func kindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindTransport, false
}

// Message is the default human-readable text for any error this package returns.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var agg *AggregatedError
	if errors.As(err, &agg) {
		return fmt.Sprintf("Unable to %s: %s", humanOp(agg.Op), Message(agg.Last))
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		return defaultMessage(e.Kind)
	}
	return err.Error()
}

// HTTPStatus is the status the relay answers with for err.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}

func humanOp(op string) string {
	switch op {
	case OpValidate:
		return "validate credentials"
	case OpBoards:
		return "load boards"
	case OpLists:
		return "load lists"
	case OpLabels:
		return "load labels"
	case OpMembers:
		return "load members"
	case OpCreateCard:
		return "create card"
	default:
		return op
	}
}

func truncateBody(s string) string {
	const limit = 512
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
