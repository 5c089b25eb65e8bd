package books

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindTransport ErrorKind = iota + 1
	KindResponse
	KindParse
)

func (kind ErrorKind) String() string {
	switch kind {
	case KindTransport:
		return "transport"
	case KindResponse:
		return "response"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

var ErrProviderUnavailable = errors.New("search provider unavailable")

// RequestError is returned by a provider for every failed search.
type RequestError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (err *RequestError) Error() string {
	if err.Kind == KindResponse && err.StatusCode != 0 {
		return fmt.Sprintf("search %s error (status %d): %v", err.Kind, err.StatusCode, err.Err)
	}
	return fmt.Sprintf("search %s error: %v", err.Kind, err.Err)
}

func (err *RequestError) Unwrap() error {
	return err.Err
}

// KindOf returns the kind of a RequestError anywhere in the chain, or 0.
func KindOf(err error) ErrorKind {
	var requestErr *RequestError
	if errors.As(err, &requestErr) {
		return requestErr.Kind
	}
	return 0
}
