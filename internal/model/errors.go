package model

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds. Callers match them with errors.Is.
var (
	ErrRateLimited       = errors.New("rate limited")
	ErrNetwork           = errors.New("network error")
	ErrInvalidSymbol     = errors.New("invalid symbol")
	ErrMalformedResponse = errors.New("malformed response")
	ErrInsufficientData  = errors.New("insufficient data")
	ErrCacheUnavailable  = errors.New("cache unavailable")
)

var kinds = []error{
	ErrRateLimited, ErrNetwork, ErrInvalidSymbol,
	ErrMalformedResponse, ErrInsufficientData, ErrCacheUnavailable,
}

// Error carries one error kind plus the request context needed to report it.
type Error struct {
	Kind     error
	Op       string
	Symbol   Symbol
	Interval Interval
	At       time.Time
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s", e.Op, e.Symbol)
	if e.Interval != "" {
		msg += " " + string(e.Interval)
	}
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError builds an *Error stamped with the current time.
func NewError(kind error, op string, sym Symbol, interval Interval, cause error) *Error {
	return &Error{Kind: kind, Op: op, Symbol: sym, Interval: interval, At: time.Now().UTC(), Err: cause}
}

// Errorf is NewError with a formatted cause.
func Errorf(kind error, op string, sym Symbol, interval Interval, format string, args ...any) *Error {
	return NewError(kind, op, sym, interval, fmt.Errorf(format, args...))
}

// KindOf returns the first known kind err wraps, or nil.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) && e.Kind != nil {
		return e.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// IsTransient reports whether err may succeed later and allows cache fallback.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrNetwork)
}
