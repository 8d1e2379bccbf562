package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstream matches every *UpstreamError via errors.Is.
	ErrUpstream = errors.New("upstream unavailable")

	// ErrNoRecord means the payload had no record for a currency against UAH.
	ErrNoRecord = errors.New("no matching rate record")

	// ErrRateLimited is returned when the upstream answers 429.
	ErrRateLimited = errors.New("rate limited")
)

// UpstreamError is returned when a provider cannot produce rates: the HTTP
// call failed, timed out, returned non-2xx or the payload did not parse.
type UpstreamError struct {
	Provider ID
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// Upstream wraps err for provider id unless it already is an UpstreamError.
func Upstream(id ID, err error) error {
	if err == nil {
		return nil
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return &UpstreamError{Provider: id, Err: err}
}
