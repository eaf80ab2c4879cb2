package resilience

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// Outcome tells the executor whether to try again and whether the failure counts
// against the breaker.
type Outcome struct {
	Retry  bool
	Breaks bool
}

type Classifier func(err error) Outcome

// Permanent never retries but still trips the breaker.
func Permanent(error) Outcome {
	return Outcome{Retry: false, Breaks: true}
}

// Transient retries network-level failures: timeouts, refused or reset connections
// and unexpected EOFs. Caller cancellation is neither retried nor held against the dependency.
func Transient(err error) Outcome {
	switch {
	case err == nil:
		return Outcome{}
	case errors.Is(err, context.Canceled):
		return Outcome{}
	case errors.Is(err, context.DeadlineExceeded):
		return Outcome{Retry: true, Breaks: true}
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return Outcome{Retry: true, Breaks: true}
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return Outcome{Retry: true, Breaks: true}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Outcome{Retry: netErr.Timeout(), Breaks: true}
	}
	return Permanent(err)
}
