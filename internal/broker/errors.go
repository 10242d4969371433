package broker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies gateway failures for the retry policy.
type ErrorKind int

const (
	// KindTransient covers network hiccups worth a backoff retry.
	KindTransient ErrorKind = iota
	// KindRateLimited means the broker throttled us; retry with backoff.
	KindRateLimited
	// KindAuthExpired means the access token lapsed; refresh once, then retry.
	KindAuthExpired
	// KindPermanent means the request itself is malformed; never retry.
	KindPermanent
	// KindNotFound means the data does not exist; treated as "cannot
	// resolve" upstream, never retried.
	KindNotFound
)

// GatewayError wraps a broker failure with its classification.
type GatewayError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// wrapError classifies a raw broker error by inspecting the Kite Connect
// exception name carried in its message.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &GatewayError{Kind: classify(err), Op: op, Err: err}
}

func classify(err error) ErrorKind {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "tokenexception"),
		strings.Contains(msg, "access_token"),
		strings.Contains(msg, "session expired"),
		strings.Contains(msg, "not authenticated"):
		return KindAuthExpired
	case strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "429"):
		return KindRateLimited
	case strings.Contains(msg, "inputexception"),
		strings.Contains(msg, "bad request"),
		strings.Contains(msg, "invalid"):
		return KindPermanent
	case strings.Contains(msg, "not found"),
		strings.Contains(msg, "no data"),
		strings.Contains(msg, "dataexception"):
		return KindNotFound
	default:
		return KindTransient
	}
}

func kindOf(err error) (ErrorKind, bool) {
	var gerr *GatewayError
	if errors.As(err, &gerr) {
		return gerr.Kind, true
	}
	return 0, false
}

// IsRetryable reports whether the error is worth another attempt with backoff.
func IsRetryable(err error) bool {
	kind, ok := kindOf(err)
	if !ok {
		return true
	}
	return kind == KindTransient || kind == KindRateLimited
}

// IsAuthExpired reports whether the error indicates an expired session.
func IsAuthExpired(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindAuthExpired
}

// IsNotFound reports whether the error indicates missing data.
func IsNotFound(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindNotFound
}

// IsPermanent reports whether the error must never be retried.
func IsPermanent(err error) bool {
	kind, ok := kindOf(err)
	return ok && (kind == KindPermanent || kind == KindNotFound)
}
