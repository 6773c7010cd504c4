package nauta

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
	"time"
)

// RetryConfig is a fixed-interval retry policy: no exponential growth, no jitter.
type RetryConfig struct {
	MaxAttempts int           // Total attempts, the first one included
	Delay       time.Duration // Wait between two attempts

	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryConfig returns the logout retry policy described by cfg.
func NewRetryConfig(cfg *Config) RetryConfig {
	return RetryConfig{
		MaxAttempts: cfg.LogoutAttempts,
		Delay:       cfg.LogoutBackoff,
	}
}

// RetryState tracks the state of retry attempts
type RetryState struct {
	Attempts     int           // Number of attempts made
	LastError    error         // Most recent error encountered
	TotalDelayed time.Duration // Cumulative time spent waiting between attempts
}

// ErrorCategory classifies errors for retry decisions
type ErrorCategory int

const (
	ErrCategoryFatal     ErrorCategory = iota // Gateway answers, cancellation, unknown errors
	ErrCategoryRetryable                      // Transport failures (timeout, reset, refused, DNS)
)

// ClassifyError determines whether err is worth another attempt.
func ClassifyError(err error) ErrorCategory {
	if err == nil {
		return ErrCategoryFatal
	}

	// The user gave up; never retry past that.
	if errors.Is(err, context.Canceled) {
		return ErrCategoryFatal
	}

	// Anything the gateway actually answered is final.
	var (
		logoutErr   *LogoutError
		protocolErr *ProtocolError
		loginErr    *LoginError
	)
	if errors.As(err, &logoutErr) || errors.As(err, &protocolErr) || errors.As(err, &loginErr) {
		return ErrCategoryFatal
	}

	if IsNetworkError(err) {
		return ErrCategoryRetryable
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrCategoryRetryable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrCategoryRetryable
	}

	var sysErr syscall.Errno
	if errors.As(err, &sysErr) && isTransientErrno(sysErr) {
		return ErrCategoryRetryable
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection reset",
		"connection refused",
		"broken pipe",
		"timeout",
		"temporary failure",
		"no such host",
		"network is unreachable",
	} {
		if strings.Contains(errStr, pattern) {
			return ErrCategoryRetryable
		}
	}

	return ErrCategoryFatal
}

// Windows socket error codes (WSAE*); Go's POSIX-style names carry
// different invented values on Windows.
const (
	wsaenetdown     syscall.Errno = 10050
	wsaenetunreach  syscall.Errno = 10051
	wsaenetreset    syscall.Errno = 10052
	wsaeconnaborted syscall.Errno = 10053
	wsaeconnreset   syscall.Errno = 10054
	wsaetimedout    syscall.Errno = 10060
	wsaeconnrefused syscall.Errno = 10061
	wsaehostunreach syscall.Errno = 10065
)

func isTransientErrno(errno syscall.Errno) bool {
	switch errno {
	case syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED,
		syscall.ETIMEDOUT, syscall.ENETUNREACH, syscall.EHOSTUNREACH,
		syscall.EPIPE,
		wsaenetdown, wsaenetunreach, wsaenetreset, wsaeconnaborted,
		wsaeconnreset, wsaetimedout, wsaeconnrefused, wsaehostunreach:
		return true
	}
	return false
}

// ShouldRetry reports whether another attempt may follow the one that
// just failed with err.
func (c *RetryConfig) ShouldRetry(state *RetryState, err error) bool {
	if ClassifyError(err) == ErrCategoryFatal {
		return false
	}
	return state.Attempts < c.MaxAttempts
}

// WaitForRetry blocks for the fixed delay or until ctx is done.
func (c *RetryConfig) WaitForRetry(ctx context.Context, state *RetryState) error {
	sleep := c.sleep
	if sleep == nil {
		sleep = sleepContext
	}
	if err := sleep(ctx, c.Delay); err != nil {
		return err
	}
	state.TotalDelayed += c.Delay
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
