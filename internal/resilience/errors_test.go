package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"ollama overloaded", NewTransientError(errors.New("ollama: server busy"), 503), true},
		{"wrapped rate limit", fmt.Errorf("embed batch: %w", NewTransientError(errors.New("rate limited"), 429)), true},
		{"bad request", errors.New("completions: unknown model gpt2-medium"), false},
		{"connection reset", fmt.Errorf("read tcp: %w", syscall.ECONNRESET), true},
		{"connection refused", fmt.Errorf("dial tcp 127.0.0.1:11434: %w", syscall.ECONNREFUSED), true},
		{"connection aborted", fmt.Errorf("write tcp: %w", syscall.ECONNABORTED), true},
		{"dns timeout", &net.DNSError{IsTimeout: true, Err: "timeout", Name: "llm.internal"}, true},
		{"broken pipe text", errors.New("write: broken pipe"), true},
		{"tls handshake text", errors.New("net/http: TLS handshake timeout"), true},
		{"idle connection text", errors.New("http: server closed idle connection"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransient_ContextErrorsNeverRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"canceled", context.Canceled},
		{"deadline", context.DeadlineExceeded},
		{"wrapped canceled", fmt.Errorf("embed: %w", context.Canceled)},
		{"transient wrapping canceled", NewTransientError(context.Canceled, 503)},
		{"transient wrapping deadline", NewTransientError(fmt.Errorf("completions: %w", context.DeadlineExceeded), 504)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if IsTransient(tt.err) {
				t.Errorf("IsTransient(%v) = true, want false", tt.err)
			}
		})
	}
}

func TestIsTransient_UnknownHostNotRetried(t *testing.T) {
	err := fmt.Errorf("ollama: embed: %w", &net.DNSError{Err: "no such host", Name: "ollama.invalid", IsNotFound: true})
	if IsTransient(err) {
		t.Error("a host that does not resolve is a configuration error, not transient")
	}

	var calls int
	_, err = DoVal(context.Background(), fastRetry(4), func(context.Context) ([][]float64, error) {
		calls++
		return nil, errors.New("dial tcp: lookup ollama.invalid: no such host")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call for an unknown host, got %d", calls)
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("HTTP %d should be transient", code)
		}
	}
	for _, code := range []int{200, 400, 401, 403, 404, 413, 422, 501} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("HTTP %d should not be transient", code)
		}
	}
}

func TestTransientError(t *testing.T) {
	inner := errors.New("completions: upstream 502")
	te := NewTransientError(inner, 502)

	if !errors.Is(te, inner) {
		t.Error("TransientError should unwrap to its cause")
	}
	if te.Error() != inner.Error() {
		t.Errorf("Error() = %q, want %q", te.Error(), inner.Error())
	}
	if te.StatusCode != 502 {
		t.Errorf("StatusCode = %d, want 502", te.StatusCode)
	}
}
