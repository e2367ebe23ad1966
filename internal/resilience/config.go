package resilience

import (
	"time"

	"github.com/sells-group/aid/internal/config"
)

// FromConfig converts configured values to retry and breaker settings.
// Zero values fall back to the defaults.
func FromConfig(cfg config.ResilienceConfig) (RetryConfig, CircuitBreakerConfig) {
	retry := DefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialBackoffMs > 0 {
		retry.InitialBackoff = time.Duration(cfg.InitialBackoffMs) * time.Millisecond
	}
	if cfg.MaxBackoffMs > 0 {
		retry.MaxBackoff = time.Duration(cfg.MaxBackoffMs) * time.Millisecond
	}
	if cfg.Multiplier > 0 {
		retry.Multiplier = cfg.Multiplier
	}
	if cfg.JitterFraction >= 0 {
		retry.JitterFraction = cfg.JitterFraction
	}

	breaker := DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold > 0 {
		breaker.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.ResetTimeoutSecs > 0 {
		breaker.ResetTimeout = time.Duration(cfg.ResetTimeoutSecs) * time.Second
	}
	return retry, breaker
}
