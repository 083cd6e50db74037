/*
Package queue implements the concurrency-bounded task queue: priority
dispatch to executor adapters, lifecycle state transitions, and the retry
policy applied to failed tasks.
*/
package queue

import (
	"math"
	"strings"
	"time"

	"github.com/josephgoksu/AgentWing/internal/config"
	"github.com/josephgoksu/AgentWing/types"
)

// Retry policies.
const (
	PolicyNone        = "none"
	PolicyLinear      = "linear"
	PolicyExponential = "exponential"
)

// RetryPolicy decides whether and when a failed task runs again. Decide is a
// pure function: no clock, no side effects, testable without a queue or
// executor.
type RetryPolicy struct {
	Policy            string
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	// RetryableErrors is a substring allow-list. Empty means any error is
	// retryable; opting out of retries entirely requires PolicyNone.
	RetryableErrors []string
}

// DefaultRetryPolicy returns the stock policy from the config defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Policy:            config.DefaultRetryPolicy,
		MaxRetries:        config.DefaultMaxRetries,
		InitialDelay:      time.Duration(config.DefaultInitialDelayMs) * time.Millisecond,
		MaxDelay:          time.Duration(config.DefaultMaxDelayMs) * time.Millisecond,
		BackoffMultiplier: config.DefaultBackoffMultiplier,
	}
}

// PolicyFromConfig builds a policy from config, filling zero fields with
// defaults. A nil config yields the default policy.
func PolicyFromConfig(cfg *types.RetryConfig) RetryPolicy {
	p := DefaultRetryPolicy()
	if cfg == nil {
		return p
	}
	if cfg.Policy != "" {
		p.Policy = cfg.Policy
	}
	if cfg.MaxRetries > 0 {
		p.MaxRetries = cfg.MaxRetries
	}
	if cfg.InitialDelayMs > 0 {
		p.InitialDelay = time.Duration(cfg.InitialDelayMs) * time.Millisecond
	}
	if cfg.MaxDelayMs > 0 {
		p.MaxDelay = time.Duration(cfg.MaxDelayMs) * time.Millisecond
	}
	if cfg.BackoffMultiplier > 1 {
		p.BackoffMultiplier = cfg.BackoffMultiplier
	}
	if len(cfg.RetryableErrors) > 0 {
		p.RetryableErrors = append([]string(nil), cfg.RetryableErrors...)
	}
	return p
}

// Decide returns whether a retry should be scheduled after the given
// zero-based attempt index (completed attempts before the one about to be
// scheduled) and the delay before it.
func (p RetryPolicy) Decide(attempt int, err error) (bool, time.Duration) {
	if p.Policy == PolicyNone || p.Policy == "" {
		return false, 0
	}
	if attempt >= p.MaxRetries {
		return false, 0
	}
	if len(p.RetryableErrors) > 0 {
		if err == nil {
			return false, 0
		}
		msg := err.Error()
		matched := false
		for _, s := range p.RetryableErrors {
			if strings.Contains(msg, s) {
				matched = true
				break
			}
		}
		if !matched {
			return false, 0
		}
	}

	delay := p.InitialDelay
	if p.Policy == PolicyExponential {
		delay = time.Duration(float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt)))
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return true, delay
}
