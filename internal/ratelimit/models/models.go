// Package models holds the rate limit result and policy types.
package models

import "time"

// Policy is a sliding-window budget: at most Limit requests per Window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Result is the outcome of one limit check.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// Key builds the bucket key for a scope and subject.
func Key(scope, subject string) string {
	return "ratelimit:" + scope + ":" + subject
}
