// Package retry runs calls to external services under an explicit backoff policy.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// Policy configures retries around blocking calls to the dialogue service and
// the LLM backends. A disabled policy runs each call exactly once.
type Policy struct {
	Enabled         bool          `mapstructure:"enabled" yaml:"enabled"`
	MaxAttempts     int           `mapstructure:"max-attempts" yaml:"max-attempts"`
	InitialInterval time.Duration `mapstructure:"initial-interval" yaml:"initial-interval"`
	MaxInterval     time.Duration `mapstructure:"max-interval" yaml:"max-interval"`
	Multiplier      float64       `mapstructure:"multiplier" yaml:"multiplier"`
}

func DefaultPolicy() Policy {
	return Policy{
		Enabled:         false,
		MaxAttempts:     3,
		InitialInterval: time.Second,
		MaxInterval:     40 * time.Second,
		Multiplier:      2.0,
	}
}

// Permanent marks err so that it is returned without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do calls op until it succeeds, returns a permanent error, or the policy gives up.
func Do(ctx context.Context, p Policy, op func() error) error {
	if !p.Enabled || p.MaxAttempts <= 1 {
		return unwrapPermanent(op())
	}

	eb := backoff.NewExponentialBackOff()
	def := DefaultPolicy()
	eb.InitialInterval = orDuration(p.InitialInterval, def.InitialInterval)
	eb.MaxInterval = orDuration(p.MaxInterval, def.MaxInterval)
	if p.Multiplier > 0 {
		eb.Multiplier = p.Multiplier
	}
	eb.MaxElapsedTime = 0

	attempt := 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1)), ctx)
	return backoff.RetryNotify(func() error {
		attempt++
		return op()
	}, b, func(err error, wait time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("call failed, retrying")
	})
}

func unwrapPermanent(err error) error {
	if pe, ok := err.(*backoff.PermanentError); ok {
		return pe.Err
	}
	return err
}

func orDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
