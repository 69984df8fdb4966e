// Package fallback runs an ordered list of producers, falling through to the
// next one only when a producer reports a provider failure.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrExhausted is returned when every producer in a chain failed.
var ErrExhausted = errors.New("all providers failed")

// Producer turns an input into an artifact.
type Producer[In, Out any] interface {
	Name() string
	Produce(ctx context.Context, in In) (Out, error)
}

// ProviderError marks a failure of one provider that the chain may recover
// from by trying the next producer.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Wrap tags err as a provider failure. A nil err stays nil.
func Wrap(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}

// Errorf builds a provider failure from a format string.
func Errorf(provider, format string, args ...any) error {
	return &ProviderError{Provider: provider, Err: fmt.Errorf(format, args...)}
}

// Func adapts a plain function into a Producer.
type Func[In, Out any] struct {
	ProviderName string
	Fn           func(ctx context.Context, in In) (Out, error)
}

func (f Func[In, Out]) Name() string { return f.ProviderName }

func (f Func[In, Out]) Produce(ctx context.Context, in In) (Out, error) {
	return f.Fn(ctx, in)
}

// Chain tries producers in priority order.
type Chain[In, Out any] struct {
	producers []Producer[In, Out]

	// OnFallback is called after a producer failed and before the next one runs.
	OnFallback func(provider string, err error)
}

func NewChain[In, Out any](producers ...Producer[In, Out]) *Chain[In, Out] {
	return &Chain[In, Out]{producers: producers}
}

// Names lists the producers in the order they are tried.
func (c *Chain[In, Out]) Names() []string {
	names := make([]string, 0, len(c.producers))
	for _, p := range c.producers {
		names = append(names, p.Name())
	}
	return names
}

// Run returns the first successful artifact together with the name of the
// producer that made it. A non-provider error aborts the chain immediately.
func (c *Chain[In, Out]) Run(ctx context.Context, in In) (Out, string, error) {
	var zero Out
	var failures []string

	for _, p := range c.producers {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}

		out, err := p.Produce(ctx, in)
		if err == nil {
			return out, p.Name(), nil
		}

		var perr *ProviderError
		if !errors.As(err, &perr) {
			return zero, p.Name(), fmt.Errorf("%s: %w", p.Name(), err)
		}

		failures = append(failures, perr.Error())
		if c.OnFallback != nil {
			c.OnFallback(p.Name(), err)
		}
	}

	if len(failures) == 0 {
		return zero, "", fmt.Errorf("%w: no providers configured", ErrExhausted)
	}
	return zero, "", fmt.Errorf("%w: %s", ErrExhausted, strings.Join(failures, "; "))
}
