package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"starreign.ai/internal/sim/tuning"
)

// Attempt records one provider call made by a Chain.
type Attempt struct {
	Provider string
	Err      error
}

// Chain tries providers in order until one answers.
type Chain struct {
	providers []Provider
	log       *slog.Logger
}

func NewChain(log *slog.Logger, providers ...Provider) *Chain {
	if log == nil {
		log = slog.Default()
	}
	return &Chain{providers: providers, log: log}
}

// FromConfig builds a Client per configured provider. Keys come from the
// environment variable each entry names.
func FromConfig(cfgs []tuning.Provider, log *slog.Logger) (*Chain, error) {
	ps := make([]Provider, 0, len(cfgs))
	for _, pc := range cfgs {
		key := ""
		if pc.APIKeyEnv != "" {
			key = os.Getenv(pc.APIKeyEnv)
		}
		c, err := New(pc, key)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", pc.Name, err)
		}
		ps = append(ps, c)
	}
	return NewChain(log, ps...), nil
}

func (c *Chain) Len() int { return len(c.providers) }

// Gate is consulted before every provider call; a denial ends the walk.
type Gate func(provider string) (ok bool, reason string)

func (c *Chain) Complete(ctx context.Context, req Request) (Response, []Attempt, error) {
	return c.CompleteGated(ctx, req, nil)
}

// CompleteGated walks the failover chain. A cancelled ctx stops the walk
// before the next provider is tried. The returned error is the last failure.
func (c *Chain) CompleteGated(ctx context.Context, req Request, gate Gate) (Response, []Attempt, error) {
	if len(c.providers) == 0 {
		return Response{}, nil, fmt.Errorf("%w: no providers configured", ErrUnavailable)
	}
	var attempts []Attempt
	var last error
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			if last == nil {
				last = classifyTransport(err)
			}
			break
		}
		if gate != nil {
			if ok, reason := gate(p.Name()); !ok {
				if last == nil {
					last = fmt.Errorf("%w: %s", ErrDenied, reason)
				}
				break
			}
		}
		resp, err := p.Complete(ctx, req)
		attempts = append(attempts, Attempt{Provider: p.Name(), Err: err})
		if err == nil {
			return resp, attempts, nil
		}
		last = err
		c.log.Warn("provider failed", "provider", p.Name(), "reason", Reason(err), "error", err)
	}
	if last == nil {
		last = ErrUnavailable
	}
	return Response{}, attempts, last
}

// AllFailedWith reports whether every attempt failed with the given class.
func AllFailedWith(attempts []Attempt, class error) bool {
	if len(attempts) == 0 {
		return false
	}
	for _, a := range attempts {
		if a.Err == nil || !errors.Is(a.Err, class) {
			return false
		}
	}
	return true
}
