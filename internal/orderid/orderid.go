// Package orderid allocates the six-digit numbers customers see as their order ID.
package orderid

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"

	"bookshop/internal/model"

	"github.com/rs/zerolog"
)

const (
	minID = 100000
	maxID = 999999

	// DefaultMaxAttempts is how many candidates are tried before giving up.
	DefaultMaxAttempts = 10
)

// ExistenceChecker reports whether an order ID is already in use.
type ExistenceChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Generator produces order IDs that are not yet stored.
type Generator interface {
	Generate(ctx context.Context) (string, error)
}

type generator struct {
	checker     ExistenceChecker
	maxAttempts int
	intn        func(n int) int
	logger      zerolog.Logger
}

// Option configures a Generator.
type Option func(*generator)

// WithMaxAttempts overrides the retry budget.
func WithMaxAttempts(n int) Option {
	return func(g *generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithRandom overrides the candidate source. intn must return a value in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(g *generator) {
		g.intn = intn
	}
}

// NewGenerator creates a Generator that checks candidates against storage.
func NewGenerator(checker ExistenceChecker, logger zerolog.Logger, opts ...Option) Generator {
	g := &generator{
		checker:     checker,
		maxAttempts: DefaultMaxAttempts,
		intn:        rand.IntN,
		logger:      logger.With().Str("component", "order-id").Logger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate draws random candidates in [100000, 999999] until one is unused.
// Storage errors abort immediately; an exhausted budget returns ErrOrderIDExhausted.
func (g *generator) Generate(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		candidate := strconv.Itoa(minID + g.intn(maxID-minID+1))

		exists, err := g.checker.Exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check order id: %w", err)
		}
		if !exists {
			return candidate, nil
		}

		g.logger.Debug().
			Str("candidate", candidate).
			Int("attempt", attempt).
			Msg("order id collision")
	}

	g.logger.Error().Int("attempts", g.maxAttempts).Msg("order id allocation exhausted")
	return "", model.ErrOrderIDExhausted
}
