package integrations

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/chxlky/trello-quickcard/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultReadTimeout  = 15 * time.Second
	DefaultWriteTimeout = 30 * time.Second
)

type ClientOption func(*ResilientClient)

// WithTimeouts sets the per-attempt timeouts for reads and for createCard.
func WithTimeouts(read, write time.Duration) ClientOption {
	return func(c *ResilientClient) {
		if read > 0 {
			c.readTimeout = read
		}
		if write > 0 {
			c.writeTimeout = write
		}
	}
}

// WithRateLimitRetry retries an attempt that was rate limited, backing off from
// delay, before moving on to the next strategy. attempts includes the first try.
func WithRateLimitRetry(attempts uint, delay time.Duration) ClientOption {
	return func(c *ResilientClient) {
		c.retryAttempts = attempts
		c.retryDelay = delay
	}
}

// ResilientClient runs every operation over an ordered list of strategies,
// moving on when one fails and remembering the last one that worked.
type ResilientClient struct {
	strategies    []Strategy
	readTimeout   time.Duration
	writeTimeout  time.Duration
	retryAttempts uint
	retryDelay    time.Duration

	mu        sync.Mutex
	preferred string
}

func NewResilientClient(strategies []Strategy, opts ...ClientOption) *ResilientClient {
	c := &ResilientClient{
		strategies:   strategies,
		readTimeout:  DefaultReadTimeout,
		writeTimeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Preferred is the strategy that succeeded most recently, or "" before any success.
func (c *ResilientClient) Preferred() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preferred
}

// Order lists strategy names in the order the next read will try them.
func (c *ResilientClient) Order() []string {
	return names(c.readOrder())
}

// WriteOrder lists the strategies createCard will try, in order.
func (c *ResilientClient) WriteOrder() []string {
	return names(c.writeOrder())
}

func (c *ResilientClient) remember(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.preferred != name {
		zap.L().Debug("Preferred transport changed", zap.String("from", c.preferred), zap.String("to", name))
	}
	c.preferred = name
}

func (c *ResilientClient) readOrder() []Strategy {
	preferred := c.Preferred()

	order := make([]Strategy, 0, len(c.strategies))
	for _, s := range c.strategies {
		if s.Name() == preferred {
			order = append(order, s)
		}
	}
	for _, s := range c.strategies {
		if s.Name() != preferred {
			order = append(order, s)
		}
	}
	return order
}

// writeOrder keeps only mutation-capable strategies; those that prefer
// mutations go first regardless of the sticky hint.
func (c *ResilientClient) writeOrder() []Strategy {
	var first, rest []Strategy
	for _, s := range c.readOrder() {
		caps := s.Capabilities()
		switch {
		case !caps.Mutations:
		case caps.PreferForMutations:
			first = append(first, s)
		default:
			rest = append(rest, s)
		}
	}
	return append(first, rest...)
}

func (c *ResilientClient) ValidateCredentials(ctx context.Context, creds models.Credentials) (*models.Member, error) {
	return attempt(ctx, c, OpValidate, creds, c.readOrder(), c.readTimeout, func(ctx context.Context, s Strategy) (*models.Member, error) {
		return s.ValidateCredentials(ctx, creds)
	})
}

func (c *ResilientClient) ListBoards(ctx context.Context, creds models.Credentials) ([]models.Board, error) {
	return attempt(ctx, c, OpBoards, creds, c.readOrder(), c.readTimeout, func(ctx context.Context, s Strategy) ([]models.Board, error) {
		return s.ListBoards(ctx, creds)
	})
}

func (c *ResilientClient) ListLists(ctx context.Context, creds models.Credentials, boardID string) ([]models.List, error) {
	return attempt(ctx, c, OpLists, creds, c.readOrder(), c.readTimeout, func(ctx context.Context, s Strategy) ([]models.List, error) {
		return s.ListLists(ctx, creds, boardID)
	})
}

func (c *ResilientClient) ListLabels(ctx context.Context, creds models.Credentials, boardID string) ([]models.Label, error) {
	return attempt(ctx, c, OpLabels, creds, c.readOrder(), c.readTimeout, func(ctx context.Context, s Strategy) ([]models.Label, error) {
		return s.ListLabels(ctx, creds, boardID)
	})
}

func (c *ResilientClient) ListMembers(ctx context.Context, creds models.Credentials, boardID string) ([]models.Member, error) {
	return attempt(ctx, c, OpMembers, creds, c.readOrder(), c.readTimeout, func(ctx context.Context, s Strategy) ([]models.Member, error) {
		return s.ListMembers(ctx, creds, boardID)
	})
}

// CreateCard creates the card on the first mutation-capable strategy that
// succeeds. Labels are attached best-effort; the card exists even when some of
// them are listed in FailedLabelIDs.
func (c *ResilientClient) CreateCard(ctx context.Context, creds models.Credentials, req models.CardRequest) (*models.CardResult, error) {
	if !creds.Complete() {
		return nil, missingCredentials(OpCreateCard)
	}
	if err := req.Validate(); err != nil {
		return nil, &Error{Kind: KindInvalidCard, Op: OpCreateCard, Message: err.Error(), Err: err}
	}

	order := c.writeOrder()
	if len(order) == 0 {
		return nil, &Error{Kind: KindCreateUnsupported, Op: OpCreateCard}
	}

	card, err := attempt(ctx, c, OpCreateCard, creds, order, c.writeTimeout, func(ctx context.Context, s Strategy) (*models.CardResult, error) {
		return s.CreateCard(ctx, creds, req)
	})
	if err != nil {
		return nil, err
	}
	if len(card.FailedLabelIDs) > 0 {
		zap.L().Warn("Card created but some labels were not attached",
			zap.String("cardID", card.ID),
			zap.Strings("labelIDs", card.FailedLabelIDs),
		)
	}
	return card, nil
}

func missingCredentials(op string) *Error {
	return &Error{Kind: KindInvalidCredentials, Op: op, Message: "API key and token are required"}
}

func names(strategies []Strategy) []string {
	out := make([]string, len(strategies))
	for i, s := range strategies {
		out[i] = s.Name()
	}
	return out
}

// attempt tries order until one strategy succeeds. With a single attempt the
// specific error comes back unchanged; otherwise failures collapse into an
// AggregatedError carrying the last cause.
func attempt[T any](ctx context.Context, c *ResilientClient, op string, creds models.Credentials, order []Strategy, timeout time.Duration, call func(context.Context, Strategy) (T, error)) (T, error) {
	var zero T
	if !creds.Complete() {
		return zero, missingCredentials(op)
	}

	var (
		attempted []string
		last      error
	)
	for _, s := range order {
		if err := ctx.Err(); err != nil {
			if last == nil {
				last = transportError(op, "", err)
			}
			break
		}

		attempted = append(attempted, s.Name())
		res, err := tryStrategy(ctx, c, s, op, timeout, call)
		observeAttempt(s.Name(), op, err)
		if err == nil {
			c.remember(s.Name())
			return res, nil
		}

		zap.L().Warn("Transport strategy failed",
			zap.String("operation", op),
			zap.String("strategy", s.Name()),
			zap.String("credentials", creds.Masked()),
			zap.Error(err),
		)
		last = err
	}

	if len(attempted) <= 1 {
		if last == nil {
			last = transportError(op, "", errors.New("no transport strategies configured"))
		}
		return zero, last
	}

	agg := &AggregatedError{Op: op, Attempts: attempted, Last: last}
	zap.L().Error("All transport strategies failed", zap.String("operation", op), zap.Strings("attempted", attempted), zap.Error(last))
	return zero, agg
}

func tryStrategy[T any](ctx context.Context, c *ResilientClient, s Strategy, op string, timeout time.Duration, call func(context.Context, Strategy) (T, error)) (T, error) {
	var res T
	run := func() error {
		actx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		r, err := call(actx, s)
		if err != nil {
			return err
		}
		res = r
		return nil
	}

	var err error
	if c.retryAttempts > 1 {
		err = retry.Do(run,
			retry.Attempts(c.retryAttempts),
			retry.Delay(c.retryDelay),
			retry.DelayType(retry.BackOffDelay),
			retry.RetryIf(func(err error) bool { return errors.Is(err, ErrRateLimited) }),
			retry.OnRetry(func(n uint, err error) {
				zap.L().Info("Rate limited, retrying", zap.String("strategy", s.Name()), zap.Uint("attempt", n+1))
			}),
			retry.LastErrorOnly(true),
			retry.Context(ctx),
		)
	} else {
		err = run()
	}

	if err == nil {
		return res, nil
	}
	if _, ok := kindOf(err); !ok {
		err = transportError(op, s.Name(), err)
	}
	var zero T
	return zero, err
}
