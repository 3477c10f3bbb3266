package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/chxlky/trello-quickcard/database"
	"github.com/chxlky/trello-quickcard/history"
	"github.com/chxlky/trello-quickcard/integrations"
	"github.com/chxlky/trello-quickcard/internal/config"
	"github.com/chxlky/trello-quickcard/session"
	"go.uber.org/zap"
)

// selectedBoardKey remembers the last board picked with `board <id>` between
// invocations.
const selectedBoardKey = "selectedBoard"

// buildStrategies turns the configured names into strategies, in order.
// The relay is skipped when no relay URL is configured.
func buildStrategies(c *config.Config) ([]integrations.Strategy, error) {
	var strategies []integrations.Strategy
	seen := make(map[string]bool)

	for _, raw := range c.Trello.Strategies {
		name := strings.ToLower(strings.TrimSpace(raw))
		if seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case integrations.StrategyDirect:
			strategies = append(strategies, integrations.NewTrelloClient(c.Trello.BaseURL, c.Trello.Labels.Delay))
		case integrations.StrategyCallback:
			strategies = append(strategies, integrations.NewCallbackClient(c.Trello.BaseURL, 0))
		case integrations.StrategyProxy:
			strategies = append(strategies, integrations.NewProxyClient(c.Trello.BaseURL, c.Proxy.URL))
		case integrations.StrategyRelay:
			if c.Relay.URL == "" {
				zap.L().Debug("Relay strategy configured without relay.url, skipping")
				continue
			}
			strategies = append(strategies, integrations.NewRelayClient(c.Relay.URL))
		default:
			return nil, fmt.Errorf("unknown transport strategy %q", raw)
		}
	}

	if len(strategies) == 0 {
		return nil, fmt.Errorf("no usable transport strategy configured")
	}
	return strategies, nil
}

func newClient(c *config.Config) (*integrations.ResilientClient, error) {
	strategies, err := buildStrategies(c)
	if err != nil {
		return nil, err
	}

	opts := []integrations.ClientOption{
		integrations.WithTimeouts(c.Trello.Timeouts.Read, c.Trello.Timeouts.Write),
	}
	if c.Trello.Retry.RateLimited {
		opts = append(opts, integrations.WithRateLimitRetry(c.Trello.Retry.Attempts, c.Trello.Retry.Delay))
	}
	return integrations.NewResilientClient(strategies, opts...), nil
}

func observers(ctx context.Context, c *config.Config) []session.CardObserver {
	if !c.Google.Enabled() {
		return nil
	}

	raw, err := c.Google.ServiceAccountJSON()
	if err != nil {
		zap.L().Warn("Invalid Google service account, calendar mirror disabled", zap.Error(err))
		return nil
	}
	cal, err := integrations.NewCalendarClient(ctx, raw, c.Google.Calendar.CalendarID)
	if err != nil {
		zap.L().Warn("Failed to initialise Google Calendar client, calendar mirror disabled", zap.Error(err))
		return nil
	}
	zap.L().Debug("Google Calendar mirror enabled")
	return []session.CardObserver{cal}
}

// app bundles what the card commands need for one invocation.
type app struct {
	store   database.Store
	session *session.Session
}

func openApp(ctx context.Context) (*app, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	store, err := database.Open(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	ledger := history.NewLedger(store, history.WithLimit(cfg.History.Limit))
	s := session.New(client, store, ledger, observers(ctx, cfg)...)
	return &app{store: store, session: s}, nil
}

// requireConnection restores persisted credentials or fails.
func (a *app) requireConnection() error {
	ok, err := a.session.Restore()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: run `%s connect` first", session.ErrNotConnected, AppName)
	}
	return nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		zap.L().Error("Error closing store", zap.Error(err))
	}
}
