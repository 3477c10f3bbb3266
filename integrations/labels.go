package integrations

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// attachLabels adds labels one at a time, waiting delay between calls. Failures
// are logged and returned; they never fail the card.
func attachLabels(ctx context.Context, cardID string, labelIDs []string, delay time.Duration, add func(context.Context, string) error) []string {
	limiter := rate.NewLimiter(rate.Every(delay), 1)

	var failed []string
	for i, labelID := range labelIDs {
		if err := limiter.Wait(ctx); err != nil {
			zap.L().Warn("Stopped attaching labels", zap.String("cardID", cardID), zap.Error(err))
			return append(failed, labelIDs[i:]...)
		}
		if err := add(ctx, labelID); err != nil {
			zap.L().Warn("Failed to attach label to card",
				zap.String("cardID", cardID),
				zap.String("labelID", labelID),
				zap.Error(err),
			)
			failed = append(failed, labelID)
			continue
		}
		zap.L().Debug("Attached label to card", zap.String("cardID", cardID), zap.String("labelID", labelID))
	}
	return failed
}
