package integrations

import (
	"context"
	"testing"
	"time"

	"github.com/chxlky/trello-quickcard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventForCard(t *testing.T) {
	due := time.Date(2026, 12, 31, 15, 0, 0, 0, time.UTC)
	req := models.CardRequest{Title: "Ship v2", Description: "notes", ListID: "L1", DueDate: &due}

	event := eventForCard(req, models.CardResult{ID: "C1", URL: "https://board/c/C1"})
	require.NotNil(t, event)
	assert.Equal(t, "Ship v2", event.Summary)
	assert.Equal(t, "Trello Card: https://board/c/C1", event.Description)
	assert.Equal(t, "2026-12-31", event.Start.Date)
	assert.Equal(t, "2027-01-01", event.End.Date)
}

func TestEventForCardWithoutDueDate(t *testing.T) {
	assert.Nil(t, eventForCard(models.CardRequest{Title: "x"}, models.CardResult{ID: "C1"}))
}

func TestNewCalendarClientNeedsCalendarID(t *testing.T) {
	_, err := NewCalendarClient(context.Background(), []byte(`{}`), "")
	assert.Error(t, err)
}
