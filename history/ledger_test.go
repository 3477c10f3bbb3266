package history

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/chxlky/trello-quickcard/database"
	"github.com/chxlky/trello-quickcard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tickingClock() func() time.Time {
	t := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func shipV2() models.CardRequest {
	return models.CardRequest{Title: "Ship v2", Description: "Write release notes", ListID: "L1", LabelIDs: []string{}}
}

func TestLedgerRecordSuccess(t *testing.T) {
	l := NewLedger(database.NewMemory(), WithClock(tickingClock()))

	entry, err := l.RecordSuccess(shipV2(), models.CardResult{ID: "C1", URL: "https://board/c/C1"})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)

	entries, err := l.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	newest := entries[0]
	assert.Equal(t, "Ship v2", newest.Title)
	assert.Equal(t, "Write release notes", newest.Description)
	assert.Equal(t, "L1", newest.ListID)
	assert.Equal(t, models.StatusSuccess, newest.Status)
	assert.Equal(t, "C1", newest.CardID)
	assert.Equal(t, "https://board/c/C1", newest.CardURL)
	assert.Empty(t, newest.Error)
}

func TestLedgerRecordFailure(t *testing.T) {
	l := NewLedger(database.NewMemory())

	_, err := l.RecordFailure(shipV2(), "rate limited by Trello, please try again in a moment")
	require.NoError(t, err)

	entries, err := l.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.StatusFailed, entries[0].Status)
	assert.Equal(t, "rate limited by Trello, please try again in a moment", entries[0].Error)
	assert.Empty(t, entries[0].CardID)
	assert.Empty(t, entries[0].CardURL)
}

func TestLedgerNeverExceedsLimit(t *testing.T) {
	l := NewLedger(database.NewMemory(), WithClock(tickingClock()))

	for i := 1; i <= DefaultLimit+1; i++ {
		req := shipV2()
		req.Title = fmt.Sprintf("card %d", i)
		_, err := l.RecordSuccess(req, models.CardResult{ID: fmt.Sprintf("C%d", i)})
		require.NoError(t, err)
	}

	entries, err := l.Entries()
	require.NoError(t, err)
	require.Len(t, entries, DefaultLimit)
	assert.Equal(t, "card 101", entries[0].Title)
	assert.Equal(t, "card 2", entries[len(entries)-1].Title)
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].CreatedAt.After(entries[i].CreatedAt), "entries must stay newest first")
	}
}

func TestLedgerIDsAreUniqueAndOrdered(t *testing.T) {
	l := NewLedger(database.NewMemory())
	seen := map[string]bool{}
	var prev string
	for i := 0; i < 20; i++ {
		e, err := l.RecordFailure(shipV2(), "x")
		require.NoError(t, err)
		assert.False(t, seen[e.ID])
		seen[e.ID] = true
		assert.Greater(t, e.ID, prev)
		prev = e.ID
	}
}

func TestLedgerClear(t *testing.T) {
	store := database.NewMemory()
	l := NewLedger(store)
	_, err := l.RecordSuccess(shipV2(), models.CardResult{ID: "C1"})
	require.NoError(t, err)

	require.NoError(t, l.Clear())

	entries, err := l.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = store.Get(StoreKey)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestLedgerRoundTripsThroughStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := database.Open("sqlite", path)
	require.NoError(t, err)

	due := time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC)
	l := NewLedger(store, WithClock(tickingClock()))
	req := shipV2()
	req.LabelIDs = []string{"LB1", "LB2"}
	req.AssigneeID = "M1"
	req.DueDate = &due
	_, err = l.RecordSuccess(req, models.CardResult{ID: "C1", URL: "https://board/c/C1"})
	require.NoError(t, err)
	_, err = l.RecordFailure(shipV2(), "boom")
	require.NoError(t, err)

	before, err := l.Entries()
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := database.Open("sqlite", path)
	require.NoError(t, err)
	defer reopened.Close()

	after, err := NewLedger(reopened).Entries()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestLedgerSurfacesCorruptStore(t *testing.T) {
	store := database.NewMemory()
	require.NoError(t, store.Set(StoreKey, []byte("{not json")))

	_, err := NewLedger(store).Entries()
	assert.Error(t, err)
}
