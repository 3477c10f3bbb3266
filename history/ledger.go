package history

import (
	"fmt"
	"sync"
	"time"

	"github.com/chxlky/trello-quickcard/database"
	"github.com/chxlky/trello-quickcard/internal/models"
	"github.com/google/uuid"
)

const (
	StoreKey     = "cardHistory"
	DefaultLimit = 100
)

// Ledger is the bounded, persisted log of card-creation attempts, newest first.
type Ledger struct {
	store database.Store
	limit int
	now   func() time.Time
	newID func() string

	mu sync.Mutex
}

type Option func(*Ledger)

func WithLimit(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.limit = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func NewLedger(store database.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		limit: DefaultLimit,
		now:   time.Now,
		newID: func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Entries returns the persisted entries, newest first.
func (l *Ledger) Entries() ([]models.HistoryEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

func (l *Ledger) RecordSuccess(req models.CardRequest, card models.CardResult) (models.HistoryEntry, error) {
	return l.record(models.HistoryEntry{
		CardRequest: req,
		Status:      models.StatusSuccess,
		CardID:      card.ID,
		CardURL:     card.URL,
	})
}

func (l *Ledger) RecordFailure(req models.CardRequest, message string) (models.HistoryEntry, error) {
	return l.record(models.HistoryEntry{
		CardRequest: req,
		Status:      models.StatusFailed,
		Error:       message,
	})
}

// Clear empties the ledger and drops its stored key.
func (l *Ledger) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.Remove(StoreKey); err != nil {
		return fmt.Errorf("failed to clear card history: %w", err)
	}
	return nil
}

func (l *Ledger) record(entry models.HistoryEntry) (models.HistoryEntry, error) {
	entry.ID = l.newID()
	entry.CreatedAt = l.now().UTC()
	entry.LabelIDs = append([]string(nil), entry.LabelIDs...)

	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return entry, err
	}

	entries = append([]models.HistoryEntry{entry}, entries...)
	if len(entries) > l.limit {
		entries = entries[:l.limit]
	}

	if err := database.SetJSON(l.store, StoreKey, entries); err != nil {
		return entry, fmt.Errorf("failed to save card history: %w", err)
	}
	return entry, nil
}

func (l *Ledger) load() ([]models.HistoryEntry, error) {
	entries := []models.HistoryEntry{}
	if _, err := database.GetJSON(l.store, StoreKey, &entries); err != nil {
		return nil, fmt.Errorf("failed to load card history: %w", err)
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	return entries, nil
}
