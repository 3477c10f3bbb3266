package history

import (
	"slices"

	"github.com/chxlky/trello-quickcard/internal/models"
)

type SortOrder string

const (
	Newest SortOrder = "newest"
	Oldest SortOrder = "oldest"
)

// Filter keeps entries with the given status; an empty status keeps all of them.
func Filter(entries []models.HistoryEntry, status models.HistoryStatus) []models.HistoryEntry {
	out := make([]models.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if status == "" || e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

// Sort returns a sorted copy by creation time.
func Sort(entries []models.HistoryEntry, order SortOrder) []models.HistoryEntry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b models.HistoryEntry) int {
		if order == Oldest {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

type Stats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

func Summarize(entries []models.HistoryEntry) Stats {
	s := Stats{Total: len(entries)}
	for _, e := range entries {
		switch e.Status {
		case models.StatusSuccess:
			s.Successful++
		case models.StatusFailed:
			s.Failed++
		}
	}
	return s
}
