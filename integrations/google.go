package integrations

import (
	"context"
	"fmt"

	"github.com/chxlky/trello-quickcard/internal/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CalendarClient mirrors due dates of newly created cards into a Google
// Calendar as all-day events.
type CalendarClient struct {
	service    *calendar.Service
	calendarID string
}

func NewCalendarClient(ctx context.Context, serviceAccountJSON []byte, calendarID string) (*CalendarClient, error) {
	if calendarID == "" {
		return nil, fmt.Errorf("google calendar ID is not configured")
	}

	// create credentials from JSON data
	config, err := google.JWTConfigFromJSON(serviceAccountJSON, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account credentials from JSON: %w", err)
	}

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Calendar client: %w", err)
	}

	return &CalendarClient{service: srv, calendarID: calendarID}, nil
}

// CardCreated adds an event for the card when it has a due date.
func (c *CalendarClient) CardCreated(ctx context.Context, req models.CardRequest, card models.CardResult) error {
	event := eventForCard(req, card)
	if event == nil {
		return nil
	}

	created, err := c.service.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to create event in Google Calendar: %w", err)
	}

	zap.L().Info("Mirrored card due date to Google Calendar",
		zap.String("cardID", card.ID),
		zap.String("eventID", created.Id),
	)
	return nil
}

func eventForCard(req models.CardRequest, card models.CardResult) *calendar.Event {
	if req.DueDate == nil {
		return nil
	}
	due := req.DueDate.UTC()

	return &calendar.Event{
		Summary:     req.Title,
		Description: fmt.Sprintf("Trello Card: %s", card.URL),
		Start: &calendar.EventDateTime{
			Date: due.Format("2006-01-02"),
		},
		End: &calendar.EventDateTime{
			Date: due.AddDate(0, 0, 1).Format("2006-01-02"), // all-day event ends the next day
		},
	}
}
