package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chxlky/trello-quickcard/internal/models"
	"go.uber.org/zap"
)

// TrelloClient calls the Trello REST API directly. It is the "direct" strategy
// and also what the relay backend uses to do the real work.
type TrelloClient struct {
	reader
	Client     *http.Client
	BaseURL    string
	LabelDelay time.Duration
}

func NewTrelloClient(baseURL string, labelDelay time.Duration) *TrelloClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	tc := &TrelloClient{
		Client:     &http.Client{},
		BaseURL:    strings.TrimRight(baseURL, "/"),
		LabelDelay: labelDelay,
	}
	tc.reader = reader{name: StrategyDirect, get: tc.get}
	return tc
}

func (tc *TrelloClient) Name() string { return StrategyDirect }

func (tc *TrelloClient) Capabilities() Capabilities {
	return Capabilities{Mutations: true}
}

func (tc *TrelloClient) get(ctx context.Context, ep endpoint, creds models.Credentials, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.url(tc.BaseURL, creds), nil)
	if err != nil {
		return transportError(ep.op, StrategyDirect, fmt.Errorf("failed to create get request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	return tc.do(req, ep.op, out)
}

func (tc *TrelloClient) postForm(ctx context.Context, op, path string, creds models.Credentials, form url.Values, out any) error {
	form.Set("key", creds.APIKey)
	form.Set("token", creds.Token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.BaseURL+path, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return transportError(op, StrategyDirect, fmt.Errorf("failed to create post request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	return tc.do(req, op, out)
}

func (tc *TrelloClient) do(req *http.Request, op string, out any) error {
	resp, err := tc.Client.Do(req)
	if err != nil {
		return transportError(op, StrategyDirect, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return StatusError(op, StrategyDirect, resp.StatusCode, string(bodyBytes))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return malformed(op, StrategyDirect, err)
	}
	return nil
}

func (tc *TrelloClient) CreateCard(ctx context.Context, creds models.Credentials, req models.CardRequest) (*models.CardResult, error) {
	form := cardForm(req)

	var card models.CardResult
	if err := tc.postForm(ctx, OpCreateCard, "/cards", creds, form, &card); err != nil {
		return nil, err
	}
	if card.ID == "" {
		return nil, malformed(OpCreateCard, StrategyDirect, fmt.Errorf("created card has no id"))
	}

	zap.L().Info("Created Trello card", zap.String("cardID", card.ID), zap.String("listID", req.ListID))

	labelIDs := req.LabelSet()
	if len(labelIDs) > 0 {
		card.FailedLabelIDs = attachLabels(ctx, card.ID, labelIDs, tc.LabelDelay, func(ctx context.Context, labelID string) error {
			return tc.AddLabel(ctx, creds, card.ID, labelID)
		})
	}

	return &card, nil
}

// AddLabel associates one existing board label with a card.
func (tc *TrelloClient) AddLabel(ctx context.Context, creds models.Credentials, cardID, labelID string) error {
	form := url.Values{}
	form.Set("value", labelID)
	return tc.postForm(ctx, OpAddLabel, fmt.Sprintf("/cards/%s/idLabels", url.PathEscape(cardID)), creds, form, nil)
}

// cardForm builds the upstream parameters for a new card, truncated to the
// upstream limits.
func cardForm(req models.CardRequest) url.Values {
	form := url.Values{}
	form.Set("idList", req.ListID)
	form.Set("name", models.Truncate(req.Title, models.UpstreamTitleLimit))
	form.Set("desc", models.Truncate(req.Description, models.UpstreamDescriptionLimit))
	if req.DueDate != nil {
		form.Set("due", req.DueDate.UTC().Format(time.RFC3339))
	}
	if req.AssigneeID != "" {
		form.Set("idMembers", req.AssigneeID)
	}
	return form
}
