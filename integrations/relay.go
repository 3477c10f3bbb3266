package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/chxlky/trello-quickcard/internal/models"
)

// Relay backend routes, relative to the relay base URL.
const (
	RelayValidatePath   = "/trello-validate"
	RelayBoardsPath     = "/trello-boards"
	RelayListsPath      = "/trello-lists"
	RelayLabelsPath     = "/trello-labels"
	RelayMembersPath    = "/trello-members"
	RelayCreateCardPath = "/trello-create-card"
)

// RelayRequest is the JSON body every relay route accepts.
type RelayRequest struct {
	Credentials models.Credentials  `json:"credentials"`
	BoardID     string              `json:"boardId,omitempty"`
	CardData    *models.CardRequest `json:"cardData,omitempty"`
}

// RelayError is the body of every non-200 relay response.
type RelayError struct {
	Error string `json:"error"`
}

// RelayClient delegates each operation to the relay backend, which owns the
// actual Trello call. It is the only strategy that reliably carries writes.
type RelayClient struct {
	Client  *http.Client
	BaseURL string
}

func NewRelayClient(baseURL string) *RelayClient {
	return &RelayClient{
		Client:  &http.Client{},
		BaseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (rc *RelayClient) Name() string { return StrategyRelay }

func (rc *RelayClient) Capabilities() Capabilities {
	return Capabilities{Mutations: true, PreferForMutations: true}
}

func (rc *RelayClient) ValidateCredentials(ctx context.Context, creds models.Credentials) (*models.Member, error) {
	var me models.Member
	if err := rc.post(ctx, OpValidate, RelayValidatePath, RelayRequest{Credentials: creds}, &me); err != nil {
		return nil, err
	}
	if me.ID == "" {
		return nil, malformed(OpValidate, StrategyRelay, fmt.Errorf("response carries no user id"))
	}
	return &me, nil
}

func (rc *RelayClient) ListBoards(ctx context.Context, creds models.Credentials) ([]models.Board, error) {
	var boards []models.Board
	if err := rc.post(ctx, OpBoards, RelayBoardsPath, RelayRequest{Credentials: creds}, &boards); err != nil {
		return nil, err
	}
	return nonNil(boards), nil
}

func (rc *RelayClient) ListLists(ctx context.Context, creds models.Credentials, boardID string) ([]models.List, error) {
	var lists []models.List
	if err := rc.post(ctx, OpLists, RelayListsPath, RelayRequest{Credentials: creds, BoardID: boardID}, &lists); err != nil {
		return nil, err
	}
	return nonNil(lists), nil
}

func (rc *RelayClient) ListLabels(ctx context.Context, creds models.Credentials, boardID string) ([]models.Label, error) {
	var labels []models.Label
	if err := rc.post(ctx, OpLabels, RelayLabelsPath, RelayRequest{Credentials: creds, BoardID: boardID}, &labels); err != nil {
		return nil, err
	}
	return nonNil(labels), nil
}

func (rc *RelayClient) ListMembers(ctx context.Context, creds models.Credentials, boardID string) ([]models.Member, error) {
	var members []models.Member
	if err := rc.post(ctx, OpMembers, RelayMembersPath, RelayRequest{Credentials: creds, BoardID: boardID}, &members); err != nil {
		return nil, err
	}
	return nonNil(members), nil
}

func (rc *RelayClient) CreateCard(ctx context.Context, creds models.Credentials, req models.CardRequest) (*models.CardResult, error) {
	var card models.CardResult
	if err := rc.post(ctx, OpCreateCard, RelayCreateCardPath, RelayRequest{Credentials: creds, CardData: &req}, &card); err != nil {
		return nil, err
	}
	if card.ID == "" {
		return nil, malformed(OpCreateCard, StrategyRelay, fmt.Errorf("created card has no id"))
	}
	return &card, nil
}

func (rc *RelayClient) post(ctx context.Context, op, path string, body RelayRequest, out any) error {
	if rc.BaseURL == "" {
		return transportError(op, StrategyRelay, fmt.Errorf("relay URL is not configured"))
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return transportError(op, StrategyRelay, fmt.Errorf("failed to encode relay request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rc.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return transportError(op, StrategyRelay, fmt.Errorf("failed to create relay request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := rc.Client.Do(req)
	if err != nil {
		return transportError(op, StrategyRelay, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return relayStatusError(op, resp.StatusCode, raw)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return malformed(op, StrategyRelay, err)
	}
	return nil
}

// relayStatusError keeps the relay's own error text when it sent one.
func relayStatusError(op string, status int, raw []byte) *Error {
	e := StatusError(op, StrategyRelay, status, string(raw))
	var body RelayError
	if json.Unmarshal(raw, &body) == nil && body.Error != "" && e.Kind == KindTransport {
		e.Message = body.Error
	}
	return e
}
