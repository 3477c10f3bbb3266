package integrations

import (
	"context"
	"fmt"
	"net/url"

	"github.com/chxlky/trello-quickcard/internal/models"
)

const DefaultBaseURL = "https://api.trello.com/1"

const (
	OpValidate   = "validateCredentials"
	OpBoards     = "listBoards"
	OpLists      = "listLists"
	OpLabels     = "listLabels"
	OpMembers    = "listMembers"
	OpCreateCard = "createCard"
	OpAddLabel   = "addLabel"
)

const (
	StrategyDirect   = "direct"
	StrategyCallback = "callback"
	StrategyProxy    = "proxy"
	StrategyRelay    = "relay"
)

// Capabilities tells the resilient client which operations a strategy may carry.
type Capabilities struct {
	Mutations bool
	// PreferForMutations puts the strategy ahead of every other one for createCard.
	PreferForMutations bool
}

// Strategy is one way of reaching the Trello API. Every strategy speaks the same
// operations and classifies failures with this package's error kinds.
type Strategy interface {
	Name() string
	Capabilities() Capabilities
	ValidateCredentials(ctx context.Context, creds models.Credentials) (*models.Member, error)
	ListBoards(ctx context.Context, creds models.Credentials) ([]models.Board, error)
	ListLists(ctx context.Context, creds models.Credentials, boardID string) ([]models.List, error)
	ListLabels(ctx context.Context, creds models.Credentials, boardID string) ([]models.Label, error)
	ListMembers(ctx context.Context, creds models.Credentials, boardID string) ([]models.Member, error)
	// CreateCard creates the card and then attaches labels best-effort.
	CreateCard(ctx context.Context, creds models.Credentials, req models.CardRequest) (*models.CardResult, error)
}

type endpoint struct {
	op    string
	path  string
	query url.Values
}

func (e endpoint) url(baseURL string, creds models.Credentials) string {
	q := url.Values{}
	for k, v := range e.query {
		q[k] = v
	}
	q.Set("key", creds.APIKey)
	q.Set("token", creds.Token)
	return baseURL + e.path + "?" + q.Encode()
}

func membersMeEndpoint() endpoint {
	return endpoint{op: OpValidate, path: "/members/me"}
}

func boardsEndpoint() endpoint {
	return endpoint{op: OpBoards, path: "/members/me/boards", query: url.Values{
		"filter": {"open"},
		"fields": {"id,name,desc,url,prefs"},
	}}
}

func listsEndpoint(boardID string) endpoint {
	return endpoint{op: OpLists, path: fmt.Sprintf("/boards/%s/lists", url.PathEscape(boardID)), query: url.Values{
		"filter": {"open"},
		"fields": {"id,name,pos"},
	}}
}

func labelsEndpoint(boardID string) endpoint {
	return endpoint{op: OpLabels, path: fmt.Sprintf("/boards/%s/labels", url.PathEscape(boardID))}
}

func membersEndpoint(boardID string) endpoint {
	return endpoint{op: OpMembers, path: fmt.Sprintf("/boards/%s/members", url.PathEscape(boardID)), query: url.Values{
		"fields": {"id,fullName,username,avatarUrl"},
	}}
}

// getFunc performs a read and decodes the JSON payload into out.
type getFunc func(ctx context.Context, ep endpoint, creds models.Credentials, out any) error

// reader implements the read operations on top of a strategy's getFunc.
type reader struct {
	name string
	get  getFunc
}

func (r reader) ValidateCredentials(ctx context.Context, creds models.Credentials) (*models.Member, error) {
	var me models.Member
	if err := r.get(ctx, membersMeEndpoint(), creds, &me); err != nil {
		return nil, err
	}
	if me.ID == "" {
		return nil, malformed(OpValidate, r.name, fmt.Errorf("response carries no user id"))
	}
	return &me, nil
}

func (r reader) ListBoards(ctx context.Context, creds models.Credentials) ([]models.Board, error) {
	boards := []models.Board{}
	if err := r.get(ctx, boardsEndpoint(), creds, &boards); err != nil {
		return nil, err
	}
	return nonNil(boards), nil
}

func (r reader) ListLists(ctx context.Context, creds models.Credentials, boardID string) ([]models.List, error) {
	lists := []models.List{}
	if err := r.get(ctx, listsEndpoint(boardID), creds, &lists); err != nil {
		return nil, err
	}
	return nonNil(lists), nil
}

func (r reader) ListLabels(ctx context.Context, creds models.Credentials, boardID string) ([]models.Label, error) {
	labels := []models.Label{}
	if err := r.get(ctx, labelsEndpoint(boardID), creds, &labels); err != nil {
		return nil, err
	}
	return nonNil(labels), nil
}

func (r reader) ListMembers(ctx context.Context, creds models.Credentials, boardID string) ([]models.Member, error) {
	members := []models.Member{}
	if err := r.get(ctx, membersEndpoint(boardID), creds, &members); err != nil {
		return nil, err
	}
	return nonNil(members), nil
}

// A JSON null payload decodes to a nil slice; callers always get a list.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
