package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/chxlky/trello-quickcard/database"
	"github.com/chxlky/trello-quickcard/history"
	"github.com/chxlky/trello-quickcard/integrations"
	"github.com/chxlky/trello-quickcard/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const CredentialsKey = "credentials"

var (
	ErrNotConnected    = errors.New("not connected to Trello")
	ErrNoBoardSelected = errors.New("no board selected")
	ErrUnknownList     = errors.New("list does not belong to the selected board")
)

// API is the operation set a session drives; *integrations.ResilientClient satisfies it.
type API interface {
	ValidateCredentials(ctx context.Context, creds models.Credentials) (*models.Member, error)
	ListBoards(ctx context.Context, creds models.Credentials) ([]models.Board, error)
	ListLists(ctx context.Context, creds models.Credentials, boardID string) ([]models.List, error)
	ListLabels(ctx context.Context, creds models.Credentials, boardID string) ([]models.Label, error)
	ListMembers(ctx context.Context, creds models.Credentials, boardID string) ([]models.Member, error)
	CreateCard(ctx context.Context, creds models.Credentials, req models.CardRequest) (*models.CardResult, error)
}

// CardObserver hears about every successfully created card. Its errors are logged only.
type CardObserver interface {
	CardCreated(ctx context.Context, req models.CardRequest, card models.CardResult) error
}

// BoardData is everything loaded for the selected board.
type BoardData struct {
	BoardID string
	Lists   []models.List
	Labels  []models.Label
	Members []models.Member
}

// Session holds the state of one connected user: credentials, the boards and
// the selected board's data. History outlives the session.
type Session struct {
	api       API
	store     database.Store
	ledger    *history.Ledger
	observers []CardObserver

	mu     sync.RWMutex
	creds  *models.Credentials
	user   *models.Member
	boards []models.Board
	board  *BoardData
}

func New(api API, store database.Store, ledger *history.Ledger, observers ...CardObserver) *Session {
	return &Session{api: api, store: store, ledger: ledger, observers: observers}
}

// Restore loads persisted credentials. It reports whether any were found.
func (s *Session) Restore() (bool, error) {
	var creds models.Credentials
	found, err := database.GetJSON(s.store, CredentialsKey, &creds)
	if err != nil || !found {
		return false, err
	}

	s.mu.Lock()
	s.creds = &creds
	s.mu.Unlock()
	return true, nil
}

// Connect validates creds upstream, persists them and loads the board list.
func (s *Session) Connect(ctx context.Context, creds models.Credentials) (*models.Member, error) {
	user, err := s.api.ValidateCredentials(ctx, creds)
	if err != nil {
		return nil, err
	}

	if err := database.SetJSON(s.store, CredentialsKey, creds); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}

	s.mu.Lock()
	s.creds = &creds
	s.user = user
	s.mu.Unlock()

	zap.L().Info("Connected to Trello", zap.String("user", user.Username), zap.String("credentials", creds.Masked()))

	if _, err := s.LoadBoards(ctx); err != nil {
		zap.L().Warn("Connected but failed to load boards", zap.Error(err))
	}
	return user, nil
}

// Disconnect forgets the credentials and every session-scoped set.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	s.creds = nil
	s.user = nil
	s.boards = nil
	s.board = nil
	s.mu.Unlock()

	if err := s.store.Remove(CredentialsKey); err != nil {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	zap.L().Info("Disconnected from Trello")
	return nil
}

func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds != nil
}

func (s *Session) User() *models.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) credentials() (models.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return models.Credentials{}, ErrNotConnected
	}
	return *s.creds, nil
}

func (s *Session) LoadBoards(ctx context.Context) ([]models.Board, error) {
	creds, err := s.credentials()
	if err != nil {
		return nil, err
	}

	boards, err := s.api.ListBoards(ctx, creds)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.boards = boards
	s.mu.Unlock()
	return boards, nil
}

func (s *Session) Boards() []models.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.boards)
}

// SelectBoard loads lists, labels and members in parallel. The first failure
// wins and the other requests are abandoned; nothing is replaced unless all
// three succeed.
func (s *Session) SelectBoard(ctx context.Context, boardID string) (*BoardData, error) {
	creds, err := s.credentials()
	if err != nil {
		return nil, err
	}

	data := &BoardData{BoardID: boardID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lists, err := s.api.ListLists(gctx, creds, boardID)
		data.Lists = lists
		return err
	})
	g.Go(func() error {
		labels, err := s.api.ListLabels(gctx, creds, boardID)
		data.Labels = labels
		return err
	})
	g.Go(func() error {
		members, err := s.api.ListMembers(gctx, creds, boardID)
		data.Members = members
		return err
	})
	if err := g.Wait(); err != nil {
		zap.L().Warn("Failed to load board data", zap.String("boardID", boardID), zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	s.board = data
	s.mu.Unlock()
	return data, nil
}

func (s *Session) Board() *BoardData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board
}

// CreateCard creates a card on the selected board and records the attempt in
// the history ledger whatever the outcome.
func (s *Session) CreateCard(ctx context.Context, req models.CardRequest) (*models.CardResult, error) {
	card, err := s.createCard(ctx, req)
	if err != nil {
		if _, herr := s.ledger.RecordFailure(req, integrations.Message(err)); herr != nil {
			zap.L().Error("Failed to record card history", zap.Error(herr))
		}
		return nil, err
	}

	if _, herr := s.ledger.RecordSuccess(req, *card); herr != nil {
		zap.L().Error("Failed to record card history", zap.Error(herr))
	}

	for _, o := range s.observers {
		if oerr := o.CardCreated(ctx, req, *card); oerr != nil {
			zap.L().Warn("Card observer failed", zap.String("cardID", card.ID), zap.Error(oerr))
		}
	}
	return card, nil
}

func (s *Session) createCard(ctx context.Context, req models.CardRequest) (*models.CardResult, error) {
	creds, err := s.credentials()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	board := s.board
	s.mu.RUnlock()
	if board == nil {
		return nil, ErrNoBoardSelected
	}
	if !slices.ContainsFunc(board.Lists, func(l models.List) bool { return l.ID == req.ListID }) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownList, req.ListID)
	}

	return s.api.CreateCard(ctx, creds, req)
}

func (s *Session) History() ([]models.HistoryEntry, error) {
	return s.ledger.Entries()
}

func (s *Session) ClearHistory() error {
	return s.ledger.Clear()
}
