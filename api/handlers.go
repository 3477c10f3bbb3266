package api

import (
	"net/http"

	"github.com/chxlky/trello-quickcard/integrations"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves the relay routes. Upstream does the real Trello call,
// normally the direct client.
type Handler struct {
	Upstream integrations.Strategy
}

type relayCall func(c *gin.Context, req integrations.RelayRequest) (any, error)

// relay binds the JSON body, checks credentials and answers either the raw
// payload or {"error": ...}.
func (h *Handler) relay(op string, needsBoard bool, call relayCall) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req integrations.RelayRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			zap.L().Debug("Could not bind relay request", zap.String("operation", op), zap.Error(err))
			c.JSON(http.StatusBadRequest, integrations.RelayError{Error: "Invalid JSON payload"})
			return
		}

		if !req.Credentials.Complete() {
			c.JSON(http.StatusBadRequest, integrations.RelayError{Error: "API key and token are required"})
			return
		}
		if needsBoard && req.BoardID == "" {
			c.JSON(http.StatusBadRequest, integrations.RelayError{Error: "Board ID is required"})
			return
		}

		payload, err := call(c, req)
		if err != nil {
			zap.L().Error("Relay call failed",
				zap.String("operation", op),
				zap.String("credentials", req.Credentials.Masked()),
				zap.Error(err),
			)
			c.JSON(integrations.HTTPStatus(err), integrations.RelayError{Error: integrations.Message(err)})
			return
		}

		c.JSON(http.StatusOK, payload)
	}
}

func (h *Handler) ValidateHandler() gin.HandlerFunc {
	return h.relay(integrations.OpValidate, false, func(c *gin.Context, req integrations.RelayRequest) (any, error) {
		return h.Upstream.ValidateCredentials(c.Request.Context(), req.Credentials)
	})
}

func (h *Handler) BoardsHandler() gin.HandlerFunc {
	return h.relay(integrations.OpBoards, false, func(c *gin.Context, req integrations.RelayRequest) (any, error) {
		return h.Upstream.ListBoards(c.Request.Context(), req.Credentials)
	})
}

func (h *Handler) ListsHandler() gin.HandlerFunc {
	return h.relay(integrations.OpLists, true, func(c *gin.Context, req integrations.RelayRequest) (any, error) {
		return h.Upstream.ListLists(c.Request.Context(), req.Credentials, req.BoardID)
	})
}

func (h *Handler) LabelsHandler() gin.HandlerFunc {
	return h.relay(integrations.OpLabels, true, func(c *gin.Context, req integrations.RelayRequest) (any, error) {
		return h.Upstream.ListLabels(c.Request.Context(), req.Credentials, req.BoardID)
	})
}

func (h *Handler) MembersHandler() gin.HandlerFunc {
	return h.relay(integrations.OpMembers, true, func(c *gin.Context, req integrations.RelayRequest) (any, error) {
		return h.Upstream.ListMembers(c.Request.Context(), req.Credentials, req.BoardID)
	})
}

func (h *Handler) CreateCardHandler() gin.HandlerFunc {
	return h.relay(integrations.OpCreateCard, false, func(c *gin.Context, req integrations.RelayRequest) (any, error) {
		if req.CardData == nil {
			return nil, &integrations.Error{Kind: integrations.KindInvalidCard, Op: integrations.OpCreateCard, Message: "Title, description, and list ID are required"}
		}
		if err := req.CardData.Validate(); err != nil {
			return nil, &integrations.Error{Kind: integrations.KindInvalidCard, Op: integrations.OpCreateCard, Message: err.Error(), Err: err}
		}

		card, err := h.Upstream.CreateCard(c.Request.Context(), req.Credentials, *req.CardData)
		if err != nil {
			return nil, err
		}
		if len(card.FailedLabelIDs) > 0 {
			zap.L().Warn("Relay created card with missing labels", zap.String("cardID", card.ID), zap.Strings("labelIDs", card.FailedLabelIDs))
		}
		return card, nil
	})
}

func (h *Handler) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "upstream": h.Upstream.Name()})
}
