package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/cloudsync"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/models"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/progress"
)

// AgentHandler is the page-facing surface of the on-device agent.
type AgentHandler struct {
	store *progress.Store
	sync  *cloudsync.SyncManager
}

func NewAgentHandler(store *progress.Store, sync *cloudsync.SyncManager) *AgentHandler {
	return &AgentHandler{store: store, sync: sync}
}

func (h *AgentHandler) Snapshot(c *gin.Context) {
	snap, err := h.store.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *AgentHandler) GetSlot(c *gin.Context) {
	v, err := h.store.Get(c.Request.Context(), c.Param("slot"))
	if errors.Is(err, progress.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "slot not found"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", v)
}

func (h *AgentHandler) PutSlot(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badJSON(c, err)
		return
	}
	err = h.store.Set(c.Request.Context(), c.Param("slot"), json.RawMessage(raw))
	if errors.Is(err, progress.ErrInvalidJSON) || errors.Is(err, progress.ErrInvalidSlot) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AgentHandler) DeleteSlot(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("slot")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AgentHandler) SignIn(c *gin.Context) {
	var body struct {
		UserID string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badJSON(c, err)
		return
	}
	if err := h.sync.SignIn(body.UserID); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "userId is required"})
		return
	}
	c.JSON(http.StatusAccepted, h.sync.State())
}

func (h *AgentHandler) GameFinished(c *gin.Context) {
	h.sync.GameFinished()
	c.Status(http.StatusAccepted)
}

// SyncNow is the only sync path that reports failure to the page.
func (h *AgentHandler) SyncNow(c *gin.Context) {
	err := h.sync.SyncNow(c.Request.Context())
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "status": h.sync.State()})
		return
	}
	if errors.Is(err, cloudsync.ErrNoUser) {
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "sign in before syncing"})
		return
	}
	if errors.Is(err, cloudsync.ErrSyncDisabled) {
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: err.Error()})
		return
	}
	resp := models.ErrorResponse{Error: "Sync failed", Details: strings.TrimSpace(err.Error())}
	var apiErr *cloudsync.APIError
	if errors.As(err, &apiErr) {
		resp.Code = apiErr.Code
		resp.Hint = apiErr.Hint
	}
	c.JSON(http.StatusBadGateway, resp)
}

func (h *AgentHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.sync.State())
}
