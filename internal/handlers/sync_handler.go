package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/models"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/services"
)

type SyncHandler struct {
	svc *services.SyncService
}

func NewSyncHandler(svc *services.SyncService) *SyncHandler {
	return &SyncHandler{svc: svc}
}

func (h *SyncHandler) Pull(c *gin.Context) {
	row, err := h.svc.Pull(c.Request.Context(), c.Query("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	resp := models.SyncPullResponse{Success: true, Data: []byte("null")}
	if row != nil {
		resp.Data = row.Data
		resp.HasCloudData = true
		resp.LastSynced = timestamp(row.LastSynced)
		resp.CreatedAt = timestamp(row.CreatedAt)
		resp.SessionID = row.SessionID
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SyncHandler) Push(c *gin.Context) {
	var body models.SyncPushRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badJSON(c, err)
		return
	}
	row, err := h.svc.Push(c.Request.Context(), services.PushInput{
		UserID:    body.UserID,
		Data:      body.Data,
		SessionID: body.SessionID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SyncPushResponse{
		Success:    true,
		Message:    "Progress saved",
		LastSynced: *timestamp(row.LastSynced),
		SessionID:  row.SessionID,
	})
}

func timestamp(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}
