package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/models"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/services"
)

type PushHandler struct {
	svc *services.PushService
}

func NewPushHandler(svc *services.PushService) *PushHandler {
	return &PushHandler{svc: svc}
}

func (h *PushHandler) PublicKey(c *gin.Context) {
	key, err := h.svc.PublicKey()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": key})
}

func (h *PushHandler) Subscribe(c *gin.Context) {
	var body models.SubscribeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badJSON(c, err)
		return
	}
	sub, err := h.svc.Subscribe(c.Request.Context(), body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": sub.ID})
}

func (h *PushHandler) Unsubscribe(c *gin.Context) {
	var body models.UnsubscribeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badJSON(c, err)
		return
	}
	if err := h.svc.Unsubscribe(c.Request.Context(), body.Endpoint); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *PushHandler) Send(c *gin.Context) {
	var body models.SendRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badJSON(c, err)
			return
		}
	}
	res, err := h.svc.Send(c.Request.Context(), body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SendResponse{
		Success:     true,
		Total:       res.Total,
		Sent:        res.Sent,
		Failed:      res.Failed,
		Deactivated: res.Deactivated,
	})
}
