package chat

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medigo/pharmacy-api/internal/handler"
	"github.com/medigo/pharmacy-api/internal/middleware"
	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/relay"
)

type Handler struct {
	relay *relay.Relay
}

func NewHandler(r *relay.Relay) *Handler {
	return &Handler{relay: r}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/messages")
	{
		group.POST("", h.Send)
		group.GET("", h.History)
		group.GET("/stream", h.Stream)
	}
}

func (h *Handler) Send(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	msg, err := h.relay.Send(c.Request.Context(), actor, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusCreated, msg)
}

func (h *Handler) History(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	pharmacyID, err := uuid.Parse(c.Query("pharmacy_id"))
	if err != nil {
		handler.BindError(c, err)
		return
	}

	// Patients implicitly query their own side of the conversation.
	patientID := actor.UserID
	if raw := c.Query("patient_id"); raw != "" {
		patientID, err = uuid.Parse(raw)
		if err != nil {
			handler.BindError(c, err)
			return
		}
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	messages, err := h.relay.History(c.Request.Context(), actor, pharmacyID, patientID, limit)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, messages)
}

// Stream pushes the actor's room over server-sent events until the
// client disconnects.
func (h *Handler) Stream(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	events, err := h.relay.Subscribe(c.Request.Context(), actor)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case payload, open := <-events:
			if !open {
				return false
			}
			c.SSEvent("message", string(payload))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
