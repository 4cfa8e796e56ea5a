package delivery

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medigo/pharmacy-api/internal/handler"
	"github.com/medigo/pharmacy-api/internal/middleware"
	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/service/delivery"
)

type Handler struct {
	service *delivery.Service
}

func NewHandler(service *delivery.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/deliveries")
	{
		group.POST("", h.Create)
		group.GET("/open", h.ListOpen)
		group.GET("/mine", h.ListMine)
		group.GET("/:id", h.Get)
		group.POST("/:id/accept", h.Accept)
		group.PATCH("/:id/status", h.Transition)
		group.PUT("/:id/position", h.UpdatePosition)
	}
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	var req model.CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), actor, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusCreated, created)
}

func (h *Handler) Get(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BindError(c, err)
		return
	}

	del, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, del)
}

func (h *Handler) ListOpen(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	deliveries, err := h.service.ListOpen(c.Request.Context(), actor)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, deliveries)
}

func (h *Handler) ListMine(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	deliveries, err := h.service.ListMine(c.Request.Context(), actor)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, deliveries)
}

func (h *Handler) Accept(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BindError(c, err)
		return
	}

	del, err := h.service.Accept(c.Request.Context(), actor, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, del)
}

func (h *Handler) Transition(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BindError(c, err)
		return
	}

	var req model.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	del, err := h.service.Transition(c.Request.Context(), actor, id, model.DeliveryStatus(req.Status))
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, del)
}

func (h *Handler) UpdatePosition(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BindError(c, err)
		return
	}

	var req model.UpdatePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	if err := h.service.UpdatePosition(c.Request.Context(), actor, id, &req); err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, gin.H{"delivery_id": id})
}
