package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medigo/pharmacy-api/internal/handler"
	"github.com/medigo/pharmacy-api/internal/middleware"
	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/service/appointment"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/appointments")
	{
		group.POST("", h.Create)
		group.GET("", h.ListMine)
		group.GET("/:id", h.Get)
		group.PATCH("/:id/status", h.Transition)
	}
	rg.GET("/pharmacies/:id/appointments", h.ListForPharmacy)
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	var req model.CreateAppointmentRequest
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

	apt, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, apt)
}

func (h *Handler) ListMine(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	appointments, err := h.service.ListMine(c.Request.Context(), actor)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, appointments)
}

func (h *Handler) ListForPharmacy(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	pharmacyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BindError(c, err)
		return
	}

	appointments, err := h.service.ListForPharmacy(c.Request.Context(), actor, pharmacyID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, appointments)
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

	apt, err := h.service.Transition(c.Request.Context(), actor, id, model.AppointmentStatus(req.Status))
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, apt)
}
