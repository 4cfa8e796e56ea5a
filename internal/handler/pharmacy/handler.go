package pharmacy

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medigo/pharmacy-api/internal/handler"
	"github.com/medigo/pharmacy-api/internal/middleware"
	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/service/pharmacy"
)

type Handler struct {
	service *pharmacy.Service
}

func NewHandler(service *pharmacy.Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes exposes the directory without authentication:
// the locator works before login.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/pharmacies")
	{
		group.GET("", h.List)
		group.GET("/on-duty", h.ListOnDuty)
		group.GET("/:id", h.Get)
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/pharmacies")
	{
		group.POST("", h.Create)
		group.PATCH("/:id/duty", h.SetDuty)
		group.PATCH("/:id/verify", h.SetVerified)
	}
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	var req model.CreatePharmacyRequest
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
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BindError(c, err)
		return
	}

	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, p)
}

func (h *Handler) List(c *gin.Context) {
	pharmacies, err := h.service.List(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, pharmacies)
}

func (h *Handler) ListOnDuty(c *gin.Context) {
	pharmacies, err := h.service.ListOnDuty(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, pharmacies)
}

func (h *Handler) SetDuty(c *gin.Context) {
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

	var req model.SetDutyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	p, err := h.service.SetDuty(c.Request.Context(), actor, id, *req.IsOnDuty)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, p)
}

type setVerifiedRequest struct {
	IsVerified *bool `json:"is_verified" binding:"required"`
}

func (h *Handler) SetVerified(c *gin.Context) {
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

	var req setVerifiedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	p, err := h.service.SetVerified(c.Request.Context(), actor, id, *req.IsVerified)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, p)
}
