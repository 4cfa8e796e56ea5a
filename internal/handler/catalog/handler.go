package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medigo/pharmacy-api/internal/handler"
	"github.com/medigo/pharmacy-api/internal/middleware"
	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/service/catalog"
)

type Handler struct {
	service *catalog.Service
}

func NewHandler(service *catalog.Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes exposes catalog search and the locator query
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	medications := rg.Group("/medications")
	{
		medications.GET("", h.SearchMedications)
		medications.GET("/:id", h.GetMedication)
		medications.GET("/:id/availability", h.FindAvailability)
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/medications", h.CreateMedication)

	stock := rg.Group("/pharmacies/:id/stock")
	{
		stock.GET("", h.ListStock)
		stock.PUT("", h.UpsertStock)
	}
}

func (h *Handler) CreateMedication(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	var req model.CreateMedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	medication, err := h.service.CreateMedication(c.Request.Context(), actor, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusCreated, medication)
}

func (h *Handler) GetMedication(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BindError(c, err)
		return
	}

	medication, err := h.service.GetMedication(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, medication)
}

func (h *Handler) SearchMedications(c *gin.Context) {
	medications, err := h.service.SearchMedications(c.Request.Context(), c.Query("q"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, medications)
}

func (h *Handler) FindAvailability(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BindError(c, err)
		return
	}

	availability, err := h.service.FindAvailability(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, availability)
}

func (h *Handler) ListStock(c *gin.Context) {
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

	stocks, err := h.service.ListStock(c.Request.Context(), actor, pharmacyID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, stocks)
}

func (h *Handler) UpsertStock(c *gin.Context) {
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

	var req model.UpsertStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	stock, err := h.service.UpsertStock(c.Request.Context(), actor, pharmacyID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, stock)
}
