package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smouldering-durtles/wk-search/internal/dto"
	"github.com/smouldering-durtles/wk-search/internal/models"
	appErrors "github.com/smouldering-durtles/wk-search/pkg/errors"
	"github.com/smouldering-durtles/wk-search/pkg/response"
)

type propertyService interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Put(ctx context.Context, name, value string) error
	Remove(ctx context.Context, name string) error
	List(ctx context.Context) ([]models.Property, error)
	Reset(ctx context.Context) (int64, error)
}

// PropertyHandler exposes the property store.
type PropertyHandler struct {
	service propertyService
}

// NewPropertyHandler builds a new handler.
func NewPropertyHandler(service propertyService) *PropertyHandler {
	return &PropertyHandler{service: service}
}

// List godoc
// @Summary List properties
// @Tags Properties
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /properties [get]
func (h *PropertyHandler) List(c *gin.Context) {
	props, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, props)
}

// Get godoc
// @Summary Get property by name
// @Tags Properties
// @Produce json
// @Param name path string true "Property name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /properties/{name} [get]
func (h *PropertyHandler) Get(c *gin.Context) {
	name := c.Param("name")
	value, ok, err := h.service.Get(c.Request.Context(), name)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "property not found"))
		return
	}
	response.JSON(c, http.StatusOK, dto.PropertyResponse{Name: name, Value: value})
}

// Put godoc
// @Summary Store a property
// @Tags Properties
// @Accept json
// @Produce json
// @Param name path string true "Property name"
// @Param payload body dto.PutPropertyRequest true "Value"
// @Success 200 {object} response.Envelope
// @Router /properties/{name} [put]
func (h *PropertyHandler) Put(c *gin.Context) {
	var req dto.PutPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid property payload"))
		return
	}
	name := c.Param("name")
	if err := h.service.Put(c.Request.Context(), name, *req.Value); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.PropertyResponse{Name: name, Value: *req.Value})
}

// Delete godoc
// @Summary Remove a property
// @Tags Properties
// @Param name path string true "Property name"
// @Success 204
// @Router /properties/{name} [delete]
func (h *PropertyHandler) Delete(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), c.Param("name")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reset godoc
// @Summary Remove every property
// @Tags Properties
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /properties [delete]
func (h *PropertyHandler) Reset(c *gin.Context) {
	removed, err := h.service.Reset(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ResetPropertiesResponse{Removed: removed})
}
