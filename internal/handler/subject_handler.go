package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/smouldering-durtles/wk-search/internal/adapter"
	"github.com/smouldering-durtles/wk-search/internal/dto"
	"github.com/smouldering-durtles/wk-search/internal/models"
	appErrors "github.com/smouldering-durtles/wk-search/pkg/errors"
	"github.com/smouldering-durtles/wk-search/pkg/response"
)

type subjectService interface {
	GetByID(ctx context.Context, id int64) (*models.Subject, error)
	SearchSuggestions(ctx context.Context, query string, limit int) []models.Subject
	Upsert(ctx context.Context, subject models.Subject) error
	SearchKeys(ctx context.Context, id int64) ([]string, error)
}

// SubjectHandler exposes the subject store.
type SubjectHandler struct {
	service subjectService
}

// NewSubjectHandler builds a new handler.
func NewSubjectHandler(service subjectService) *SubjectHandler {
	return &SubjectHandler{service: service}
}

func subjectID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid subject id"))
		return 0, false
	}
	return id, true
}

// Get godoc
// @Summary Get subject by id
// @Tags Subjects
// @Produce json
// @Param id path int true "Subject ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id} [get]
func (h *SubjectHandler) Get(c *gin.Context) {
	id, ok := subjectID(c)
	if !ok {
		return
	}
	subject, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject)
}

// Put godoc
// @Summary Insert or replace a subject
// @Tags Subjects
// @Accept json
// @Produce json
// @Param id path int true "Subject ID"
// @Param payload body models.Subject true "Subject"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /subjects/{id} [put]
func (h *SubjectHandler) Put(c *gin.Context) {
	id, ok := subjectID(c)
	if !ok {
		return
	}
	var subject models.Subject
	if err := c.ShouldBindJSON(&subject); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subject payload"))
		return
	}
	if subject.ID == 0 {
		subject.ID = id
	}
	if subject.ID != id {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "subject id does not match path"))
		return
	}
	if err := h.service.Upsert(c.Request.Context(), subject); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject)
}

// Keys godoc
// @Summary List the search keys indexed for a subject
// @Tags Subjects
// @Produce json
// @Param id path int true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id}/keys [get]
func (h *SubjectHandler) Keys(c *gin.Context) {
	id, ok := subjectID(c)
	if !ok {
		return
	}
	keys, err := h.service.SearchKeys(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	response.JSON(c, http.StatusOK, dto.SubjectKeysResponse{ID: id, Keys: keys})
}

// Suggest godoc
// @Summary Search results grouped for list views
// @Tags Subjects
// @Produce json
// @Param q query string true "Query text"
// @Param limit query int false "Maximum number of subjects"
// @Success 200 {object} response.Envelope
// @Router /suggestions [get]
func (h *SubjectHandler) Suggest(c *gin.Context) {
	q, ok := c.GetQuery("q")
	if !ok {
		response.Error(c, appErrors.ErrInputInvalid)
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid limit"))
			return
		}
		limit = parsed
	}
	subjects := h.service.SearchSuggestions(c.Request.Context(), q, limit)
	response.JSON(c, http.StatusOK, adapter.Items(subjects), map[string]interface{}{"count": len(subjects)})
}
