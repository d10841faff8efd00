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

type syncService interface {
	Submit(ctx context.Context, batch models.SubjectBatch) (string, error)
	Status(id string) (*models.SyncJobStatus, error)
	FullResync(ctx context.Context, subjects []models.Subject, cursor string) error
}

// SyncHandler receives subject batches from the sync collaborator.
type SyncHandler struct {
	service syncService
}

// NewSyncHandler builds a new handler.
func NewSyncHandler(service syncService) *SyncHandler {
	return &SyncHandler{service: service}
}

// Submit godoc
// @Summary Queue a batch of subjects
// @Tags Sync
// @Accept json
// @Produce json
// @Param payload body models.SubjectBatch true "Batch"
// @Success 202 {object} response.Envelope
// @Router /sync/subjects [post]
func (h *SyncHandler) Submit(c *gin.Context) {
	var batch models.SubjectBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid batch payload"))
		return
	}
	id, err := h.service.Submit(c.Request.Context(), batch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.SyncAcceptedResponse{JobID: id})
}

// Status godoc
// @Summary Status of a queued batch
// @Tags Sync
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /sync/jobs/{id} [get]
func (h *SyncHandler) Status(c *gin.Context) {
	status, err := h.service.Status(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status)
}

// FullResync godoc
// @Summary Replace every stored subject
// @Tags Sync
// @Accept json
// @Produce json
// @Param payload body dto.FullResyncRequest true "All subjects"
// @Success 200 {object} response.Envelope
// @Router /sync/full [post]
func (h *SyncHandler) FullResync(c *gin.Context) {
	var req dto.FullResyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid resync payload"))
		return
	}
	if err := h.service.FullResync(c.Request.Context(), req.Subjects, req.Cursor); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"subjects": len(req.Subjects)})
}
