package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/repository"
)

// RunsHandler exposes the proof run ledger
type RunsHandler struct {
	repo repository.WithdrawProofTaskRepository
}

// NewRunsHandler creates the handler
func NewRunsHandler(repo repository.WithdrawProofTaskRepository) *RunsHandler {
	return &RunsHandler{repo: repo}
}

// ListRunsHandler
// GET /api/v1/runs?page=1&size=20
func (h *RunsHandler) ListRunsHandler(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	runs, total, err := h.repo.List(c.Request.Context(), page, size)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, "database_error", err.Error(), nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"runs":    runs,
		"total":   total,
		"page":    page,
	})
}

// GetRunHandler
// GET /api/v1/runs/:id
func (h *RunsHandler) GetRunHandler(c *gin.Context) {
	run, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && run == nil) {
		respondWithError(c, http.StatusNotFound, "not_found", "run not found", nil)
		return
	}
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, "database_error", err.Error(), nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "run": run})
}

// RunsByNullifierHandler
// GET /api/v1/nullifiers/:nullifier/runs
func (h *RunsHandler) RunsByNullifierHandler(c *gin.Context) {
	runs, err := h.repo.FindByNullifier(c.Request.Context(), c.Param("nullifier"))
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, "database_error", err.Error(), nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "runs": runs})
}
