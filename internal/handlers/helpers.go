package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/services"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/wormhole"
)

// respondWithError unified error response function
func respondWithError(c *gin.Context, statusCode int, errorType, message string, details interface{}) {
	response := gin.H{
		"success": false,
		"error":   errorType,
		"message": message,
	}
	if details != nil {
		response["details"] = details
	}
	c.JSON(statusCode, response)
}

// StatusForError maps a run error to an HTTP status
func StatusForError(err error) int {
	if errors.Is(err, services.ErrProverBusy) {
		return http.StatusServiceUnavailable
	}
	switch wormhole.KindOf(err) {
	case wormhole.KindIdentityMismatch, wormhole.KindMalformedInput:
		return http.StatusBadRequest
	case wormhole.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case wormhole.KindSketchMismatch:
		return http.StatusConflict
	case wormhole.KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondWithRunError writes err with its mapped status
func respondWithRunError(c *gin.Context, err error) {
	status := StatusForError(err)
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "30")
		respondWithError(c, status, "prover_busy", err.Error(), nil)
		return
	}
	respondWithError(c, status, wormhole.KindOf(err).String(), err.Error(), nil)
}
