package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/services"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/wormhole"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/zkvm"
)

func TestStatusForError(t *testing.T) {
	cycleErr := zkvm.NewEnv(zkvm.NewStdin(), 1).Charge(2)
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"identity", wormhole.NewError(wormhole.KindIdentityMismatch, "audit", wormhole.ErrIdentityMismatch), http.StatusBadRequest},
		{"malformed", wormhole.NewError(wormhole.KindMalformedInput, "stdin", errors.New("short read")), http.StatusBadRequest},
		{"insufficient", wormhole.NewError(wormhole.KindInsufficientFunds, "audit", wormhole.ErrInsufficientFunds), http.StatusUnprocessableEntity},
		{"sketch", wormhole.NewError(wormhole.KindSketchMismatch, "sketch", wormhole.ErrSketchMismatch), http.StatusConflict},
		{"external", wormhole.NewError(wormhole.KindExternalService, "rpc", errors.New("dial tcp")), http.StatusBadGateway},
		{"wrapped", fmt.Errorf("run: %w", wormhole.NewError(wormhole.KindSketchMismatch, "sketch", wormhole.ErrSketchMismatch)), http.StatusConflict},
		{"cycle limit", cycleErr, http.StatusBadGateway},
		{"busy", services.ErrProverBusy, http.StatusServiceUnavailable},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusForError(tt.err))
		})
	}
}

func TestRespondWithRunErrorBusy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondWithRunError(c, services.ErrProverBusy)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "prover_busy")
}
