package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/config"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/handlers"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/middleware"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/models"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/services"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/sketch/sketchtest"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/types"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/wormhole"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/zkvm"
)

const jwtSecret = "router-test-secret"

var (
	tokenAddr = common.HexToAddress("0x4C6D1355Ff9922ac12Bd2BBA55d1E2CB9101BbCE")
	receiver  = "0xABABABABABABABABABABABABABABABABABABABAB"
	secretHex = "0x" + repeat("42", 32)
	nonceHex  = "0x" + repeat("99", 32)
)

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}

// stubRuns serves one known run
type stubRuns struct {
	run *models.WithdrawProofTask
}

func (s *stubRuns) Create(ctx context.Context, task *models.WithdrawProofTask) error { return nil }

func (s *stubRuns) GetByID(ctx context.Context, id string) (*models.WithdrawProofTask, error) {
	if id != s.run.ID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.run, nil
}

func (s *stubRuns) FindByNullifier(ctx context.Context, nullifier string) ([]*models.WithdrawProofTask, error) {
	if nullifier != s.run.Nullifier {
		return nil, nil
	}
	return []*models.WithdrawProofTask{s.run}, nil
}

func (s *stubRuns) List(ctx context.Context, page, pageSize int) ([]*models.WithdrawProofTask, int64, error) {
	return []*models.WithdrawProofTask{s.run}, 1, nil
}

func (s *stubRuns) MarkProcessing(ctx context.Context, id string) error { return nil }

func (s *stubRuns) MarkCompleted(ctx context.Context, task *models.WithdrawProofTask) error {
	return nil
}

func (s *stubRuns) MarkFailed(ctx context.Context, id, errorKind, lastError string) error {
	return nil
}

type api struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newAPI(t *testing.T, balance, claimed uint64) *api {
	t.Helper()
	return newAPIWithSecret(t, balance, claimed, jwtSecret)
}

func newAPIWithSecret(t *testing.T, balance, claimed uint64, authSecret string) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	secret, err := types.ParseBytes32("secret", secretHex)
	require.NoError(t, err)
	nonce, err := types.ParseBytes32("nonce", nonceHex)
	require.NoError(t, err)
	dead := wormhole.DeriveDeadAddress(secret, nonce, 1000, wormhole.SaltBindsAmount)
	chain, err := sketchtest.NewTokenChain(tokenAddr, dead, wormhole.DeadAddressHash(dead), balance, claimed)
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	svc := services.NewWithdrawProofService(chain, zkvm.NewLocalEngine(0), services.Options{
		Version:    types.ProtocolV2Nullifier,
		Salt:       wormhole.SaltBindsAmount,
		SelfVerify: true,
	}, log)

	runs := &stubRuns{run: &models.WithdrawProofTask{ID: "run-1", Nullifier: "0xabc", Status: models.WithdrawProofTaskStatusCompleted}}
	r := SetupRouter(&Dependencies{
		Proofs: handlers.NewProofHandler(svc, tokenAddr, log),
		Runs:   handlers.NewRunsHandler(runs),
		Auth:   middleware.NewAuthMiddleware(log, authSecret),
		CORS:   config.CORSConfig{AllowedOrigins: []string{"https://app.example"}},
		Logger: log,
	})

	a := &api{t: t, router: r}
	if authSecret != "" {
		a.token, _, err = middleware.GenerateToken([]byte(authSecret), "tester", time.Hour)
		require.NoError(t, err)
	}
	return a
}

func (a *api) do(method, path string, body interface{}, auth bool) (*httptest.ResponseRecorder, map[string]interface{}) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func withdrawBody() *types.WithdrawProofRequest {
	return &types.WithdrawProofRequest{
		Secret:   secretHex,
		Nonce:    nonceHex,
		Amount:   1000,
		Receiver: receiver,
		Data:     "0x6d656d6f",
	}
}

func TestExecuteEndpoint(t *testing.T) {
	a := newAPI(t, 1500, 200)

	w, body := a.do(http.MethodPost, "/api/v1/withdrawals/execute", withdrawBody(), true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "execute", body["mode"])

	decoded := body["decoded"].(map[string]interface{})
	assert.Equal(t, "0x6d656d6f", decoded["data"])
	assert.Equal(t, tokenAddr.Hex(), decoded["contract_address"])

	// the returned record parses back through the helper endpoint
	w, parsed := a.do(http.MethodPost, "/api/v1/public-values/parse", &types.ParsePublicValuesRequest{
		PublicValues: body["public_values"].(string),
	}, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, decoded["nullifier"], parsed["decoded"].(map[string]interface{})["nullifier"])
}

func TestProveEndpoint(t *testing.T) {
	a := newAPI(t, 1500, 0)
	req := withdrawBody()
	req.ProofSystem = "plonk"

	w, body := a.do(http.MethodPost, "/api/v1/withdrawals/prove", req, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "plonk", body["proof_system"])
	assert.NotEmpty(t, body["proof"])

	w, vk := a.do(http.MethodGet, "/api/v1/vkey", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, vk["vkey"], body["vkey"])
	assert.Equal(t, "zk-wormhole/v2/bind-amount", vk["program"])
}

func TestWithdrawErrorStatuses(t *testing.T) {
	a := newAPI(t, 500, 0)

	w, body := a.do(http.MethodPost, "/api/v1/withdrawals/execute", withdrawBody(), true)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "insufficient_funds", body["error"])

	bad := withdrawBody()
	bad.Secret = "0x1234"
	w, _ = a.do(http.MethodPost, "/api/v1/withdrawals/execute", bad, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	bad = withdrawBody()
	bad.ProofSystem = "stark"
	w, _ = a.do(http.MethodPost, "/api/v1/withdrawals/prove", bad, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = a.do(http.MethodPost, "/api/v1/withdrawals/execute", withdrawBody(), false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeadAddressEndpoint(t *testing.T) {
	a := newAPI(t, 0, 0)

	w, body := a.do(http.MethodPost, "/api/v1/dead-address", &types.DeadAddressRequest{
		Secret: secretHex, Nonce: nonceHex, Amount: 1000,
	}, true)
	require.Equal(t, http.StatusOK, w.Code)

	secret, _ := types.ParseBytes32("secret", secretHex)
	nonce, _ := types.ParseBytes32("nonce", nonceHex)
	want := wormhole.DeriveDeadAddress(secret, nonce, 1000, wormhole.SaltBindsAmount)
	assert.Equal(t, want.Hex(), body["dead_address"])
	assert.Equal(t, wormhole.DeadAddressHash(want).Hex(), body["dead_address_hash"])
	assert.Equal(t, "bind-amount", body["salt_policy"])

	w, _ = a.do(http.MethodPost, "/api/v1/dead-address", &types.DeadAddressRequest{Secret: secretHex, Nonce: nonceHex}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProtectedRoutesRejectWithoutSecret(t *testing.T) {
	a := newAPIWithSecret(t, 1500, 0, "")

	w, body := a.do(http.MethodPost, "/api/v1/dead-address", &types.DeadAddressRequest{
		Secret: secretHex, Nonce: nonceHex, Amount: 1000,
	}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_NOT_CONFIGURED", body["code"])

	w, _ = a.do(http.MethodPost, "/api/v1/withdrawals/execute", withdrawBody(), false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = a.do(http.MethodGet, "/api/v1/runs", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = a.do(http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestParsePublicValuesRejectsShortRecord(t *testing.T) {
	a := newAPI(t, 0, 0)
	w, body := a.do(http.MethodPost, "/api/v1/public-values/parse", &types.ParsePublicValuesRequest{
		PublicValues: hexutil.Encode(make([]byte, 100)),
	}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_public_values", body["error"])

	w, _ = a.do(http.MethodPost, "/api/v1/public-values/parse", &types.ParsePublicValuesRequest{
		PublicValues: hexutil.Encode(make([]byte, types.PublicValuesV1Len)),
		Version:      "v1",
	}, false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRunsEndpoints(t *testing.T) {
	a := newAPI(t, 0, 0)

	w, body := a.do(http.MethodGet, "/api/v1/runs/run-1", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "run-1", body["run"].(map[string]interface{})["id"])

	w, _ = a.do(http.MethodGet, "/api/v1/runs/missing", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = a.do(http.MethodGet, "/api/v1/runs", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["total"])

	w, body = a.do(http.MethodGet, "/api/v1/nullifiers/0xabc/runs", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["runs"], 1)
}

func TestHealthMetricsAndCORS(t *testing.T) {
	a := newAPI(t, 0, 0)

	w, body := a.do(http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])

	w, _ = a.do(http.MethodGet, "/metrics", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "wormhole_http_requests_total")

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/withdrawals/execute", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
