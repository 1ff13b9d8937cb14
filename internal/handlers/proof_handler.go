package handlers

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/services"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/types"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/wormhole"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/zkvm"
)

// ProofHandler serves withdrawal runs and the protocol helpers
type ProofHandler struct {
	service         *services.WithdrawProofService
	defaultContract common.Address
	version         types.ProtocolVersion
	salt            wormhole.SaltPolicy
	logger          *logrus.Logger
}

// NewProofHandler creates the handler
func NewProofHandler(service *services.WithdrawProofService, defaultContract common.Address, logger *logrus.Logger) *ProofHandler {
	program := service.Program()
	return &ProofHandler{
		service:         service,
		defaultContract: defaultContract,
		version:         program.Version,
		salt:            program.Salt,
		logger:          logger,
	}
}

// WithdrawProofResponse is returned by the execute and prove endpoints
type WithdrawProofResponse struct {
	Success      bool                    `json:"success"`
	RunID        string                  `json:"run_id"`
	Mode         string                  `json:"mode"`
	DeadAddress  string                  `json:"dead_address"`
	BlockNumber  uint64                  `json:"block_number,omitempty"`
	BlockHash    string                  `json:"block_hash,omitempty"`
	PublicValues string                  `json:"public_values"`
	Decoded      *types.PublicValuesView `json:"decoded"`
	Cycles       uint64                  `json:"cycles"`
	SketchBytes  int                     `json:"sketch_bytes,omitempty"`
	ProofSystem  string                  `json:"proof_system,omitempty"`
	Proof        string                  `json:"proof,omitempty"`
	VKey         string                  `json:"vkey,omitempty"`
	FixturePath  string                  `json:"fixture_path,omitempty"`
	DurationMs   int64                   `json:"duration_ms"`
}

// ExecuteHandler dry-runs a withdrawal
// POST /api/v1/withdrawals/execute
func (h *ProofHandler) ExecuteHandler(c *gin.Context) {
	h.run(c, services.ModeExecute)
}

// ProveHandler generates a withdrawal proof
// POST /api/v1/withdrawals/prove
func (h *ProofHandler) ProveHandler(c *gin.Context) {
	h.run(c, services.ModeProve)
}

func (h *ProofHandler) run(c *gin.Context, mode services.Mode) {
	var req types.WithdrawProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	params, err := h.paramsFrom(&req)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	result, err := h.service.Run(c.Request.Context(), params, mode)
	if err != nil {
		respondWithRunError(c, err)
		return
	}

	resp := &WithdrawProofResponse{
		Success:      true,
		RunID:        result.RunID,
		Mode:         string(result.Mode),
		DeadAddress:  result.DeadAddress.Hex(),
		BlockNumber:  result.BlockNumber,
		PublicValues: result.PublicValues.String(),
		Decoded:      result.Decoded.View(),
		Cycles:       result.Cycles,
		SketchBytes:  result.SketchBytes,
		FixturePath:  result.FixturePath,
		DurationMs:   result.Duration.Milliseconds(),
	}
	if result.BlockHash != (common.Hash{}) {
		resp.BlockHash = result.BlockHash.Hex()
	}
	if result.Proof != nil {
		resp.ProofSystem = string(result.Proof.System)
		resp.Proof = result.Proof.Proof.String()
	}
	if result.VKey != nil {
		resp.VKey = result.VKey.Bytes32()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProofHandler) paramsFrom(req *types.WithdrawProofRequest) (*services.WithdrawParams, error) {
	secret, err := types.ParseBytes32("secret", req.Secret)
	if err != nil {
		return nil, err
	}
	nonce, err := types.ParseBytes32("nonce", req.Nonce)
	if err != nil {
		return nil, err
	}
	receiver, err := types.ParseAddress("receiver", req.Receiver)
	if err != nil {
		return nil, err
	}
	contract := h.defaultContract
	if req.ContractAddress != "" {
		if contract, err = types.ParseAddress("contract_address", req.ContractAddress); err != nil {
			return nil, err
		}
	}
	data, err := types.ParseHexData("data", req.Data)
	if err != nil {
		return nil, err
	}
	var system zkvm.ProofSystem
	if req.ProofSystem != "" {
		if system, err = zkvm.ParseProofSystem(req.ProofSystem); err != nil {
			return nil, err
		}
	}
	return &services.WithdrawParams{
		Secret:          secret,
		Nonce:           nonce,
		Amount:          req.Amount,
		Receiver:        receiver,
		ContractAddress: contract,
		Data:            data,
		System:          system,
	}, nil
}

// DeadAddressHandler computes the dead address of a secret/nonce pair
// POST /api/v1/dead-address
func (h *ProofHandler) DeadAddressHandler(c *gin.Context) {
	var req types.DeadAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	secret, err := types.ParseBytes32("secret", req.Secret)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	nonce, err := types.ParseBytes32("nonce", req.Nonce)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	if h.salt == wormhole.SaltBindsAmount && req.Amount == 0 {
		respondWithError(c, http.StatusBadRequest, "invalid_request", "amount is required when the salt binds the amount", nil)
		return
	}

	dead := wormhole.DeriveDeadAddress(secret, nonce, req.Amount, h.salt)
	c.JSON(http.StatusOK, &types.DeadAddressResponse{
		DeadAddress:     dead.Hex(),
		DeadAddressHash: wormhole.DeadAddressHash(dead).Hex(),
		SaltPolicy:      h.salt.String(),
	})
}

// ParsePublicValuesHandler decodes a public values record
// POST /api/v1/public-values/parse
func (h *ProofHandler) ParsePublicValuesHandler(c *gin.Context) {
	var req types.ParsePublicValuesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	version := h.version
	if req.Version != "" {
		v, err := types.ParseProtocolVersion(req.Version)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, "invalid_request", err.Error(), nil)
			return
		}
		version = v
	}
	pv, err := types.ParsePublicValuesHex(version, req.PublicValues)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid_public_values", err.Error(), nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"decoded": pv.View(),
	})
}

// VKeyHandler returns the verifying key of the configured guest
// GET /api/v1/vkey
func (h *ProofHandler) VKeyHandler(c *gin.Context) {
	vk, err := h.service.VerifyingKey(c.Request.Context())
	if err != nil {
		respondWithRunError(c, err)
		return
	}
	program := h.service.Program()
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"program":          program.ID(),
		"protocol_version": program.Version.String(),
		"salt_policy":      program.Salt.String(),
		"vkey":             vk.Bytes32(),
	})
}
