package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/config"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/wormhole"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/zkvm"
)

// ProverClient talks to a remote proving service. It implements zkvm.Engine.
type ProverClient struct {
	BaseURL string
	Client  *http.Client
}

var _ zkvm.Engine = (*ProverClient)(nil)

// NewProverClient Create a new prover client
func NewProverClient(baseURL string) *ProverClient {
	// Get timeout settings from configuration file, default 10 minutes
	timeout := 600 * time.Second

	if config.AppConfig != nil && config.AppConfig.ZKVM.Timeout > 0 {
		timeout = time.Duration(config.AppConfig.ZKVM.Timeout) * time.Second
	}

	log.Printf("🔧 [Prover] Create client: BaseURL=%s, Timeout=%v", baseURL, timeout)

	return &ProverClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetupRequest asks the service for the keys of a guest program
type SetupRequest struct {
	GuestID string `json:"guest_id"`
}

// SetupResponse carries the verifying key of a guest program
type SetupResponse struct {
	GuestID string      `json:"guest_id"`
	VKey    common.Hash `json:"vkey"`
}

// ExecuteRequest runs a guest without proving
type ExecuteRequest struct {
	GuestID string        `json:"guest_id"`
	Stdin   hexutil.Bytes `json:"stdin"`
}

// ExecuteResponse result of a dry run
type ExecuteResponse struct {
	PublicValues hexutil.Bytes `json:"public_values"`
	Cycles       uint64        `json:"cycles"`
	DurationMs   int64         `json:"duration_ms"`
}

// ProveRequest proves a guest run
type ProveRequest struct {
	GuestID string           `json:"guest_id"`
	Stdin   hexutil.Bytes    `json:"stdin"`
	System  zkvm.ProofSystem `json:"system"`
}

// VerifyRequest verifies a proof against a verifying key
type VerifyRequest struct {
	Proof *zkvm.ProofWithPublicValues `json:"proof"`
	VKey  common.Hash                 `json:"vkey"`
}

// VerifyResponse verification verdict
type VerifyResponse struct {
	Valid bool `json:"valid"`
}

// errorResponse is returned by the service with a non-200 status. ErrorKind
// uses the names of wormhole.ErrorKind when the guest itself aborted.
type errorResponse struct {
	ErrorKind    string `json:"error_kind"`
	ErrorMessage string `json:"error_message"`
}

func (c *ProverClient) Setup(ctx context.Context, guest zkvm.Guest) (*zkvm.ProvingKey, *zkvm.VerifyingKey, error) {
	var resp SetupResponse
	if err := c.post(ctx, "/api/zkvm/setup", &SetupRequest{GuestID: guest.ID()}, &resp); err != nil {
		return nil, nil, err
	}
	vk := &zkvm.VerifyingKey{Hash: resp.VKey}
	return &zkvm.ProvingKey{GuestID: guest.ID(), VKey: *vk}, vk, nil
}

func (c *ProverClient) Execute(ctx context.Context, guest zkvm.Guest, stdin *zkvm.Stdin) ([]byte, *zkvm.ExecutionReport, error) {
	encoded, err := stdin.Encode()
	if err != nil {
		return nil, nil, err
	}
	var resp ExecuteResponse
	if err := c.post(ctx, "/api/zkvm/execute", &ExecuteRequest{GuestID: guest.ID(), Stdin: encoded}, &resp); err != nil {
		return nil, nil, err
	}
	report := &zkvm.ExecutionReport{
		Cycles:   resp.Cycles,
		Duration: time.Duration(resp.DurationMs) * time.Millisecond,
	}
	return resp.PublicValues, report, nil
}

func (c *ProverClient) Prove(ctx context.Context, pk *zkvm.ProvingKey, stdin *zkvm.Stdin, system zkvm.ProofSystem) (*zkvm.ProofWithPublicValues, error) {
	if pk == nil {
		return nil, errors.New("prove: nil proving key")
	}
	encoded, err := stdin.Encode()
	if err != nil {
		return nil, err
	}
	var proof zkvm.ProofWithPublicValues
	if err := c.post(ctx, "/api/zkvm/prove", &ProveRequest{GuestID: pk.GuestID, Stdin: encoded, System: system}, &proof); err != nil {
		return nil, err
	}
	if proof.VKey != pk.VKey.Hash {
		return nil, wormhole.Errorf(wormhole.KindExternalService, "remote prove",
			"prover returned proof for vkey %s, expected %s", proof.VKey.Hex(), pk.VKey.Hash.Hex())
	}
	return &proof, nil
}

func (c *ProverClient) Verify(ctx context.Context, proof *zkvm.ProofWithPublicValues, vk *zkvm.VerifyingKey) error {
	var resp VerifyResponse
	if err := c.post(ctx, "/api/zkvm/verify", &VerifyRequest{Proof: proof, VKey: vk.Hash}, &resp); err != nil {
		return err
	}
	if !resp.Valid {
		return zkvm.ErrInvalidProof
	}
	return nil
}

func (c *ProverClient) post(ctx context.Context, path string, in, out interface{}) error {
	op := "prover " + path
	jsonData, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return wormhole.NewError(wormhole.KindExternalService, op, fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return wormhole.NewError(wormhole.KindExternalService, op, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("❌ [Prover] %s failed: status=%d", path, resp.StatusCode)
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.ErrorKind != "" {
			// the guest aborted remotely; keep its classification
			if kind := wormhole.ParseErrorKind(errResp.ErrorKind); kind != wormhole.KindUnknown {
				return wormhole.Errorf(kind, op, "%s", errResp.ErrorMessage)
			}
		}
		return wormhole.Errorf(wormhole.KindExternalService, op,
			"prover service returned error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return wormhole.NewError(wormhole.KindExternalService, op, fmt.Errorf("failed to unmarshal response: %w", err))
	}
	return nil
}
