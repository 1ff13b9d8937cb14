package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// WithdrawProofRequest is the body of the execute and prove endpoints.
// Secret and nonce are 32-byte hex strings; they are used for the run and
// never stored.
type WithdrawProofRequest struct {
	Secret          string `json:"secret" binding:"required"`
	Nonce           string `json:"nonce" binding:"required"`
	Amount          uint64 `json:"amount" binding:"required"`
	Receiver        string `json:"receiver" binding:"required"`
	ContractAddress string `json:"contract_address,omitempty"` // defaults to the configured token
	Data            string `json:"data,omitempty"`             // hex, optional
	ProofSystem     string `json:"proof_system,omitempty"`     // groth16 | plonk
}

// DeadAddressRequest asks for the dead address of a secret/nonce pair
type DeadAddressRequest struct {
	Secret string `json:"secret" binding:"required"`
	Nonce  string `json:"nonce" binding:"required"`
	Amount uint64 `json:"amount"`
}

// DeadAddressResponse answers DeadAddressRequest
type DeadAddressResponse struct {
	DeadAddress     string `json:"dead_address"`
	DeadAddressHash string `json:"dead_address_hash"`
	SaltPolicy      string `json:"salt_policy"`
}

// ParsePublicValuesRequest decodes a public values record
type ParsePublicValuesRequest struct {
	PublicValues string `json:"public_values" binding:"required"`
	Version      string `json:"version,omitempty"` // defaults to the configured version
}

// ParseBytes32 parses a 0x-prefixed (or bare) 32-byte hex string
func ParseBytes32(field, s string) ([32]byte, error) {
	var out [32]byte
	b, err := hexutil.Decode(with0x(s))
	if err != nil {
		return out, fmt.Errorf("%s: %w", field, err)
	}
	if len(b) != 32 {
		return out, fmt.Errorf("%s: expected 32 bytes, got %d", field, len(b))
	}
	copy(out[:], b)
	return out, nil
}

// ParseAddress parses a hex address
func ParseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", field, s)
	}
	return common.HexToAddress(s), nil
}

// ParseHexData parses optional hex data; empty input yields nil
func ParseHexData(field, s string) ([]byte, error) {
	if s == "" || s == "0x" {
		return nil, nil
	}
	b, err := hexutil.Decode(with0x(s))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return b, nil
}

func with0x(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}
