package wormhole

import (
	stdsha256 "crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill32(b byte) [32]byte {
	var out [32]byte
	for i := range out {
		out[i] = b
	}
	return out
}

// referenceDeadAddress recomputes the derivation step by step with the standard library hash.
func referenceDeadAddress(secret, nonce [32]byte, amount uint64, bindAmount bool) common.Address {
	secretHash := stdsha256.Sum256(secret[:])
	saltInput := append(secretHash[:], nonce[:]...)
	if bindAmount {
		var amt [8]byte
		binary.BigEndian.PutUint64(amt[:], amount)
		saltInput = append(saltInput, amt[:]...)
	}
	salt := stdsha256.Sum256(saltInput)

	preimage := []byte{0xff}
	for i := 0; i < 20; i++ {
		preimage = append(preimage, 0x01)
	}
	preimage = append(preimage, salt[:]...)
	preimage = append(preimage, make([]byte, 32)...)
	full := stdsha256.Sum256(preimage)
	return common.BytesToAddress(full[12:])
}

func TestDeriveDeadAddress_Scenario(t *testing.T) {
	secret := fill32(0x42)
	nonce := fill32(0x99)

	got := DeriveDeadAddress(secret, nonce, 1000, SaltBindsAmount)
	assert.Equal(t, common.HexToAddress("0xaa1cdb52d67a68e4ff914d665dc77ea084431063"), got)
	assert.Equal(t, referenceDeadAddress(secret, nonce, 1000, true), got)

	omitted := DeriveDeadAddress(secret, nonce, 1000, SaltOmitsAmount)
	assert.Equal(t, common.HexToAddress("0x73cee90f04476a411bf7e9fd96e36a633d2a8bce"), omitted)
	assert.Equal(t, referenceDeadAddress(secret, nonce, 0, false), omitted)
	assert.NotEqual(t, got, omitted)
}

func TestDeriveDeadAddress_Deterministic(t *testing.T) {
	secret := fill32(0x42)
	nonce := fill32(0x99)

	first := DeriveDeadAddress(secret, nonce, 1000, SaltBindsAmount)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, DeriveDeadAddress(secret, nonce, 1000, SaltBindsAmount))
	}

	otherNonce := nonce
	otherNonce[31] ^= 0x01
	assert.NotEqual(t, first, DeriveDeadAddress(secret, otherNonce, 1000, SaltBindsAmount))

	otherSecret := secret
	otherSecret[0] ^= 0x80
	assert.NotEqual(t, first, DeriveDeadAddress(otherSecret, nonce, 1000, SaltBindsAmount))

	assert.NotEqual(t, first, DeriveDeadAddress(secret, nonce, 1001, SaltBindsAmount))
}

func TestDeriveDeadAddress_OmitAmountIgnoresAmount(t *testing.T) {
	secret := fill32(0x01)
	nonce := fill32(0x02)
	assert.Equal(t,
		DeriveDeadAddress(secret, nonce, 1, SaltOmitsAmount),
		DeriveDeadAddress(secret, nonce, 5000, SaltOmitsAmount))
}

func TestVerifyDeadAddress_AntiForgery(t *testing.T) {
	secret := fill32(0x42)
	nonce := fill32(0x99)
	dead := DeriveDeadAddress(secret, nonce, 1000, SaltBindsAmount)

	require.NoError(t, VerifyDeadAddress(dead, secret, nonce, 1000, SaltBindsAmount))

	for i := 0; i < common.AddressLength; i++ {
		forged := dead
		forged[i] ^= 0xff
		err := VerifyDeadAddress(forged, secret, nonce, 1000, SaltBindsAmount)
		require.Error(t, err, "byte %d", i)
		assert.Equal(t, KindIdentityMismatch, KindOf(err))
		assert.True(t, errors.Is(err, ErrIdentityMismatch))
	}
}

func TestDeadAddressHash(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000deadbeef")
	want := stdsha256.Sum256(addr.Bytes())
	assert.Equal(t, common.Hash(want), DeadAddressHash(addr))
}

func TestAuditBalance(t *testing.T) {
	tests := []struct {
		name    string
		balance uint64
		amount  uint64
		claimed uint64
		pass    bool
	}{
		{"insufficient", 500, 1000, 0, false},
		{"sufficient with claimed", 1500, 1000, 200, true},
		{"exact boundary", 1200, 1000, 200, true},
		{"one below boundary", 1199, 1000, 200, false},
		{"zero request zero balance", 0, 0, 0, true},
		{"claimed exceeds balance", 1000, 0, 1001, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AuditBalance(uint256.NewInt(tt.balance), tt.amount, uint256.NewInt(tt.claimed))
			if tt.pass {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, KindInsufficientFunds, KindOf(err))
			assert.ErrorIs(t, err, ErrInsufficientFunds)
		})
	}
}

func TestAuditBalance_Overflow(t *testing.T) {
	maxU256 := new(uint256.Int).SetAllOne()
	err := AuditBalance(maxU256, 1, maxU256)
	require.Error(t, err)
	assert.Equal(t, KindInsufficientFunds, KindOf(err))
}

func TestAuditBalance_NilCounters(t *testing.T) {
	assert.NoError(t, AuditBalance(uint256.NewInt(10), 10, nil))
	assert.Error(t, AuditBalance(nil, 1, nil))
}

func TestComputeNullifier_Sensitivity(t *testing.T) {
	dead := common.HexToAddress("0x1111111111111111111111111111111111111111")
	receiver := common.HexToAddress("0xABABABABABABABABABABABABABABABABABABABAB")
	blockHash := common.HexToHash("0x01")
	contract := common.HexToAddress("0x4C6D1355Ff9922ac12Bd2BBA55d1E2CB9101BbCE")
	data := []byte{0xca, 0xfe}

	base := ComputeNullifier(dead, receiver, 1000, blockHash, contract, data)
	assert.Equal(t, base, ComputeNullifier(dead, receiver, 1000, blockHash, contract, data))

	flip := func(a common.Address) common.Address { a[19] ^= 0x01; return a }
	variants := map[string]common.Hash{
		"deadAddress":     ComputeNullifier(flip(dead), receiver, 1000, blockHash, contract, data),
		"receiver":        ComputeNullifier(dead, flip(receiver), 1000, blockHash, contract, data),
		"amount":          ComputeNullifier(dead, receiver, 1001, blockHash, contract, data),
		"blockHash":       ComputeNullifier(dead, receiver, 1000, common.HexToHash("0x02"), contract, data),
		"contractAddress": ComputeNullifier(dead, receiver, 1000, blockHash, flip(contract), data),
		"data":            ComputeNullifier(dead, receiver, 1000, blockHash, contract, []byte{0xca, 0xff}),
		"data empty":      ComputeNullifier(dead, receiver, 1000, blockHash, contract, nil),
	}
	for field, n := range variants {
		assert.NotEqual(t, base, n, "changing %s must change the nullifier", field)
	}
}

func TestComputeNullifier_Layout(t *testing.T) {
	dead := common.HexToAddress("0x1111111111111111111111111111111111111111")
	receiver := common.HexToAddress("0x2222222222222222222222222222222222222222")
	contract := common.HexToAddress("0x3333333333333333333333333333333333333333")
	blockHash := common.HexToHash("0x4444")

	var preimage []byte
	preimage = append(preimage, dead.Bytes()...)
	preimage = append(preimage, receiver.Bytes()...)
	preimage = append(preimage, 0, 0, 0, 0, 0, 0, 0x03, 0xe8)
	preimage = append(preimage, blockHash.Bytes()...)
	preimage = append(preimage, contract.Bytes()...)
	preimage = append(preimage, []byte("memo")...)

	assert.Equal(t, common.Hash(stdsha256.Sum256(preimage)),
		ComputeNullifier(dead, receiver, 1000, blockHash, contract, []byte("memo")))
}

func TestComputeProofHash(t *testing.T) {
	dead := common.HexToAddress("0x1111111111111111111111111111111111111111")
	receiver := common.HexToAddress("0x2222222222222222222222222222222222222222")
	preimage := append(append(dead.Bytes(), receiver.Bytes()...), 0, 0, 0, 0, 0, 0, 0x03, 0xe8)
	assert.Equal(t, common.Hash(stdsha256.Sum256(preimage)), ComputeProofHash(dead, receiver, 1000))
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("guest aborted: %w", NewError(KindSketchMismatch, "bind block hash", errors.New("header mismatch")))
	assert.Equal(t, KindSketchMismatch, KindOf(err))
	assert.ErrorIs(t, err, ErrSketchMismatch)
	assert.False(t, errors.Is(err, ErrInsufficientFunds))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, "sketch_mismatch", KindSketchMismatch.String())
	assert.Equal(t, KindInsufficientFunds, ParseErrorKind("insufficient_funds"))
	assert.Equal(t, KindUnknown, ParseErrorKind("bogus"))
}

func TestParseSaltPolicy(t *testing.T) {
	p, err := ParseSaltPolicy("omit-amount")
	require.NoError(t, err)
	assert.Equal(t, SaltOmitsAmount, p)

	p, err = ParseSaltPolicy("")
	require.NoError(t, err)
	assert.Equal(t, SaltBindsAmount, p)

	_, err = ParseSaltPolicy("sometimes")
	assert.Error(t, err)
}
