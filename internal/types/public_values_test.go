package types

import (
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleV2() *PublicValues {
	return &PublicValues{
		Version:         ProtocolV2Nullifier,
		Amount:          1000,
		Receiver:        common.HexToAddress("0xABABABABABABABABABABABABABABABABABABABAB"),
		Nullifier:       common.HexToHash("0x01"),
		DeadAddressHash: common.HexToHash("0x02"),
		BlockHash:       common.HexToHash("0x03"),
		ContractAddress: common.HexToAddress("0x4C6D1355Ff9922ac12Bd2BBA55d1E2CB9101BbCE"),
		Data:            []byte{0xde, 0xad},
	}
}

func TestPublicValuesV2Layout(t *testing.T) {
	pv := sampleV2()
	b, err := pv.Encode()
	require.NoError(t, err)
	require.Len(t, b, PublicValuesV2PrefixLen+2)
	assert.Equal(t, 144, PublicValuesV2PrefixLen)

	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0x03, 0xe8}, b[0:8])
	assert.Equal(t, pv.Receiver.Bytes(), b[8:28])
	assert.Equal(t, pv.Nullifier.Bytes(), b[28:60])
	assert.Equal(t, pv.DeadAddressHash.Bytes(), b[60:92])
	assert.Equal(t, pv.BlockHash.Bytes(), b[92:124])
	assert.Equal(t, pv.ContractAddress.Bytes(), b[124:144])
	assert.Equal(t, []byte{0xde, 0xad}, b[144:])

	decoded, err := DecodePublicValues(ProtocolV2Nullifier, b)
	require.NoError(t, err)
	assert.Equal(t, pv, decoded)
}

func TestPublicValuesV2EmptyData(t *testing.T) {
	pv := sampleV2()
	pv.Data = nil
	b, err := pv.Encode()
	require.NoError(t, err)
	assert.Len(t, b, PublicValuesV2PrefixLen)

	decoded, err := DecodePublicValues(ProtocolV2Nullifier, b)
	require.NoError(t, err)
	assert.Empty(t, decoded.Data)
}

func TestPublicValuesV1Layout(t *testing.T) {
	pv := &PublicValues{
		Version:   ProtocolV1ProofHash,
		Amount:    7,
		Receiver:  common.HexToAddress("0x2222222222222222222222222222222222222222"),
		ProofHash: common.HexToHash("0xbeef"),
	}
	b, err := pv.Encode()
	require.NoError(t, err)
	require.Len(t, b, 60)
	assert.Equal(t, byte(7), b[7])
	assert.Equal(t, pv.ProofHash.Bytes(), b[28:])

	_, err = DecodePublicValues(ProtocolV1ProofHash, append(b, 0x00))
	assert.Error(t, err)
}

func TestDecodePublicValuesErrors(t *testing.T) {
	_, err := DecodePublicValues(ProtocolV2Nullifier, make([]byte, PublicValuesV2PrefixLen-1))
	assert.Error(t, err)

	_, err = DecodePublicValues(ProtocolVersion(9), make([]byte, 200))
	assert.Error(t, err)

	_, err = (&PublicValues{Version: 0}).Encode()
	assert.Error(t, err)
}

func TestParsePublicValuesHex(t *testing.T) {
	b, err := sampleV2().Encode()
	require.NoError(t, err)

	parsed, err := ParsePublicValuesHex(ProtocolV2Nullifier, "0x"+hex.EncodeToString(b))
	require.NoError(t, err)
	view := parsed.View()
	assert.Equal(t, "v2", view.Version)
	assert.Equal(t, uint64(1000), view.Amount)
	assert.Equal(t, "0xdead", view.Data)
	assert.Empty(t, view.ProofHash)

	nullifier, err := ExtractNullifier(hex.EncodeToString(b))
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x01").Hex(), nullifier)

	_, err = ParsePublicValuesHex(ProtocolV2Nullifier, "0xzz")
	assert.Error(t, err)
}

func TestParseProtocolVersion(t *testing.T) {
	for in, want := range map[string]ProtocolVersion{"1": ProtocolV1ProofHash, "v2": ProtocolV2Nullifier, " V2 ": ProtocolV2Nullifier} {
		got, err := ParseProtocolVersion(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseProtocolVersion("3")
	assert.Error(t, err)
	_, err = ParseProtocolVersion("latest")
	assert.Error(t, err)
}
