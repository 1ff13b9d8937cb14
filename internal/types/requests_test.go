package types

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBytes32(t *testing.T) {
	want := common.HexToHash("0x" + strings.Repeat("42", 32))

	got, err := ParseBytes32("secret", "0x"+strings.Repeat("42", 32))
	require.NoError(t, err)
	assert.Equal(t, [32]byte(want), got)

	got, err = ParseBytes32("secret", strings.Repeat("42", 32))
	require.NoError(t, err)
	assert.Equal(t, [32]byte(want), got)

	_, err = ParseBytes32("nonce", "0x1234")
	assert.ErrorContains(t, err, "nonce: expected 32 bytes, got 2")

	_, err = ParseBytes32("nonce", "0xzz")
	assert.ErrorContains(t, err, "nonce:")
}

func TestParseAddressAndData(t *testing.T) {
	addr, err := ParseAddress("receiver", "0xABABABABABABABABABABABABABABABABABABABAB")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xabababababababababababababababababababab"), addr)

	_, err = ParseAddress("receiver", "0x1234")
	assert.ErrorContains(t, err, "receiver: invalid address")

	data, err := ParseHexData("data", "")
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = ParseHexData("data", "6d656d6f")
	require.NoError(t, err)
	assert.Equal(t, []byte("memo"), data)

	_, err = ParseHexData("data", "0x123")
	assert.Error(t, err)
}
