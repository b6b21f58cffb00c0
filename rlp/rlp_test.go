package rlp

import (
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeByteStrings(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"empty string", "", "80"},
		{"single low byte", []byte{0x0f}, "0f"},
		{"zero byte", []byte{0x00}, "00"},
		{"boundary byte 0x7f", []byte{0x7f}, "7f"},
		{"boundary byte 0x80", []byte{0x80}, "8180"},
		{"dog", "dog", "83646f67"},
		{"55 bytes", strings.Repeat("a", 55), "b7" + strings.Repeat("61", 55)},
		{"56 bytes uses long form", "Lorem ipsum dolor sit amet, consectetur adipisicing elit", "b8384c6f72656d20697073756d20646f6c6f722073697420616d65742c20636f6e7365637465747572206164697069736963696e6720656c6974"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, hex.EncodeToString(got))
		})
	}
}

func TestEncodeIntegers(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"zero uint", uint64(0), "80"},
		{"fifteen", uint64(15), "0f"},
		{"1024", uint64(1024), "820400"},
		{"zero big.Int", big.NewInt(0), "80"},
		{"nil big.Int", (*big.Int)(nil), "80"},
		{"big value", new(big.Int).SetUint64(0xdeadbeef), "84deadbeef"},
		{"no leading zeros", big.NewInt(0x0100), "820100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, hex.EncodeToString(got))
		})
	}
}

func TestEncodeLists(t *testing.T) {
	catDog, err := Encode([]any{"cat", "dog"})
	require.NoError(t, err)
	assert.Equal(t, "c88363617483646f67", hex.EncodeToString(catDog))

	empty, err := Encode([]any{})
	require.NoError(t, err)
	assert.Equal(t, "c0", hex.EncodeToString(empty))

	// The set-theoretic representation of three: [ [], [[]], [ [], [[]] ] ].
	nested, err := Encode([]any{
		[]any{},
		[]any{[]any{}},
		[]any{[]any{}, []any{[]any{}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "c7c0c1c0c3c0c1c0", hex.EncodeToString(nested))
}

func TestEncodeListLongForm(t *testing.T) {
	items := make([]any, 0, 8)
	for i := 0; i < 8; i++ {
		items = append(items, strings.Repeat("x", 10))
	}
	out, err := Encode(items)
	require.NoError(t, err)
	// 8 items of 11 encoded bytes each = 88 payload bytes, needs 0xf8 header.
	require.Equal(t, byte(0xf8), out[0])
	assert.Equal(t, byte(88), out[1])
	assert.Len(t, out, 2+88)
}

func TestEncodeNegativeBigInt(t *testing.T) {
	_, err := Encode(big.NewInt(-1))
	assert.ErrorIs(t, err, ErrNegativeBigInt)
}

func TestEncodeUnsupportedType(t *testing.T) {
	_, err := Encode(3.14)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Encode([]any{"ok", struct{}{}})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestEncodeList(t *testing.T) {
	viaVariadic, err := EncodeList(uint64(1), "cat")
	require.NoError(t, err)
	viaSlice, err := Encode([]any{uint64(1), "cat"})
	require.NoError(t, err)
	assert.Equal(t, viaSlice, viaVariadic)
}

func TestDecodeRoundTrip(t *testing.T) {
	original := []any{
		[]byte("hello"),
		uint64(1024),
		[]any{
			[]byte{},
			[]byte{0x01},
			[]any{[]byte("deep")},
		},
		new(big.Int).SetUint64(1 << 40),
	}

	encoded, err := Encode(original)
	require.NoError(t, err)

	// Decode returns []byte leaves and []any lists, both of which Encode
	// accepts, so a decoded item re-encodes to the identical bytes.
	decoded, err := Decode(encoded)
	require.NoError(t, err)

	reencoded, err := Encode(decoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, reencoded)
}

func TestDecodeStructure(t *testing.T) {
	raw, err := hex.DecodeString("c88363617483646f67")
	require.NoError(t, err)

	item, err := Decode(raw)
	require.NoError(t, err)

	list, ok := item.([]any)
	require.True(t, ok)
	require.Len(t, list, 2)
	assert.Equal(t, []byte("cat"), list[0])
	assert.Equal(t, []byte("dog"), list[1])
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty input", ""},
		{"truncated string", "83646f"},
		{"truncated list", "c883636174"},
		{"trailing bytes", "8180ff"},
		{"non-canonical single byte", "8100"},
		{"long form for short payload", "b801ff"},
		{"length with leading zero", "b90001" + strings.Repeat("61", 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := hex.DecodeString(tt.in)
			require.NoError(t, err)
			_, err = Decode(raw)
			assert.Error(t, err)
		})
	}
}

func TestBigIntBytes(t *testing.T) {
	b, err := BigIntBytes(nil)
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = BigIntBytes(big.NewInt(0))
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = BigIntBytes(big.NewInt(256))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00}, b)

	_, err = BigIntBytes(big.NewInt(-5))
	assert.ErrorIs(t, err, ErrNegativeBigInt)
}
