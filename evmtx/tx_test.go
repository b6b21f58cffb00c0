package evmtx

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known development key (Anvil/Hardhat account 0).
const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func signedWithGeth(t *testing.T, inner ethtypes.TxData, chainID *big.Int) *ethtypes.Transaction {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	signed, err := ethtypes.SignTx(ethtypes.NewTx(inner), ethtypes.LatestSignerForChainID(chainID), key)
	require.NoError(t, err)
	return signed
}

func signLocal(t *testing.T, tx *Transaction) *SignedTransaction {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	digest, err := tx.SigningHash()
	require.NoError(t, err)
	sig, err := crypto.Sign(digest, key)
	require.NoError(t, err)
	signed, err := tx.WithSignature(sig)
	require.NoError(t, err)
	return signed
}

func TestLegacyMatchesGeth(t *testing.T) {
	to := common.HexToAddress("0x384Aa214be0B279cbf211e9b2C992d8633F77848")
	chainID := big.NewInt(84532)

	local := signLocal(t, &Transaction{
		ChainID:  chainID,
		Nonce:    7,
		GasPrice: big.NewInt(2_000_000_000),
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(1_000_000_000_000_000),
	})

	reference := signedWithGeth(t, &ethtypes.LegacyTx{
		Nonce:    7,
		GasPrice: big.NewInt(2_000_000_000),
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(1_000_000_000_000_000),
	}, chainID)

	refRaw, err := reference.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, refRaw, local.Raw())
	assert.Equal(t, reference.Hash(), local.Hash())
}

func TestDynamicFeeMatchesGeth(t *testing.T) {
	to := common.HexToAddress("0x1111111111111111111111111111111111111111")
	chainID := big.NewInt(8453)

	local := signLocal(t, &Transaction{
		Type:      DynamicFeeTxType,
		ChainID:   chainID,
		Nonce:     42,
		GasTipCap: big.NewInt(1_500_000_000),
		GasFeeCap: big.NewInt(30_000_000_000),
		Gas:       120_000,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      common.Hex2Bytes("a9059cbb"),
	})

	reference := signedWithGeth(t, &ethtypes.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     42,
		GasTipCap: big.NewInt(1_500_000_000),
		GasFeeCap: big.NewInt(30_000_000_000),
		Gas:       120_000,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      common.Hex2Bytes("a9059cbb"),
	}, chainID)

	refRaw, err := reference.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, refRaw, local.Raw())
	assert.Equal(t, reference.Hash(), local.Hash())
	assert.Equal(t, byte(DynamicFeeTxType), local.Raw()[0])
}

func TestAccessListMatchesGeth(t *testing.T) {
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	chainID := big.NewInt(1)
	tuple := AccessTuple{
		Address: common.HexToAddress("0x3333333333333333333333333333333333333333"),
		StorageKeys: []common.Hash{
			common.HexToHash("0x01"),
			common.HexToHash("0x02"),
		},
	}

	local := signLocal(t, &Transaction{
		Type:       AccessListTxType,
		ChainID:    chainID,
		Nonce:      3,
		GasPrice:   big.NewInt(5_000_000_000),
		Gas:        60_000,
		To:         &to,
		Value:      big.NewInt(123),
		AccessList: []AccessTuple{tuple},
	})

	reference := signedWithGeth(t, &ethtypes.AccessListTx{
		ChainID:  chainID,
		Nonce:    3,
		GasPrice: big.NewInt(5_000_000_000),
		Gas:      60_000,
		To:       &to,
		Value:    big.NewInt(123),
		AccessList: ethtypes.AccessList{{
			Address:     tuple.Address,
			StorageKeys: tuple.StorageKeys,
		}},
	}, chainID)

	refRaw, err := reference.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, refRaw, local.Raw())
	assert.Equal(t, reference.Hash(), local.Hash())
}

func TestContractCreationMatchesGeth(t *testing.T) {
	chainID := big.NewInt(137)
	initCode := common.Hex2Bytes("600060005560016000f3")

	local := signLocal(t, &Transaction{
		ChainID:  chainID,
		Nonce:    0,
		GasPrice: big.NewInt(40_000_000_000),
		Gas:      500_000,
		Data:     initCode,
	})

	reference := signedWithGeth(t, &ethtypes.LegacyTx{
		Nonce:    0,
		GasPrice: big.NewInt(40_000_000_000),
		Gas:      500_000,
		To:       nil,
		Data:     initCode,
	}, chainID)

	refRaw, err := reference.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, refRaw, local.Raw())
}

func TestEIP155VDependsOnChainID(t *testing.T) {
	to := common.HexToAddress("0x4444444444444444444444444444444444444444")
	base := Transaction{
		Nonce:    1,
		GasPrice: big.NewInt(1_000_000_000),
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(1),
	}

	onMainnet := base
	onMainnet.ChainID = big.NewInt(1)
	onPolygon := base
	onPolygon.ChainID = big.NewInt(137)

	mainnetHash, err := onMainnet.SigningHash()
	require.NoError(t, err)
	polygonHash, err := onPolygon.SigningHash()
	require.NoError(t, err)
	assert.NotEqual(t, mainnetHash, polygonHash)

	signedMainnet := signLocal(t, &onMainnet)
	signedPolygon := signLocal(t, &onPolygon)

	vMain, _, _ := signedMainnet.Signature()
	vPoly, _, _ := signedPolygon.Signature()

	// v = chainId*2 + 35 + recoveryId.
	assert.Contains(t, []int64{37, 38}, vMain.Int64())
	assert.Contains(t, []int64{309, 310}, vPoly.Int64())
	assert.NotEqual(t, signedMainnet.Raw(), signedPolygon.Raw())
}

func TestWithSignatureNormalizesV(t *testing.T) {
	to := common.HexToAddress("0x5555555555555555555555555555555555555555")
	tx := &Transaction{
		ChainID:  big.NewInt(10),
		Nonce:    9,
		GasPrice: big.NewInt(100),
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(5),
	}

	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	digest, err := tx.SigningHash()
	require.NoError(t, err)
	sig, err := crypto.Sign(digest, key)
	require.NoError(t, err)

	plain, err := tx.WithSignature(sig)
	require.NoError(t, err)

	// The same signature with the recovery id offset by 27 must produce
	// the identical serialization.
	shifted := make([]byte, 65)
	copy(shifted, sig)
	shifted[64] += 27
	offset, err := tx.WithSignature(shifted)
	require.NoError(t, err)
	assert.Equal(t, plain.Raw(), offset.Raw())
}

func TestWithSignatureRejectsBadInput(t *testing.T) {
	to := common.HexToAddress("0x6666666666666666666666666666666666666666")
	tx := &Transaction{
		ChainID:  big.NewInt(1),
		Nonce:    0,
		GasPrice: big.NewInt(1),
		Gas:      21000,
		To:       &to,
	}

	_, err := tx.WithSignature(make([]byte, 64))
	assert.ErrorContains(t, err, "65 bytes")

	bad := make([]byte, 65)
	bad[64] = 9
	_, err = tx.WithSignature(bad)
	assert.ErrorContains(t, err, "recovery id")

	noChain := &Transaction{Nonce: 1, Gas: 21000, To: &to}
	_, err = noChain.SigningHash()
	assert.ErrorContains(t, err, "chainId")
	_, err = noChain.WithSignature(make([]byte, 65))
	assert.ErrorContains(t, err, "chainId")
}

func TestSigningLeavesBuilderUntouched(t *testing.T) {
	to := common.HexToAddress("0x7777777777777777777777777777777777777777")
	tx := &Transaction{
		ChainID:  big.NewInt(84532),
		Nonce:    11,
		GasPrice: big.NewInt(777),
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(999),
	}

	first := signLocal(t, tx)
	second := signLocal(t, tx)

	assert.Equal(t, first.Raw(), second.Raw())
	assert.Equal(t, first.Hash(), second.Hash())
	assert.Equal(t, uint64(11), tx.Nonce)
	assert.Equal(t, big.NewInt(777), tx.GasPrice)
}
