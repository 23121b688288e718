package contract

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var waver = common.HexToAddress("0xAbC0000000000000000000000000000000000001")

func parsed(t *testing.T) abi.ABI {
	t.Helper()
	a, err := ParseABI()
	require.NoError(t, err)
	return a
}

func TestParseABI(t *testing.T) {
	a := parsed(t)
	for _, m := range []string{MethodGetAllWaves, MethodGetTotalWaves, MethodWave} {
		assert.Contains(t, a.Methods, m)
	}
	for _, e := range []string{EventNewWave, EventPrizeEarned} {
		assert.Contains(t, a.Events, e)
	}
}

func TestDecodeNewWave(t *testing.T) {
	a := parsed(t)
	data, err := a.Events[EventNewWave].Inputs.NonIndexed().Pack(big.NewInt(1700000000), "gm")
	require.NoError(t, err)

	l := types.Log{
		Topics:      []common.Hash{a.Events[EventNewWave].ID, common.BytesToHash(waver.Bytes())},
		Data:        data,
		BlockNumber: 42,
		TxHash:      common.HexToHash("0xfeed"),
		Index:       3,
	}
	ev, err := DecodeNewWave(a, l)
	require.NoError(t, err)

	got := ev.Event()
	assert.Equal(t, waver, got.Sender)
	assert.Equal(t, "gm", got.Message)
	assert.Equal(t, time.Unix(1700000000, 0), got.Timestamp)
	assert.Equal(t, uint64(42), got.Meta.BlockNumber)
	assert.Equal(t, common.HexToHash("0xfeed"), got.Meta.TxHash)
	assert.Equal(t, uint(3), got.Meta.LogIndex)
}

func TestDecodePrizeEarned(t *testing.T) {
	a := parsed(t)
	data, err := a.Events[EventPrizeEarned].Inputs.NonIndexed().Pack(big.NewInt(1700000000), big.NewInt(1e14))
	require.NoError(t, err)

	l := types.Log{
		Topics:      []common.Hash{a.Events[EventPrizeEarned].ID, common.BytesToHash(waver.Bytes())},
		Data:        data,
		BlockNumber: 7,
	}
	ev, err := DecodePrizeEarned(a, l)
	require.NoError(t, err)

	got := ev.Event()
	assert.Equal(t, waver, got.Winner)
	assert.Equal(t, 0, got.Amount.Cmp(big.NewInt(1e14)))
	assert.Equal(t, uint64(7), got.Meta.BlockNumber)
}

func TestDecodeRejectsForeignLog(t *testing.T) {
	a := parsed(t)

	_, err := DecodeNewWave(a, types.Log{})
	assert.ErrorIs(t, err, errNoEventSignature)

	_, err = DecodeNewWave(a, types.Log{Topics: []common.Hash{a.Events[EventPrizeEarned].ID}})
	assert.ErrorIs(t, err, errEventSignatureMismatch)
}

func TestUnpackWaves(t *testing.T) {
	a := parsed(t)
	in := []WaveStruct{
		{Waver: waver, Message: "first", Timestamp: big.NewInt(100)},
		{Waver: common.HexToAddress("0x02"), Message: "second", Timestamp: big.NewInt(200)},
	}
	data, err := a.Methods[MethodGetAllWaves].Outputs.Pack(in)
	require.NoError(t, err)

	out, err := a.Unpack(MethodGetAllWaves, data)
	require.NoError(t, err)
	waves, err := UnpackWaves(out)
	require.NoError(t, err)
	require.Len(t, waves, 2)
	assert.Equal(t, "first", waves[0].Message)
	assert.Equal(t, waver, waves[0].Wave().Sender)
	assert.Equal(t, time.Unix(200, 0), waves[1].Wave().Timestamp)

	_, err = UnpackWaves(nil)
	assert.Error(t, err)
}

func TestUnpackTotal(t *testing.T) {
	a := parsed(t)
	data, err := a.Methods[MethodGetTotalWaves].Outputs.Pack(big.NewInt(12))
	require.NoError(t, err)

	out, err := a.Unpack(MethodGetTotalWaves, data)
	require.NoError(t, err)
	total, err := UnpackTotal(out)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), total)
}
