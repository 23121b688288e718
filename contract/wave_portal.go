// Package contract holds the WavePortal ABI and decoders for its calls and logs.
package contract

import (
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"wave-portal-tui/provider"
)

// WavePortalABI is the JSON ABI of the deployed WavePortal contract.
//
//go:embed WavePortal.abi.json
var WavePortalABI string

// Method and event names.
const (
	MethodGetAllWaves   = "getAllWaves"
	MethodGetTotalWaves = "getTotalWaves"
	MethodWave          = "wave"

	EventNewWave     = "NewWave"
	EventPrizeEarned = "PrizeEarned"
)

var (
	errNoEventSignature       = errors.New("no event signature")
	errEventSignatureMismatch = errors.New("event signature mismatch")
)

// ParseABI parses WavePortalABI.
func ParseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(WavePortalABI))
}

// WaveStruct is one element of getAllWaves.
type WaveStruct struct {
	Waver     common.Address
	Message   string
	Timestamp *big.Int
}

// Wave converts w into the provider form.
func (w WaveStruct) Wave() provider.Wave {
	return provider.Wave{Sender: w.Waver, Timestamp: unix(w.Timestamp), Message: w.Message}
}

// NewWave is a decoded NewWave log.
type NewWave struct {
	From      common.Address
	Timestamp *big.Int
	Message   string
	Raw       types.Log
}

// Event converts ev into the provider form.
func (ev NewWave) Event() provider.NewWaveEvent {
	return provider.NewWaveEvent{
		Sender:    ev.From,
		Timestamp: unix(ev.Timestamp),
		Message:   ev.Message,
		Meta:      Meta(ev.Raw),
	}
}

// PrizeEarned is a decoded PrizeEarned log.
type PrizeEarned struct {
	Winner      common.Address
	Timestamp   *big.Int
	PrizeAmount *big.Int
	Raw         types.Log
}

// Event converts ev into the provider form.
func (ev PrizeEarned) Event() provider.PrizeEarnedEvent {
	amount := ev.PrizeAmount
	if amount == nil {
		amount = new(big.Int)
	}
	return provider.PrizeEarnedEvent{
		Winner:    ev.Winner,
		Timestamp: unix(ev.Timestamp),
		Amount:    amount,
		Meta:      Meta(ev.Raw),
	}
}

// Meta extracts the chain position of l.
func Meta(l types.Log) provider.EventMeta {
	return provider.EventMeta{BlockNumber: l.BlockNumber, TxHash: l.TxHash, LogIndex: l.Index}
}

// DecodeNewWave decodes a NewWave log.
func DecodeNewWave(a abi.ABI, l types.Log) (NewWave, error) {
	ev := NewWave{Raw: l}
	err := unpackLog(a, &ev, EventNewWave, l)
	return ev, err
}

// DecodePrizeEarned decodes a PrizeEarned log.
func DecodePrizeEarned(a abi.ABI, l types.Log) (PrizeEarned, error) {
	ev := PrizeEarned{Raw: l}
	err := unpackLog(a, &ev, EventPrizeEarned, l)
	return ev, err
}

func unpackLog(a abi.ABI, out interface{}, event string, l types.Log) error {
	if len(l.Topics) == 0 {
		return errNoEventSignature
	}
	if l.Topics[0] != a.Events[event].ID {
		return errEventSignatureMismatch
	}
	if len(l.Data) > 0 {
		if err := a.UnpackIntoInterface(out, event, l.Data); err != nil {
			return fmt.Errorf("unpack %s: %w", event, err)
		}
	}
	var indexed abi.Arguments
	for _, arg := range a.Events[event].Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return abi.ParseTopics(out, indexed, l.Topics[1:])
}

// UnpackWaves converts the raw result of getAllWaves.
func UnpackWaves(out []interface{}) ([]WaveStruct, error) {
	if len(out) != 1 {
		return nil, fmt.Errorf("%s: expected 1 output, got %d", MethodGetAllWaves, len(out))
	}
	waves := *abi.ConvertType(out[0], new([]WaveStruct)).(*[]WaveStruct)
	return waves, nil
}

// UnpackTotal converts the raw result of getTotalWaves.
func UnpackTotal(out []interface{}) (uint64, error) {
	if len(out) != 1 {
		return 0, fmt.Errorf("%s: expected 1 output, got %d", MethodGetTotalWaves, len(out))
	}
	total := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	if total == nil || !total.IsUint64() {
		return 0, fmt.Errorf("%s: total out of range", MethodGetTotalWaves)
	}
	return total.Uint64(), nil
}

func unix(ts *big.Int) time.Time {
	if ts == nil || !ts.IsInt64() {
		return time.Time{}
	}
	return time.Unix(ts.Int64(), 0)
}
