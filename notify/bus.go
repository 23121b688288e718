// Package notify carries UI-facing notifications from the portal core to the
// presentation layer.
package notify

import (
	"math/big"

	evbus "github.com/asaskevich/EventBus"
	"github.com/ethereum/go-ethereum/common"
)

// Topics published by the core.
const (
	// TopicSessionChanged has no arguments.
	TopicSessionChanged = "session:changed"
	// TopicFeedChanged has no arguments.
	TopicFeedChanged = "feed:changed"
	// TopicPrizeWon carries a PrizeWon.
	TopicPrizeWon = "prize:won"
	// TopicSubmissionState carries a SubmissionState.
	TopicSubmissionState = "submission:state"
	// TopicSubmissionError carries a SubmissionError.
	TopicSubmissionError = "submission:error"
	// TopicLiveStopped carries a LiveStopped.
	TopicLiveStopped = "live:stopped"
)

// PrizeWon is published when the local account wins a prize.
type PrizeWon struct {
	Winner common.Address
	Amount *big.Int
	TxHash common.Hash
}

// SubmissionState is published on every submission state transition.
type SubmissionState struct {
	State  string
	TxHash common.Hash
}

// LiveStopped is published when a contract event stream ends on its own and
// the feed no longer receives live waves.
type LiveStopped struct {
	Event string
	Err   error
}

// SubmissionError is published when a submission fails.
type SubmissionError struct {
	Message string
	Err     error
}

// Bus is a topic based publish/subscribe hub. Handlers run synchronously on the
// publishing goroutine and must not publish or subscribe themselves.
type Bus struct {
	bus evbus.Bus
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{bus: evbus.New()}
}

// Publish delivers args to every handler of topic. Arguments must be non-nil.
func (b *Bus) Publish(topic string, args ...interface{}) {
	if b == nil {
		return
	}
	b.bus.Publish(topic, args...)
}

// Subscribe registers fn, a func whose parameters match what the topic
// carries, and returns a function that removes it.
func (b *Bus) Subscribe(topic string, fn interface{}) (func(), error) {
	if err := b.bus.Subscribe(topic, fn); err != nil {
		return nil, err
	}
	return func() { _ = b.bus.Unsubscribe(topic, fn) }, nil
}

// HasSubscribers reports whether topic has at least one handler.
func (b *Bus) HasSubscribers(topic string) bool {
	return b.bus.HasCallback(topic)
}
