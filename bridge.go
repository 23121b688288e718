package main

import (
	"context"
	"strings"
	"sync"

	"wave-portal-tui/notify"
	"wave-portal-tui/rpc"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/accounts"
)

// -------------------- PROGRAM BRIDGE --------------------
// The core publishes from its own goroutines. The relay queues those
// notifications and feeds them to the program in order, so a publisher never
// waits on Update.

type relay struct {
	msgs chan tea.Msg
	done chan struct{}
	once sync.Once
}

func newRelay() *relay {
	return &relay{
		msgs: make(chan tea.Msg, 256),
		done: make(chan struct{}),
	}
}

// attach starts forwarding to prog.
func (r *relay) attach(prog *tea.Program) {
	go func() {
		for {
			select {
			case msg := <-r.msgs:
				prog.Send(msg)
			case <-r.done:
				return
			}
		}
	}()
}

// send queues msg. It is dropped once the relay is closed.
func (r *relay) send(msg tea.Msg) {
	select {
	case r.msgs <- msg:
	case <-r.done:
	}
}

func (r *relay) close() {
	r.once.Do(func() { close(r.done) })
}

// Password asks the UI for the passphrase of account and waits for the answer.
func (r *relay) Password(ctx context.Context, account accounts.Account) (string, error) {
	reply := make(chan passwordReply, 1)
	r.send(passwordRequestMsg{account: account, reply: reply})
	select {
	case res := <-reply:
		return res.password, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-r.done:
		return "", rpc.ErrPromptCancelled
	}
}

// subscribe forwards the portal's notifications as tea messages.
func (r *relay) subscribe(bus *notify.Bus) (func(), error) {
	handlers := map[string]interface{}{
		notify.TopicSessionChanged: func() { r.send(sessionChangedMsg{}) },
		notify.TopicFeedChanged:    func() { r.send(feedChangedMsg{}) },
		notify.TopicPrizeWon:       func(p notify.PrizeWon) { r.send(prizeWonMsg{prize: p}) },
		notify.TopicSubmissionState: func(s notify.SubmissionState) {
			r.send(submissionStateMsg{state: s})
		},
		notify.TopicSubmissionError: func(e notify.SubmissionError) {
			r.send(submissionErrorMsg{failure: e})
		},
		notify.TopicLiveStopped: func(s notify.LiveStopped) {
			r.send(liveStoppedMsg{stopped: s})
		},
	}

	var unsubs []func()
	release := func() {
		for _, u := range unsubs {
			u()
		}
	}
	for topic, fn := range handlers {
		u, err := bus.Subscribe(topic, fn)
		if err != nil {
			release()
			return nil, err
		}
		unsubs = append(unsubs, u)
	}
	return release, nil
}

// -------------------- LOG SINK --------------------

// maxLogBytes bounds the log panel buffer; older lines are dropped first.
const maxLogBytes = 256 << 10

// logSink is the writer behind the logger. Core components log from their own
// goroutines while View reads it.
type logSink struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (s *logSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.buf.Write(p)
	if s.buf.Len() > maxLogBytes {
		content := s.buf.String()
		tail := content[len(content)-maxLogBytes/2:]
		if i := strings.IndexByte(tail, '\n'); i >= 0 {
			tail = tail[i+1:]
		}
		s.buf.Reset()
		s.buf.WriteString(tail)
	}
	return n, err
}

func (s *logSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func (s *logSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Reset()
}
