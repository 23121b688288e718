package main

import (
	"wave-portal-tui/notify"
	"wave-portal-tui/rpc"

	"github.com/ethereum/go-ethereum/accounts"
)

// -------------------- TEA MESSAGES --------------------
// All custom message types for The Elm Architecture

// rpcConnectedMsg contains result of RPC connection attempt
type rpcConnectedMsg struct {
	url     string
	changed bool // chain id differs from the previous endpoint
	err     error
}

// portalStartedMsg is sent once the session watches are registered
type portalStartedMsg struct {
	err error
}

// walletConnectedMsg contains the result of an explicit connect
type walletConnectedMsg struct {
	err error
}

// waveSubmittedMsg is sent when a submission has finished, either way
type waveSubmittedMsg struct {
	message string
	err     error
}

// sessionChangedMsg, feedChangedMsg and the notify payload messages below are
// relayed from the portal's bus.
type sessionChangedMsg struct{}

type feedChangedMsg struct{}

type prizeWonMsg struct {
	prize notify.PrizeWon
}

type submissionStateMsg struct {
	state notify.SubmissionState
}

type submissionErrorMsg struct {
	failure notify.SubmissionError
}

type liveStoppedMsg struct {
	stopped notify.LiveStopped
}

// bannerExpiredMsg removes a banner once its display time is over
type bannerExpiredMsg struct {
	id int
}

// accountDetailsMsg contains balance details after loading
type accountDetailsMsg struct {
	d rpc.AccountDetails
}

// clipboardCopiedMsg indicates clipboard copy completed
type clipboardCopiedMsg struct {
	what string
}

// clearClipboardMsg clears the clipboard feedback
type clearClipboardMsg struct{}

// logInitMsg signals that log viewport should be initialized
type logInitMsg struct{}

// passwordRequestMsg asks the UI for the passphrase of account. Exactly one
// value is sent on reply.
type passwordRequestMsg struct {
	account accounts.Account
	reply   chan<- passwordReply
}

type passwordReply struct {
	password string
	err      error
}
