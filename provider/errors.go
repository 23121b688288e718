package provider

import (
	"context"
	"errors"

	errorsmod "cosmossdk.io/errors"
)

// Codespace is the error codespace of the portal core.
const Codespace = "portal"

// Error kinds surfaced by the core. None of them is fatal.
var (
	ErrNoWalletProvider  = errorsmod.Register(Codespace, 2, "no wallet provider")
	ErrUserRejected      = errorsmod.Register(Codespace, 3, "user rejected request")
	ErrWrongNetwork      = errorsmod.Register(Codespace, 4, "wrong network")
	ErrProvider          = errorsmod.Register(Codespace, 5, "provider error")
	ErrRPC               = errorsmod.Register(Codespace, 6, "rpc error")
	ErrInvalidArgument   = errorsmod.Register(Codespace, 7, "invalid argument")
	ErrTransactionFailed = errorsmod.Register(Codespace, 8, "transaction failed")
	ErrInvalidState      = errorsmod.Register(Codespace, 9, "invalid state")
)

var kinds = []error{
	ErrNoWalletProvider,
	ErrUserRejected,
	ErrWrongNetwork,
	ErrProvider,
	ErrRPC,
	ErrInvalidArgument,
	ErrTransactionFailed,
	ErrInvalidState,
}

// Kind returns the registered kind err belongs to, or nil.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Classify converts err into one of the core's kinds. Errors that already carry
// a kind are returned as is, context expiry becomes ErrRPC and anything else is
// wrapped in fallback.
func Classify(err error, fallback *errorsmod.Error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != nil {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errorsmod.Wrap(ErrRPC, err.Error())
	}
	return errorsmod.Wrap(fallback, err.Error())
}
