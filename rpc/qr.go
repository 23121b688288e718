package rpc

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mdp/qrterminal/v3"
)

// GenerateQRCode renders content as a half-block terminal QR code
func GenerateQRCode(content string) string {
	var buf bytes.Buffer
	qrterminal.GenerateWithConfig(content, qrterminal.Config{
		Level:          qrterminal.L,
		Writer:         &buf,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
		QuietZone:      1,
	})
	return buf.String()
}

// TxURL is the explorer page of a transaction. An empty explorer yields an
// EIP-681 style reference instead.
func TxURL(explorer string, hash common.Hash) string {
	if explorer == "" {
		return "ethereum:tx/" + hash.Hex()
	}
	return fmt.Sprintf("%s/tx/%s", trimSlash(explorer), hash.Hex())
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
