package helpers

import (
	"fmt"
	"hash/fnv"
	"image/color"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/gamut"
)

var ethAddressRe = regexp.MustCompile("^0x[0-9a-fA-F]{40}$")

// ShortenAddr shortens an Ethereum address for display
func ShortenAddr(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// SameAddress reports whether two textual addresses name the same account.
// Hex addresses differ only by checksum casing, so the comparison ignores case.
func SameAddress(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}

// SameAccount is SameAddress for parsed addresses. The zero address never matches.
func SameAccount(a, b common.Address) bool {
	if a == (common.Address{}) || b == (common.Address{}) {
		return false
	}
	return SameAddress(a.Hex(), b.Hex())
}

// IsValidEthAddress checks if a string is a valid Ethereum address
func IsValidEthAddress(s string) bool {
	return ethAddressRe.MatchString(s)
}

// FormatETH formats Wei to ETH with proper decimals
func FormatETH(wei *big.Int) string {
	if wei == nil {
		return "0 ETH"
	}
	eth := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18))
	return eth.Text('f', 6) + " ETH"
}

// WaveTime formats a wave timestamp as local date and time
func WaveTime(t time.Time) string {
	if t.IsZero() {
		return "unknown time"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// FadeString creates a gradient colored string
func FadeString(s string, firstColor string, lastColor string) string {
	blends := gamut.Blends(lipgloss.Color(firstColor), lipgloss.Color(lastColor), len(s))
	return rainbow(lipgloss.NewStyle(), s, blends)
}

func rainbow(baseStyle lipgloss.Style, str string, colors []color.Color) string {
	var result string
	for i, c := range str {
		col, _ := colorful.MakeColor(colors[i%len(colors)])
		result += baseStyle.Foreground(lipgloss.Color(col.Hex())).Render(string(c))
	}
	return result
}

// SenderColor picks a stable color for an address so the same sender always
// renders the same way in the feed.
func SenderColor(addr string) lipgloss.Color {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(addr)))
	hue := float64(h.Sum32() % 360)
	return lipgloss.Color(ToHex(colorful.Hsv(hue, 0.55, 0.95)))
}

// NetworkName names the well-known chains and falls back to the chain id
func NetworkName(chainID uint64) string {
	switch chainID {
	case 0:
		return "unknown network"
	case 1:
		return "Ethereum Mainnet"
	case 4:
		return "Rinkeby"
	case 5:
		return "Goerli"
	case 11155111:
		return "Sepolia"
	case 1337, 31337:
		return "Local devnet"
	default:
		return fmt.Sprintf("chain %d", chainID)
	}
}

// Max returns the maximum of two integers
func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Min returns the minimum of two integers
func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ToHex converts a color to hex string
func ToHex(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02X%02X%02X", r>>8, g>>8, b>>8)
}
