package config

// Page identifies a screen of the UI
type Page int

const (
	PageHome Page = iota
	PageFeed
	PageAccounts
	PageSettings
)

func (p Page) String() string {
	switch p {
	case PageHome:
		return "home"
	case PageFeed:
		return "feed"
	case PageAccounts:
		return "accounts"
	case PageSettings:
		return "settings"
	default:
		return "unknown"
	}
}

// ClickableArea is a screen region that reacts to mouse clicks
type ClickableArea struct {
	X, Y          int
	Width, Height int
	Address       string
}

// Contains reports whether the cell at x, y is inside the area
func (a ClickableArea) Contains(x, y int) bool {
	return x >= a.X && x < a.X+a.Width && y >= a.Y && y < a.Y+a.Height
}
