package stopmotion

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// NoFrames is shown in place of the cursor position while the sequence is
// empty.
const NoFrames = "NO IMAGES"

var (
	barStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("250")).
			Foreground(lipgloss.Color("0"))

	badgeStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("231"))

	badgeColors = map[State]lipgloss.Color{
		StateEmpty:     lipgloss.Color("160"),
		StateLive:      lipgloss.Color("160"),
		StateReviewing: lipgloss.Color("62"),
		StatePlaying:   lipgloss.Color("28"),
	}

	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// badge labels the controller state.
func badge(seq *Sequence) string {
	label := "LIVE"
	switch seq.State() {
	case StateReviewing:
		label = "REVIEW"
	case StatePlaying:
		label = "PLAY"
	}
	if seq.Mode() == Live && seq.Overlay() {
		label += " +OVL"
	}
	return label
}

// position is the cursor as shown in the status bar.
func position(seq *Sequence) string {
	if seq.Empty() {
		return NoFrames
	}
	return strconv.Itoa(seq.Cursor())
}

// StatusBar renders the one-line bar under the frame area: target frame rate
// on the left, cursor position centred, state badge on the right.
func StatusBar(seq *Sequence, width int) string {
	left := fmt.Sprintf(" fps: %d", seq.Rate())
	center := position(seq)
	right := badgeStyle.Background(badgeColors[seq.State()]).Render(badge(seq))

	if width <= 0 {
		return left + "  " + center + "  " + right
	}

	rightW := lipgloss.Width(right)
	leftW := lipgloss.Width(left)
	centerW := lipgloss.Width(center)

	// centre on the full width, pushed right if it would overlap the fps
	start := (width - centerW) / 2
	if start < leftW+1 {
		start = leftW + 1
	}
	gapLeft := start - leftW
	gapRight := width - start - centerW - rightW
	if gapRight < 1 {
		gapRight = 1
	}

	line := barStyle.Render(left+spaces(gapLeft)+center+spaces(gapRight)) + right
	return ansi.Truncate(line, width, "")
}

// MessageLine renders the latest session message, cut to width.
func MessageLine(msg string, width int) string {
	if msg == "" {
		return ""
	}
	if width > 0 {
		msg = ansi.Truncate(msg, width, "…")
	}
	return messageStyle.Render(msg)
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("%*s", n, "")
}
