package stopmotion

import (
	"fmt"
	"html"
	"html/template"
	"strconv"
	"strings"
)

// sgrState is the text style selected by SGR escape sequences.
type sgrState struct {
	fg, bg string
	bold   bool
	italic bool
}

func (s sgrState) plain() bool { return s == sgrState{} }

func (s sgrState) style() string {
	var b strings.Builder
	if s.fg != "" {
		b.WriteString("color: " + s.fg + ";")
	}
	if s.bg != "" {
		b.WriteString("background: " + s.bg + ";")
	}
	if s.bold {
		b.WriteString("font-weight: bold;")
	}
	if s.italic {
		b.WriteString("font-style: italic;")
	}
	return b.String()
}

// ViewHTML converts a rendered view to HTML for the run report. SGR colour
// and weight sequences become styled spans; other escape sequences are
// dropped.
func ViewHTML(view string) template.HTML {
	if strings.TrimSpace(view) == "" {
		return template.HTML(`<div class="empty">no output</div>`)
	}

	var out strings.Builder
	var state sgrState
	open := false
	i := 0

	for i < len(view) {
		c := view[i]
		switch {
		case c == '\r':
			i++
		case c == '\n':
			out.WriteString("<br>")
			i++
		case c == '\x1b' && i+1 < len(view) && view[i+1] == '[':
			j := i + 2
			for j < len(view) && !isFinalByte(view[j]) {
				j++
			}
			if j >= len(view) {
				i = j
				break
			}
			if view[j] == 'm' {
				next := applySGR(state, view[i+2:j])
				if next != state {
					if open {
						out.WriteString("</span>")
						open = false
					}
					if !next.plain() {
						fmt.Fprintf(&out, `<span style="%s">`, next.style())
						open = true
					}
					state = next
				}
			}
			i = j + 1
		default:
			j := i
			for j < len(view) && view[j] != '\x1b' && view[j] != '\n' && view[j] != '\r' {
				j++
			}
			out.WriteString(html.EscapeString(view[i:j]))
			i = j
		}
	}
	if open {
		out.WriteString("</span>")
	}
	return template.HTML(out.String())
}

func isFinalByte(c byte) bool { return c >= 0x40 && c <= 0x7e }

// applySGR returns state updated by the parameters of one SGR sequence.
func applySGR(state sgrState, params string) sgrState {
	if params == "" {
		return sgrState{}
	}
	codes := strings.Split(params, ";")
	for k := 0; k < len(codes); k++ {
		n, err := strconv.Atoi(codes[k])
		if err != nil {
			continue
		}
		switch {
		case n == 0:
			state = sgrState{}
		case n == 1:
			state.bold = true
		case n == 3:
			state.italic = true
		case n == 22:
			state.bold = false
		case n == 23:
			state.italic = false
		case n >= 30 && n <= 37:
			state.fg = ansi256Hex(n - 30)
		case n >= 90 && n <= 97:
			state.fg = ansi256Hex(n - 90 + 8)
		case n >= 40 && n <= 47:
			state.bg = ansi256Hex(n - 40)
		case n >= 100 && n <= 107:
			state.bg = ansi256Hex(n - 100 + 8)
		case n == 39:
			state.fg = ""
		case n == 49:
			state.bg = ""
		case n == 38 || n == 48:
			hex, used := extendedColor(codes[k+1:])
			k += used
			if n == 38 {
				state.fg = hex
			} else {
				state.bg = hex
			}
		}
	}
	return state
}

// extendedColor decodes "5;N" or "2;R;G;B" and reports how many codes it
// consumed.
func extendedColor(codes []string) (string, int) {
	if len(codes) == 0 {
		return "", 0
	}
	switch codes[0] {
	case "5":
		if len(codes) < 2 {
			return "", len(codes)
		}
		n, err := strconv.Atoi(codes[1])
		if err != nil || n < 0 || n > 255 {
			return "", 2
		}
		return ansi256Hex(n), 2
	case "2":
		if len(codes) < 4 {
			return "", len(codes)
		}
		var rgb [3]int
		for i := range rgb {
			v, err := strconv.Atoi(codes[1+i])
			if err != nil || v < 0 || v > 255 {
				return "", 4
			}
			rgb[i] = v
		}
		return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2]), 4
	}
	return "", 1
}

var ansi16 = [16]string{
	"#000000", "#cd0000", "#00cd00", "#cdcd00", "#0000ee", "#cd00cd", "#00cdcd", "#e5e5e5",
	"#7f7f7f", "#ff0000", "#00ff00", "#ffff00", "#5c5cff", "#ff00ff", "#00ffff", "#ffffff",
}

// ansi256Hex maps an xterm 256-colour index to a hex colour.
func ansi256Hex(n int) string {
	switch {
	case n < 16:
		return ansi16[n]
	case n < 232:
		n -= 16
		level := func(v int) int {
			if v == 0 {
				return 0
			}
			return 55 + v*40
		}
		return fmt.Sprintf("#%02x%02x%02x", level(n/36), level(n/6%6), level(n%6))
	default:
		g := 8 + (n-232)*10
		return fmt.Sprintf("#%02x%02x%02x", g, g, g)
	}
}
