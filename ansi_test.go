package stopmotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewHTML_BasicCases(t *testing.T) {
	t.Run("plain text", func(t *testing.T) {
		assert.Equal(t, "Hello world", string(ViewHTML("Hello world")))
	})

	t.Run("newlines", func(t *testing.T) {
		assert.Equal(t, "Line 1<br>Line 2", string(ViewHTML("Line 1\r\nLine 2")))
	})

	t.Run("empty view", func(t *testing.T) {
		assert.Contains(t, string(ViewHTML("  \n ")), "no output")
	})

	t.Run("bold 256 colour", func(t *testing.T) {
		got := ViewHTML("\x1b[1;38;5;39mBlue\x1b[0m normal")
		assert.Equal(t, `<span style="color: #00afff;font-weight: bold;">Blue</span> normal`, string(got))
	})

	t.Run("bare reset", func(t *testing.T) {
		got := ViewHTML("\x1b[31mred\x1b[m plain")
		assert.Equal(t, `<span style="color: #cd0000;">red</span> plain`, string(got))
	})

	t.Run("unclosed style is closed", func(t *testing.T) {
		got := ViewHTML("\x1b[48;5;240mbar")
		assert.Equal(t, `<span style="background: #585858;">bar</span>`, string(got))
	})
}

func TestViewHTML_TrueColour(t *testing.T) {
	got := ViewHTML("\x1b[38;2;255;0;16;48;2;0;0;0m▀\x1b[0m")
	assert.Equal(t, `<span style="color: #ff0010;background: #000000;">▀</span>`, string(got))
}

func TestViewHTML_DropsNonStyleSequences(t *testing.T) {
	got := ViewHTML("\x1b[2J\x1b[1;1Hhome\x1b[K")
	assert.Equal(t, "home", string(got))
}

func TestViewHTML_Escapes(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"markup", `<script>alert("x")</script>`, `&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;`},
		{"ampersand", "a & b", "a &amp; b"},
		{"inside style", "\x1b[31m<err>&msg\x1b[0m", `<span style="color: #cd0000;">&lt;err&gt;&amp;msg</span>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := string(ViewHTML(tc.in))
			assert.Equal(t, tc.want, got)
			assert.NotContains(t, got, "&amp;lt;")
		})
	}
}

func TestANSI256Hex(t *testing.T) {
	assert.Equal(t, "#000000", ansi256Hex(0))
	assert.Equal(t, "#ffffff", ansi256Hex(15))
	assert.Equal(t, "#000000", ansi256Hex(16))
	assert.Equal(t, "#ffffff", ansi256Hex(231))
	assert.Equal(t, "#5f87af", ansi256Hex(67))
	assert.Equal(t, "#080808", ansi256Hex(232))
	assert.Equal(t, "#eeeeee", ansi256Hex(255))
}
