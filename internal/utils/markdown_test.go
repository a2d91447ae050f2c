package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown(t *testing.T) {
	t.Run("renders and sanitises", func(t *testing.T) {
		out := RenderMarkdown("**Day 12**: first pistils <script>alert(1)</script>")
		assert.Contains(t, out, "<strong>Day 12</strong>")
		assert.NotContains(t, out, "<script>")
	})

	t.Run("images get lazy loading", func(t *testing.T) {
		out := RenderMarkdown("![canopy](https://res.cloudinary.com/demo/image/upload/a.jpg)")
		assert.Contains(t, out, `loading="lazy"`)
		assert.Contains(t, out, `referrerpolicy="no-referrer"`)
		assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/a.jpg", FirstImageURL(out))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", RenderMarkdown(""))
	})
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "hello world", PlainText("<p>hello <b>world</b></p>", 0))
	assert.Equal(t, "abc...", PlainText("abcdef", 3))
	assert.True(t, strings.HasSuffix(PlainText(strings.Repeat("é", 10), 4), "..."))
}

func TestFirstImageURLWithoutImages(t *testing.T) {
	assert.Equal(t, "", FirstImageURL("<p>no pictures</p>"))
}
