// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/cardchat-tui/internal/card"
	"github.com/jeranaias/cardchat-tui/internal/model"
	"github.com/jeranaias/cardchat-tui/internal/ui/styles"
)

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

func plain(s string) string { return ansiRe.ReplaceAllString(s, "") }

func newASCIIRenderer() *Renderer {
	return New(Options{Theme: styles.NewTheme(styles.ModeDark), MarkdownStyle: "ascii"})
}

// =============================================================================
// CLASSIFY TESTS
// =============================================================================

func TestClassify(t *testing.T) {
	tests := []struct {
		content string
		isDoc   bool
	}{
		{`{"type":"AdaptiveCard"}`, true},
		{`  {"type":"AdaptiveCard","body":[]}  `, true},
		{`[1, 2, 3]`, true},
		{`42`, true},
		{`"just a string"`, true},
		{`Hello **world**`, false},
		{`not json at all`, false},
		{``, false},
		{`{"type": "AdaptiveCard"`, false},
		{"```json\n{\"a\":1}\n```", false},
	}

	for _, tc := range tests {
		got := Classify(tc.content)
		assert.Equal(t, tc.isDoc, got.IsDocument, "Classify(%q)", tc.content)
		if !tc.isDoc {
			assert.Nil(t, got.Doc)
		}
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "plain", KindPlain.String())
	assert.Equal(t, "card", KindCard.String())
	assert.Equal(t, "prose", KindProse.String())
	assert.Equal(t, "empty", KindEmpty.String())
}

// =============================================================================
// RENDER TESTS
// =============================================================================

func TestRender_UserAlwaysPlain(t *testing.T) {
	r := newASCIIRenderer()
	for _, content := range []string{`{"type":"AdaptiveCard"}`, `Hello **world**`, `not json at all`} {
		msg := model.NewUserMessage(content)
		d := r.Render(msg, 80)
		assert.Equal(t, KindPlain, d.Kind, "content %q", content)
		assert.Contains(t, plain(d.View), content, "user text is shown verbatim")
	}
}

func TestRender_UserRightAligned(t *testing.T) {
	r := newASCIIRenderer()
	d := r.Render(model.NewUserMessage("hi"), 60)
	for _, line := range strings.Split(plain(d.View), "\n") {
		assert.True(t, strings.HasPrefix(line, " "), "line %q should be pushed right", line)
		assert.Len(t, []rune(line), 60)
	}
}

func TestRender_AdaptiveCardRoutesToCard(t *testing.T) {
	r := newASCIIRenderer()
	d := r.Render(model.NewAssistantMessage(`{"type":"AdaptiveCard"}`), 60)
	assert.Equal(t, KindCard, d.Kind)
	assert.NotEmpty(t, d.View)
	assert.NoError(t, d.Err)
}

func TestRender_CardContent(t *testing.T) {
	r := newASCIIRenderer()
	d := r.Render(model.NewAssistantMessage(`{"type":"AdaptiveCard","body":[{"type":"TextBlock","text":"Build passed"}]}`), 60)
	require.Equal(t, KindCard, d.Kind)
	assert.Contains(t, plain(d.View), "Build passed")
}

func TestRender_InvalidCardRendersEmpty(t *testing.T) {
	r := newASCIIRenderer()
	for _, content := range []string{`{"type":"HeroCard"}`, `[1,2]`, `42`} {
		d := r.Render(model.NewAssistantMessage(content), 60)
		assert.Equal(t, KindEmpty, d.Kind, "content %q", content)
		assert.Empty(t, d.View, "no prose fallback for %q", content)

		var se *card.SchemaError
		assert.True(t, errors.As(d.Err, &se))
	}
}

func TestRender_InvalidCardLogsContent(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r := New(Options{Theme: styles.NewTheme(styles.ModeDark), MarkdownStyle: "ascii", Logger: &logger})

	r.Render(model.NewAssistantMessage(`{"type":"HeroCard"}`), 60)
	assert.Contains(t, buf.String(), "card validation failed")
	assert.Contains(t, buf.String(), `HeroCard`)
}

func TestRender_MarkdownBold(t *testing.T) {
	r := newASCIIRenderer()
	d := r.Render(model.NewAssistantMessage("Hello **world**"), 60)
	assert.Equal(t, KindProse, d.Kind)
	assert.Contains(t, d.View, "**world**")
	assert.Contains(t, d.View, "Hello")
}

// boldWorldRe matches "world" directly inside an SGR sequence that
// turns on bold (parameter 1), whatever other attributes ride along.
var boldWorldRe = regexp.MustCompile(`\x1b\[(?:[0-9;]*;)?1(?:;[0-9;]*)?m(?:\x1b\[[0-9;]*m)*world`)

func TestRender_MarkdownBoldStyled(t *testing.T) {
	for _, style := range []string{"dark", "light"} {
		t.Run(style, func(t *testing.T) {
			out, err := NewGlamourConverter(style).Convert("Hello **world**", 60)
			require.NoError(t, err)
			assert.NotContains(t, out, "**world**")
			assert.Contains(t, plain(out), "Hello world")
			assert.Regexp(t, boldWorldRe, out)
		})
	}
}

func TestGlamourConverter_ConcurrentConvert(t *testing.T) {
	g := NewGlamourConverter("dark")
	want, err := g.Convert("Hello **world**", 40)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := g.Convert("Hello **world**", 40)
			assert.NoError(t, err)
			results[i] = out
		}(i)
	}
	wg.Wait()

	for _, out := range results {
		assert.Equal(t, want, out)
	}
}

func TestRender_NotJSONIsProse(t *testing.T) {
	r := newASCIIRenderer()
	d := r.Render(model.NewAssistantMessage("not json at all"), 60)
	assert.Equal(t, KindProse, d.Kind)
	assert.Contains(t, d.View, "not json at all")
}

type failingMarkdown struct{}

func (failingMarkdown) Convert(string, int) (string, error) {
	return "", errors.New("boom")
}

func TestRender_MarkdownErrorFallsBackToRaw(t *testing.T) {
	r := New(Options{Theme: styles.NewTheme(styles.ModeDark), Markdown: failingMarkdown{}})
	d := r.Render(model.NewAssistantMessage("# title"), 60)
	assert.Equal(t, KindProse, d.Kind)
	assert.Equal(t, "# title", d.View)
}

func TestRender_DoesNotMutateMessage(t *testing.T) {
	r := newASCIIRenderer()
	msg := model.NewAssistantMessage(`{"type":"AdaptiveCard"}`)
	before := *msg
	r.Render(msg, 40)
	assert.Equal(t, before, *msg)
}

// =============================================================================
// CACHE TESTS
// =============================================================================

type countingMarkdown struct{ calls int }

func (c *countingMarkdown) Convert(text string, _ int) (string, error) {
	c.calls++
	return text, nil
}

func TestRender_CachesUntilInputsChange(t *testing.T) {
	md := &countingMarkdown{}
	r := New(Options{Theme: styles.NewTheme(styles.ModeDark), Markdown: md})
	msg := model.NewAssistantMessage("prose")

	r.Render(msg, 60)
	r.Render(msg, 60)
	assert.Equal(t, 1, md.calls, "same message, width and theme should hit the cache")

	r.Render(msg, 70)
	assert.Equal(t, 2, md.calls, "width change re-renders")

	r.SetTheme(r.Theme().Toggle())
	r.Render(msg, 70)
	assert.Equal(t, 3, md.calls, "theme change re-renders")

	hits, misses, rate := r.Cache().Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(3), misses)
	assert.InDelta(t, 25.0, rate, 0.01)
}

func TestCache_ContentChangeInvalidates(t *testing.T) {
	c := NewCache()
	c.Put("m1", "a", 10, 0, Displayable{Kind: KindProse, View: "A"})

	_, ok := c.Get("m1", "a", 10, 0)
	assert.True(t, ok)
	_, ok = c.Get("m1", "b", 10, 0)
	assert.False(t, ok)
	_, ok = c.Get("m1", "a", 10, 1)
	assert.False(t, ok)

	c.Reset()
	assert.Equal(t, 0, c.Len())
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCacheSize(2)
	c.Put("m1", "a", 10, 0, Displayable{View: "1"})
	c.Put("m2", "b", 10, 0, Displayable{View: "2"})
	_, ok := c.Get("m1", "a", 10, 0)
	require.True(t, ok)

	c.Put("m3", "c", 10, 0, Displayable{View: "3"})
	assert.Equal(t, 2, c.Len())
	_, ok = c.Get("m2", "b", 10, 0)
	assert.False(t, ok, "m2 was least recently used")
	_, ok = c.Get("m1", "a", 10, 0)
	assert.True(t, ok)
}

func TestRenderStreaming(t *testing.T) {
	r := newASCIIRenderer()
	out := plain(r.RenderStreaming(`{"type":"Adapt`, 40))
	assert.Contains(t, out, `{"type":"Adapt`, "partial documents are shown as raw text")
}
