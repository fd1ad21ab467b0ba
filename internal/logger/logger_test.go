package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(nil)
		SetLevel("info")
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t)
	SetLevel("warn")
	Infof("hidden %d", 1)
	Warnf("shown %d", 2)
	assert.NotContains(t, buf.String(), "hidden 1")
	assert.Contains(t, buf.String(), "shown 2")
}

func TestComponentTag(t *testing.T) {
	buf := capture(t)
	Infof("[calc] session=%s size=%s", "s1", "245.10")
	Warnf("[not a tag] plain")
	Errorf("[] empty")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "component=calc")
	assert.Contains(t, lines[0], "session=s1 size=245.10")
	assert.NotContains(t, lines[0], "[calc]")
	assert.NotContains(t, lines[1], "component=")
	assert.Contains(t, lines[1], "[not a tag] plain")
	assert.NotContains(t, lines[2], "component=")
}

func TestInfoBlock(t *testing.T) {
	buf := capture(t)
	InfoBlock("\nline one\n   \nline two\n")
	out := strings.TrimSpace(buf.String())
	assert.Equal(t, 2, strings.Count(out, "\n")+1)
	assert.Contains(t, out, "line one")
	assert.Contains(t, out, "line two")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel(" DEBUG "))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
