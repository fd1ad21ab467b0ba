package notifier

import (
	"strings"
	"unicode/utf8"
)

const (
	maxNoticeLines   = 20
	maxNoticeLineLen = 300
)

// RenderNotice lays a notice out as Telegram Markdown: status line, the
// figures in a code block, then session and time.
func RenderNotice(n Notice) string {
	var b strings.Builder
	b.WriteString(levelIcon(n.Level))
	if title := cleanLine(n.Title); title != "" {
		b.WriteString(" ")
		b.WriteString(title)
	}
	b.WriteString("\n")

	if lines := noticeLines(n.Lines); len(lines) > 0 {
		b.WriteString("\n```\n")
		for _, line := range lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("```\n")
	}

	var meta []string
	if id := cleanLine(n.SessionID); id != "" {
		meta = append(meta, "Session: "+id)
	}
	if !n.At.IsZero() {
		meta = append(meta, "Time: "+n.At.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	if len(meta) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(meta, "\n"))
	}
	return strings.TrimSpace(b.String())
}

func levelIcon(level Level) string {
	if level == LevelError {
		return "⚠️"
	}
	return "✅"
}

// noticeLines drops blank lines and caps count and width so a long error
// message cannot push the body past Telegram's size limit.
func noticeLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		text := cleanLine(line)
		if text == "" {
			continue
		}
		if len(out) == maxNoticeLines {
			out = append(out, "...")
			break
		}
		out = append(out, text)
	}
	return out
}

// cleanLine trims, flattens newlines, defuses code fences and cuts on a rune boundary.
func cleanLine(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	s = strings.ReplaceAll(s, "```", "'''")
	if utf8.RuneCountInString(s) <= maxNoticeLineLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxNoticeLineLen]) + "..."
}
