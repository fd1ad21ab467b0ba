package app

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"positionsizer/internal/logger"
)

type StartupSummary struct {
	HTTPAddr string
	Sizing   SizingSummary
	Session  SessionSummary
	Journal  string
	Notify   []string
	Binance  string
	StopLoss string
}

type SizingSummary struct {
	Variant           string
	Source            string
	Version           int64
	Risk              []float64
	Commission        []string
	DefaultRisk       float64
	DefaultCommission string
}

type SessionSummary struct {
	TTLMinutes    int
	SweepInterval int
}

// Print logs the summary line by line so it also lands in the log file.
func (s *StartupSummary) Print() {
	var b strings.Builder
	s.WriteTo(&b)
	logger.InfoBlock(b.String())
}

func (s *StartupSummary) WriteTo(w io.Writer) {
	title := "STARTUP SUMMARY"
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%*s\n", 40+len(title)/2, title)
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintln(w, "[HTTP]")
	fmt.Fprintf(w, "  listen: %s\n", s.HTTPAddr)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[SIZING CHOICES]")
	fmt.Fprintf(w, "  variant: %s (source %s, v%d)\n", s.Sizing.Variant, s.Sizing.Source, s.Sizing.Version)
	fmt.Fprintf(w, "  risk %%: %s\n", formatList(formatFloats(s.Sizing.Risk)))
	fmt.Fprintf(w, "  commission: %s\n", formatList(s.Sizing.Commission))
	fmt.Fprintf(w, "  defaults: risk %s%%, commission %s\n", strconv.FormatFloat(s.Sizing.DefaultRisk, 'f', -1, 64), s.Sizing.DefaultCommission)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[SESSIONS & JOURNAL]")
	fmt.Fprintf(w, "  ttl: %dm, sweep every %ds\n", s.Session.TTLMinutes, s.Session.SweepInterval)
	fmt.Fprintf(w, "  journal: %s\n", orDash(s.Journal))
	fmt.Fprintf(w, "  notify: %s\n", formatList(s.Notify))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[EXCHANGE]")
	fmt.Fprintf(w, "  binance: %s\n", orDash(s.Binance))
	fmt.Fprintf(w, "  stop-loss helper: %s\n", orDash(s.StopLoss))
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

func formatFloats(vals []float64) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return out
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
