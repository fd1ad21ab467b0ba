package calchttp

import (
	"errors"
	"io"
	"math"
	"strings"

	"positionsizer/internal/pkg/convert"
	"positionsizer/internal/session"
	"positionsizer/internal/sizing"

	"github.com/tidwall/gjson"
)

const maxBodyBytes = 64 << 10

var errBadJSON = errors.New("request body must be a JSON object")

// decodeForm reads a calculation request. Numbers may arrive as JSON numbers
// or strings; the free-text fields keep the text as sent.
func decodeForm(r io.Reader) (session.Form, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxBodyBytes))
	if err != nil {
		return session.Form{}, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return session.Form{}, &sizing.ParseError{Field: "body", Text: "", Err: errBadJSON}
	}
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return session.Form{}, &sizing.ParseError{Field: "body", Text: truncate(string(raw), 64), Err: errBadJSON}
	}
	doc := gjson.ParseBytes(raw)
	form := session.Form{
		BalanceText:  fieldText(doc, "balance"),
		StopLossText: fieldText(doc, "stop_loss", "stop_loss_pct"),
		Commission:   fieldText(doc, "commission", "commission_pct"),
	}
	risk := first(doc, "risk", "risk_pct")
	if risk.Exists() && risk.Type != gjson.Null && strings.TrimSpace(risk.String()) != "" {
		v, err := parseRisk(risk.Value(), risk.String())
		if err != nil {
			return session.Form{}, err
		}
		form.RiskPercent = v
	}
	return form, nil
}

// parseRiskText converts the risk selection of an HTML form.
func parseRiskText(text string) (float64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	return parseRisk(text, text)
}

func parseRisk(v any, text string) (float64, error) {
	f, err := convert.ParseFloat(v)
	if err != nil {
		return 0, &sizing.ParseError{Field: "risk_pct", Text: text, Err: err}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &sizing.ParseError{Field: "risk_pct", Text: text}
	}
	return f, nil
}

func fieldText(doc gjson.Result, keys ...string) string {
	r := first(doc, keys...)
	switch r.Type {
	case gjson.Number:
		return r.Raw
	case gjson.String:
		return r.Str
	default:
		return ""
	}
}

func first(doc gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if r := doc.Get(k); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
