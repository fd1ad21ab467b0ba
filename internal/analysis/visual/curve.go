// Package visual renders the position-size curve page.
package visual

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/shopspring/decimal"

	"positionsizer/internal/sizing"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"

	chartWidthPx  = 1200
	chartHeightPx = 560

	// MaxCurvePoints bounds from/to/step combinations supplied by callers.
	MaxCurvePoints = 1000
)

var tierColors = []string{"#34d399", "#f87171", "#3b82f6", "#fbbf24", "#f472b6", "#a78bfa"}

// CurveInput describes the stop-loss sweep.
type CurveInput struct {
	Balance     float64
	RiskPercent float64
	From        float64
	To          float64
	Step        float64
	Tiers       []sizing.CommissionTier
}

// CurvePoint is one sample; Defined is false where the formula has no value.
type CurvePoint struct {
	StopLossPercent float64 `json:"stop_loss_pct"`
	PositionSize    float64 `json:"position_size"`
	Defined         bool    `json:"defined"`
}

type CurveSeries struct {
	Tier   sizing.CommissionTier `json:"tier"`
	Points []CurvePoint          `json:"points"`
}

type Curve struct {
	Balance     float64       `json:"balance"`
	RiskPercent float64       `json:"risk_pct"`
	StopLoss    []string      `json:"stop_loss"`
	Series      []CurveSeries `json:"series"`
}

// BuildCurve samples position size across the stop-loss range for every tier.
func BuildCurve(in CurveInput) (Curve, error) {
	if len(in.Tiers) == 0 {
		return Curve{}, errors.New("curve requires at least one commission tier")
	}
	if in.Step <= 0 {
		return Curve{}, fmt.Errorf("curve step must be positive, got %v", in.Step)
	}
	if in.From < 0 || in.To < in.From {
		return Curve{}, fmt.Errorf("curve range [%v, %v] is invalid", in.From, in.To)
	}
	from := decimal.NewFromFloat(in.From)
	to := decimal.NewFromFloat(in.To)
	step := decimal.NewFromFloat(in.Step)
	// Compared in decimal: IntPart wraps for ranges beyond int64.
	intervals := to.Sub(from).Div(step).Floor()
	if intervals.GreaterThanOrEqual(decimal.NewFromInt(MaxCurvePoints)) {
		return Curve{}, fmt.Errorf("curve has %s points, limit is %d", intervals.Add(decimal.NewFromInt(1)).String(), MaxCurvePoints)
	}
	count := int(intervals.IntPart()) + 1

	stops := make([]float64, 0, count)
	labels := make([]string, 0, count)
	for v := from; v.LessThanOrEqual(to) && len(stops) < MaxCurvePoints; v = v.Add(step) {
		stops = append(stops, v.InexactFloat64())
		labels = append(labels, v.StringFixed(2))
	}

	out := Curve{Balance: in.Balance, RiskPercent: in.RiskPercent, StopLoss: labels}
	for _, tier := range in.Tiers {
		series := CurveSeries{Tier: tier, Points: make([]CurvePoint, 0, len(stops))}
		for _, stop := range stops {
			res, err := sizing.Compute(sizing.Input{
				Balance:           in.Balance,
				StopLossPercent:   stop,
				RiskPercent:       in.RiskPercent,
				CommissionPercent: tier.Percent,
			})
			switch {
			case errors.Is(err, sizing.ErrUndefinedResult):
				series.Points = append(series.Points, CurvePoint{StopLossPercent: stop})
				continue
			case err != nil:
				return Curve{}, err
			}
			series.Points = append(series.Points, CurvePoint{
				StopLossPercent: stop,
				PositionSize:    sizing.RoundAmount(res.PositionSize),
				Defined:         true,
			})
		}
		out.Series = append(out.Series, series)
	}
	return out, nil
}

// Render writes a standalone HTML page with one line per commission tier.
func Render(w io.Writer, curve Curve) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       "Position size by stop-loss",
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         "Position size by stop-loss",
			Subtitle:      fmt.Sprintf("balance %s, risk %s%%", sizing.FormatAmount(curve.Balance), decimal.NewFromFloat(curve.RiskPercent).String()),
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10", TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:      "stop-loss %",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      "position size",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), Smooth: opts.Bool(true)}))
	line.SetXAxis(curve.StopLoss)
	for i, series := range curve.Series {
		color := tierColors[i%len(tierColors)]
		line.AddSeries(series.Tier.Label, toLineData(series.Points),
			charts.WithLineStyleOpts(opts.LineStyle{Color: color, Width: 2}))
	}
	return line.Render(w)
}

func toLineData(points []CurvePoint) []opts.LineData {
	data := make([]opts.LineData, len(points))
	for i, p := range points {
		if !p.Defined {
			data[i] = opts.LineData{Value: nil}
			continue
		}
		data[i] = opts.LineData{Value: p.PositionSize}
	}
	return data
}
