package seasonservice

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	seasondomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/domain"
	seasondb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/infrastructure/repositories"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/results"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// DivisionDistribution returns one count per division, lowest first,
// including empty divisions.
func (s *SeasonService) DivisionDistribution(ctx context.Context, seasonID string) ([]seasondb.DivisionCount, error) {
	return unwrap(withTelemetry(s, ctx, "DivisionDistribution", seasonID, func(ctx context.Context) (results.OperationResult[[]seasondb.DivisionCount, error], error) {
		if _, err := s.repo.GetSeason(ctx, nil, seasonID); err != nil {
			if errors.Is(err, seasondb.ErrNotFound) {
				return results.FailureResult[[]seasondb.DivisionCount, error](ErrSeasonNotFound), nil
			}
			return results.OperationResult[[]seasondb.DivisionCount, error]{}, err
		}
		counts, err := s.repo.DivisionCounts(ctx, nil, seasonID)
		if err != nil {
			return results.OperationResult[[]seasondb.DivisionCount, error]{}, err
		}
		byDivision := make(map[seasondomain.Division]int, len(counts))
		for _, c := range counts {
			byDivision[c.Division] = c.Count
		}
		out := make([]seasondb.DivisionCount, 0, len(seasondomain.Divisions))
		for _, d := range seasondomain.Divisions {
			out = append(out, seasondb.DivisionCount{Division: d, Count: byDivision[d]})
		}
		return results.SuccessResult[[]seasondb.DivisionCount, error](out), nil
	}))
}

var (
	chartBackground = drawing.ColorFromHex("1b1f24")
	chartBar        = drawing.ColorFromHex("e0a526")
	chartText       = drawing.ColorFromHex("e6e6e6")
)

// GenerateDivisionChart renders the distribution as a PNG bar chart.
func GenerateDivisionChart(title string, counts []seasondb.DivisionCount) ([]byte, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("no divisions to chart")
	}
	peak := 1
	for _, c := range counts {
		peak = max(peak, c.Count)
	}

	bars := make([]chart.Value, 0, len(counts))
	for _, c := range counts {
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s (%d)", c.Division, c.Count),
			Value: float64(c.Count),
			Style: chart.Style{FillColor: chartBar, StrokeColor: chartBar},
		})
	}

	graph := chart.BarChart{
		Title:      title,
		TitleStyle: chart.Style{FontColor: chartText},
		Width:      900,
		Height:     450,
		BarWidth:   90,
		BarSpacing: 40,
		Background: chart.Style{
			FillColor: chartBackground,
			Padding:   chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		Canvas: chart.Style{FillColor: chartBackground},
		XAxis:  chart.Style{FontColor: chartText, StrokeColor: chartText},
		YAxis: chart.YAxis{
			Style:          chart.Style{FontColor: chartText, StrokeColor: chartText},
			ValueFormatter: chart.IntValueFormatter,
			Range:          &chart.ContinuousRange{Min: 0, Max: float64(peak)},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
