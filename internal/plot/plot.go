// Package plot renders per-channel download summaries as horizontal
// stacked bar charts, one PNG per channel.
package plot

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/rendinam/logparse/internal/report"
)

var (
	colorOffsite = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff} // blue
	colorOnsite  = color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff} // green
	colorInfra   = color.RGBA{R: 0xbc, G: 0xbd, B: 0x22, A: 0xff} // olive
)

const dateLayout = "20060102"

// WriteChannelChart renders the summary as a stacked horizontal bar
// chart and writes <channel>-<start>-<end>.png into dir. It returns
// the written file path.
func WriteChannelChart(s report.Summary, dir string) (string, error) {
	if len(s.Titles) == 0 {
		return "", fmt.Errorf("channel %s has no titles to plot", s.Channel)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create plot directory: %w", err)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s -- %s - %s",
		s.Channel, s.Start.Format(dateLayout), s.End.Format(dateLayout))
	p.X.Label.Text = "Downloads"

	// Bars fill bottom-up, so reverse to put the most downloaded
	// title at the top.
	n := len(s.Titles)
	names := barLabels(s.Titles)
	offsite := make(plotter.Values, n)
	onsite := make(plotter.Values, n)
	infra := make(plotter.Values, n)
	for i, t := range s.Titles {
		j := n - 1 - i
		offsite[j] = float64(t.Offsite)
		onsite[j] = float64(t.Onsite)
		infra[j] = float64(t.Infra)
	}

	width := vg.Points(10)

	offBars, err := plotter.NewBarChart(offsite, width)
	if err != nil {
		return "", fmt.Errorf("failed to build bar chart: %w", err)
	}
	onBars, err := plotter.NewBarChart(onsite, width)
	if err != nil {
		return "", fmt.Errorf("failed to build bar chart: %w", err)
	}
	infraBars, err := plotter.NewBarChart(infra, width)
	if err != nil {
		return "", fmt.Errorf("failed to build bar chart: %w", err)
	}

	for _, b := range []*plotter.BarChart{offBars, onBars, infraBars} {
		b.Horizontal = true
		b.LineStyle.Width = 0
	}
	offBars.Color = colorOffsite
	onBars.Color = colorOnsite
	infraBars.Color = colorInfra

	onBars.StackOn(offBars)
	infraBars.StackOn(onBars)

	p.Add(offBars, onBars, infraBars)
	p.NominalY(names...)

	p.Legend.Add("off-site", offBars)
	p.Legend.Add("on-site", onBars)
	p.Legend.Add("on-site infrastructure", infraBars)
	p.Legend.Top = true

	if err := addStatsBox(p, s); err != nil {
		return "", err
	}

	// Scale chart height with the number of titles so labels stay
	// readable on busy channels.
	height := vg.Points(float64(n)*14) + 2*vg.Inch
	if height < 4*vg.Inch {
		height = 4 * vg.Inch
	}

	name := fmt.Sprintf("%s-%s-%s.png",
		s.Channel, s.Start.Format(dateLayout), s.End.Format(dateLayout))
	out := filepath.Join(dir, name)
	if err := p.Save(8*vg.Inch, height, out); err != nil {
		return "", fmt.Errorf("failed to save plot: %w", err)
	}

	return out, nil
}

// barLabels returns the Y-axis labels bottom-up, marking titles that
// are also available on PyPI.
func barLabels(titles []report.TitleStat) []string {
	n := len(titles)
	names := make([]string, n)
	for i, t := range titles {
		label := t.Name
		if t.OnPyPI {
			label += " *"
		}
		names[n-1-i] = label
	}
	return names
}

// addStatsBox annotates the chart with the headline numbers.
func addStatsBox(p *plot.Plot, s report.Summary) error {
	text := statsText(s)

	maxTotal := 0
	for _, t := range s.Titles {
		if t.Total > maxTotal {
			maxTotal = t.Total
		}
	}

	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: float64(maxTotal) * 0.55, Y: float64(len(s.Titles)) * 0.08}},
		Labels: []string{text},
	})
	if err != nil {
		return fmt.Errorf("failed to annotate plot: %w", err)
	}
	p.Add(labels)
	return nil
}

func statsText(s report.Summary) string {
	plural := ""
	if s.Days > 1 {
		plural = "s"
	}
	text := fmt.Sprintf(
		"%d day%s\nTotal downloads: %d\nAverage downloads per day: %d\n"+
			"Unique titles: %d\nData transferred: %s\n"+
			"Linux transactions: %.1f%%\nMacos transactions: %.1f%%\n"+
			"Unique on-site hosts: %d\nUnique off-site hosts: %d",
		s.Days, plural, s.Downloads, s.AvgPerDay,
		s.UniqueTitles, humanize.Bytes(uint64(s.Bytes)),
		s.PctLinux, s.PctMacOS, s.OnsiteHosts, s.OffsiteHosts)

	for _, t := range s.Titles {
		if t.OnPyPI {
			text += "\n* also available on PyPI"
			break
		}
	}
	return text
}
