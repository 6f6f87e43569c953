package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Width(28)

	pypiStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("208"))
)

// Render writes a channel summary to w.
func Render(w io.Writer, s Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Summary for channel: %s", s.Channel)))

	plural := ""
	if s.Days > 1 {
		plural = "s"
	}
	row(w, "Period", fmt.Sprintf("%s to %s (%d day%s)",
		s.Start.Format("01-02-2006"), s.End.Format("01-02-2006"), s.Days, plural))
	row(w, "Downloads", fmt.Sprintf("%d", s.Downloads))
	row(w, "Average downloads per day", fmt.Sprintf("%d", s.AvgPerDay))
	row(w, "Data transferred", humanize.Bytes(uint64(s.Bytes)))
	row(w, "Unique hosts", fmt.Sprintf("%d", s.UniqueHosts))
	row(w, "Unique on-site hosts", fmt.Sprintf("%d", s.OnsiteHosts))
	row(w, "Unique off-site hosts", fmt.Sprintf("%d", s.OffsiteHosts))
	row(w, "Unique package files", fmt.Sprintf("%d", s.UniqueFiles))
	row(w, "Unique titles", fmt.Sprintf("%d", s.UniqueTitles))
	row(w, "Non-infrastructure", fmt.Sprintf("%d (%.1f%%)", s.NonInfra, s.PctNonInfra))
	row(w, "Linux transactions", fmt.Sprintf("%.1f%%", s.PctLinux))
	row(w, "Macos transactions", fmt.Sprintf("%.1f%%", s.PctMacOS))

	if len(s.Titles) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-30s %8s %9s %8s %7s\n", "title", "total", "off-site", "on-site", "infra")
	fmt.Fprintf(w, "  %s\n", strings.Repeat("-", 66))
	for _, t := range s.Titles {
		name := t.Name
		if t.OnPyPI {
			name = pypiStyle.Render(name)
		}
		// Styled names carry escape codes, so pad on the raw width.
		pad := 30 - len(t.Name)
		if pad < 0 {
			pad = 0
		}
		fmt.Fprintf(w, "  %s%s %8d %9d %8d %7d\n",
			name, strings.Repeat(" ", pad), t.Total, t.Offsite, t.Onsite, t.Infra)
	}
	if anyOnPyPI(s.Titles) {
		fmt.Fprintln(w)
		fmt.Fprintln(w, pypiStyle.Render("  highlighted titles are also available on PyPI"))
	}
}

func row(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label), value)
}

func anyOnPyPI(titles []TitleStat) bool {
	for _, t := range titles {
		if t.OnPyPI {
			return true
		}
	}
	return false
}
