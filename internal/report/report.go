// Package report aggregates download records into per-channel
// summaries and renders them for the terminal.
package report

import (
	"math"
	"sort"
	"time"

	"github.com/rendinam/logparse/internal/classify"
	"github.com/rendinam/logparse/internal/logparse"
)

// TitleStat is the download activity for one package title within a
// channel, split by download origin.
type TitleStat struct {
	Name    string
	Total   int
	Offsite int
	Onsite  int
	Infra   int
	OnPyPI  bool
}

// Summary is the download activity report for one channel.
type Summary struct {
	Channel string

	Start time.Time
	End   time.Time
	Days  int

	Downloads int
	AvgPerDay int
	Bytes     int64

	UniqueHosts  int
	UniqueFiles  int
	UniqueTitles int

	OnsiteHosts  int
	OffsiteHosts int

	NonInfra    int
	PctNonInfra float64

	PctLinux float64
	PctMacOS float64

	// ByDay maps each day in the period to its download count.
	ByDay map[time.Time]int

	// Titles is sorted by total downloads, descending.
	Titles []TitleStat
}

// Build aggregates one channel's records into a Summary. Records must
// all belong to the same channel; they need not be sorted.
func Build(channel string, records []logparse.Record, cls *classify.Classifier) Summary {
	s := Summary{
		Channel:   channel,
		Downloads: len(records),
		ByDay:     make(map[time.Time]int),
	}
	if len(records) == 0 {
		return s
	}

	hosts := make(map[string]struct{})
	onsiteHosts := make(map[string]struct{})
	offsiteHosts := make(map[string]struct{})
	files := make(map[string]struct{})
	titles := make(map[string]*TitleStat)

	linux, macos := 0, 0

	for _, r := range records {
		day := r.Day()
		if s.Start.IsZero() || day.Before(s.Start) {
			s.Start = day
		}
		if day.After(s.End) {
			s.End = day
		}
		s.ByDay[day]++
		s.Bytes += r.Bytes

		hosts[r.IP] = struct{}{}
		files[r.Path] = struct{}{}

		switch r.Platform {
		case "linux-64", "linux-32":
			linux++
		case "osx-64", "osx-arm64":
			macos++
		}

		t := titles[r.Name]
		if t == nil {
			t = &TitleStat{Name: r.Name}
			titles[r.Name] = t
		}
		t.Total++

		switch cls.Classify(r.IP) {
		case classify.Infrastructure:
			t.Infra++
			onsiteHosts[r.IP] = struct{}{}
		case classify.Internal:
			t.Onsite++
			s.NonInfra++
			onsiteHosts[r.IP] = struct{}{}
		default:
			t.Offsite++
			s.NonInfra++
			offsiteHosts[r.IP] = struct{}{}
		}
	}

	s.Days = elapsedDays(s.Start, s.End)
	s.AvgPerDay = int(math.Ceil(float64(s.Downloads) / float64(s.Days)))

	s.UniqueHosts = len(hosts)
	s.OnsiteHosts = len(onsiteHosts)
	s.OffsiteHosts = len(offsiteHosts)
	s.UniqueFiles = len(files)
	s.UniqueTitles = len(titles)

	s.PctNonInfra = pct(s.NonInfra, s.Downloads)
	s.PctLinux = pct(linux, s.Downloads)
	s.PctMacOS = pct(macos, s.Downloads)

	s.Titles = make([]TitleStat, 0, len(titles))
	for _, t := range titles {
		s.Titles = append(s.Titles, *t)
	}
	sort.Slice(s.Titles, func(i, j int) bool {
		if s.Titles[i].Total != s.Titles[j].Total {
			return s.Titles[i].Total > s.Titles[j].Total
		}
		return s.Titles[i].Name < s.Titles[j].Name
	})

	return s
}

// BuildAll groups records by channel and builds a Summary per channel,
// sorted by channel name.
func BuildAll(records []logparse.Record, cls *classify.Classifier) []Summary {
	byChannel := make(map[string][]logparse.Record)
	for _, r := range records {
		byChannel[r.Channel] = append(byChannel[r.Channel], r)
	}

	channels := make([]string, 0, len(byChannel))
	for c := range byChannel {
		channels = append(channels, c)
	}
	sort.Strings(channels)

	summaries := make([]Summary, 0, len(channels))
	for _, c := range channels {
		summaries = append(summaries, Build(c, byChannel[c], cls))
	}
	return summaries
}

// elapsedDays is the inclusive day count of the period.
func elapsedDays(start, end time.Time) int {
	days := int(end.Sub(start).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return days + 1
}

func pct(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
