package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/rendinam/logparse/internal/classify"
	"github.com/rendinam/logparse/internal/config"
	"github.com/rendinam/logparse/internal/logparse"
)

func testClassifier(t *testing.T) *classify.Classifier {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.InfrastructureHosts = []string{"10.1.0.5"}
	cfg.InternalHostSpecs = []string{`10\.1\.`}
	cls, err := classify.New(cfg)
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	return cls
}

func rec(ip string, day int, platform, name string, bytes int64) logparse.Record {
	return logparse.Record{
		IP:       ip,
		Time:     time.Date(2020, 2, day, 12, 0, 0, 0, time.UTC),
		Path:     "/astroconda/" + platform + "/" + name + "-1.0-0.tar.bz2",
		Status:   200,
		Bytes:    bytes,
		Channel:  "astroconda",
		Platform: platform,
		Name:     name,
		Version:  "1.0",
	}
}

func TestBuild(t *testing.T) {
	records := []logparse.Record{
		rec("8.8.8.8", 1, "linux-64", "numpy", 100),   // off-site
		rec("8.8.8.8", 1, "linux-64", "numpy", 100),   // off-site, same host
		rec("10.1.2.3", 3, "osx-64", "numpy", 50),     // on-site
		rec("10.1.0.5", 5, "linux-64", "numpy", 25),   // infrastructure
		rec("10.1.2.3", 5, "linux-64", "astropy", 75), // on-site
	}

	got := Build("astroconda", records, testClassifier(t))

	want := Summary{
		Channel:      "astroconda",
		Start:        time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC),
		End:          time.Date(2020, 2, 5, 0, 0, 0, 0, time.UTC),
		Days:         5,
		Downloads:    5,
		AvgPerDay:    1,
		Bytes:        350,
		UniqueHosts:  3,
		UniqueFiles:  3,
		UniqueTitles: 2,
		OnsiteHosts:  2,
		OffsiteHosts: 1,
		NonInfra:     4,
		PctNonInfra:  80,
		PctLinux:     80,
		PctMacOS:     20,
		ByDay: map[time.Time]int{
			time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC): 2,
			time.Date(2020, 2, 3, 0, 0, 0, 0, time.UTC): 1,
			time.Date(2020, 2, 5, 0, 0, 0, 0, time.UTC): 2,
		},
		Titles: []TitleStat{
			{Name: "numpy", Total: 4, Offsite: 2, Onsite: 1, Infra: 1},
			{Name: "astropy", Total: 1, Onsite: 1},
		},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Build mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_SingleDay(t *testing.T) {
	records := []logparse.Record{
		rec("8.8.8.8", 1, "linux-64", "numpy", 100),
	}
	got := Build("astroconda", records, testClassifier(t))
	if got.Days != 2 {
		t.Errorf("expected inclusive day count 2 for a single-day period, got %d", got.Days)
	}
	if got.AvgPerDay != 1 {
		t.Errorf("expected AvgPerDay=1, got %d", got.AvgPerDay)
	}
}

func TestBuild_Empty(t *testing.T) {
	got := Build("astroconda", nil, testClassifier(t))
	if got.Downloads != 0 || len(got.Titles) != 0 {
		t.Errorf("expected empty summary, got %+v", got)
	}
}

func TestBuildAll_GroupsByChannel(t *testing.T) {
	a := rec("8.8.8.8", 1, "linux-64", "numpy", 1)
	b := rec("8.8.8.8", 1, "linux-64", "stsci", 1)
	b.Channel = "astroconda-dev"

	summaries := BuildAll([]logparse.Record{b, a}, testClassifier(t))

	var channels []string
	for _, s := range summaries {
		channels = append(channels, s.Channel)
	}
	if diff := cmp.Diff([]string{"astroconda", "astroconda-dev"}, channels); diff != "" {
		t.Errorf("channel grouping mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_TitleOrderDeterministic(t *testing.T) {
	records := []logparse.Record{
		rec("8.8.8.8", 1, "linux-64", "zeta", 1),
		rec("8.8.8.8", 1, "linux-64", "alpha", 1),
	}
	got := Build("astroconda", records, testClassifier(t))

	want := []TitleStat{
		{Name: "alpha", Total: 1, Offsite: 1},
		{Name: "zeta", Total: 1, Offsite: 1},
	}
	if diff := cmp.Diff(want, got.Titles, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("title order mismatch (-want +got):\n%s", diff)
	}
}

func TestRender(t *testing.T) {
	records := []logparse.Record{
		rec("8.8.8.8", 1, "linux-64", "numpy", 100),
		rec("10.1.2.3", 3, "osx-64", "astropy", 50),
	}
	s := Build("astroconda", records, testClassifier(t))

	var buf bytes.Buffer
	Render(&buf, s)
	out := buf.String()

	for _, want := range []string{
		"Summary for channel: astroconda",
		"numpy",
		"astropy",
		"02-01-2020 to 02-03-2020",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render output missing %q:\n%s", want, out)
		}
	}
}
