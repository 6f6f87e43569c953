package logparse

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// linePattern extracts the fields of interest from one access log line.
// Accommodates PUTs as well as second URLs (normally "-").
var linePattern = regexp.MustCompile(
	`^(?P<ipaddress>\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}) .* .* ` +
		`\[(?P<date>\d{2}/[a-zA-Z]{3}/\d{4}):(?P<time>\d{2}:\d{2}:\d{2}) (?P<zone>[+-]\d{4})\] ` +
		`".* (?P<path>.*?) .*" (?P<status>\d+) (?P<size>\d+)(?: ".*" "(?P<agent>.*)")?`)

// tarballPattern splits a conda package filename into its name, version
// and build components.
var tarballPattern = regexp.MustCompile(`^(?P<name>.+)-(?P<version>[^-]+)-(?P<build>[^-]+)\.(?:tar\.bz2|conda)$`)

const timeLayout = "02/Jan/2006:15:04:05 -0700"

// platforms are the conda subdir names recognized in download paths.
var platforms = map[string]bool{
	"linux-64":  true,
	"linux-32":  true,
	"osx-64":    true,
	"osx-arm64": true,
	"win-64":    true,
	"win-32":    true,
	"noarch":    true,
}

// Options configures a Parser.
type Options struct {
	// Aliases maps raw channel names to canonical ones.
	Aliases map[string]string

	// IgnoreHosts are IP addresses whose transactions are dropped.
	IgnoreHosts []string

	Logger *zap.Logger
}

// Parser extracts package download records from access logs.
type Parser struct {
	aliases map[string]string
	ignore  map[string]struct{}
	log     *zap.Logger
}

// New returns a Parser with the given options.
func New(opts Options) *Parser {
	ignore := make(map[string]struct{}, len(opts.IgnoreHosts))
	for _, h := range opts.IgnoreHosts {
		ignore[h] = struct{}{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{
		aliases: opts.Aliases,
		ignore:  ignore,
		log:     log,
	}
}

// ParseFile parses one log file, raw or gzip-compressed, and returns
// the package download records it contains along with the file's
// content hash.
func (p *Parser) ParseFile(file string) (*FileResult, error) {
	hash, err := FileMD5(file)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(file, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read gzip log %s: %w", file, err)
		}
		defer gz.Close()
		r = gz
	}

	res, err := p.ParseReader(file, r)
	if err != nil {
		return nil, err
	}
	res.Hash = hash

	p.log.Debug("parsed log file",
		zap.String("file", file),
		zap.Int("lines", res.Lines),
		zap.Int("records", len(res.Records)),
		zap.Int("unparseable", res.Unparseable))

	return res, nil
}

// ParseReader parses log lines from r. Lines that do not match the
// access log format are counted, not fatal; only successful package
// downloads become records.
func (p *Parser) ParseReader(name string, r io.Reader) (*FileResult, error) {
	res := &FileResult{File: name}

	// ReadString instead of a Scanner: a single over-long line (a
	// malformed request, say) should count as unparseable, not abort
	// the whole file.
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			res.Lines++
			p.processLine(strings.TrimRight(line, "\r\n"), res)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
	}

	return res, nil
}

func (p *Parser) processLine(line string, res *FileResult) {
	rec, ok := p.parseLine(line)
	if !ok {
		res.Unparseable++
		return
	}
	if _, skip := p.ignore[rec.IP]; skip {
		res.Ignored++
		return
	}
	if !isPackageDownload(rec.Path, rec.Status) {
		res.Filtered++
		return
	}
	if !p.identify(&rec) {
		res.Filtered++
		return
	}
	res.Records = append(res.Records, rec)
}

// parseLine extracts a raw transaction from one log line.
func (p *Parser) parseLine(line string) (Record, bool) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return Record{}, false
	}

	group := func(name string) string {
		return m[linePattern.SubexpIndex(name)]
	}

	ts, err := time.Parse(timeLayout, group("date")+":"+group("time")+" "+group("zone"))
	if err != nil {
		return Record{}, false
	}

	status, err := strconv.Atoi(group("status"))
	if err != nil {
		return Record{}, false
	}
	size, _ := strconv.ParseInt(group("size"), 10, 64)

	return Record{
		IP:     group("ipaddress"),
		Time:   ts.UTC(),
		Path:   group("path"),
		Status: status,
		Bytes:  size,
		Agent:  group("agent"),
	}, true
}

// isPackageDownload reports whether the transaction is a successful
// conda package fetch. 302 counts: mirrors answer with a redirect to
// the backing store.
func isPackageDownload(reqPath string, status int) bool {
	if status != 200 && status != 302 {
		return false
	}
	return strings.HasSuffix(reqPath, ".tar.bz2") || strings.HasSuffix(reqPath, ".conda")
}

// identify derives channel, platform, and package name/version from
// the request path, applying channel aliases. Returns false when the
// path does not look like <channel>/.../<platform>/<tarball>.
func (p *Parser) identify(rec *Record) bool {
	segs := strings.Split(strings.Trim(rec.Path, "/"), "/")
	if len(segs) < 2 {
		return false
	}

	if alias, ok := p.aliases[segs[0]]; ok {
		segs[0] = alias
		rec.Path = "/" + strings.Join(segs, "/")
	}

	channel, platform, name, version, ok := SplitPackagePath(rec.Path)
	if !ok {
		return false
	}

	rec.Channel = channel
	rec.Platform = platform
	rec.Name = name
	rec.Version = version
	return true
}

// SplitPackagePath breaks a download path of the form
// /<channel>/.../<platform>/<name>-<version>-<build>.tar.bz2 into its
// components. Platform is empty when the containing directory is not a
// recognized conda subdir.
func SplitPackagePath(reqPath string) (channel, platform, name, version string, ok bool) {
	segs := strings.Split(strings.Trim(reqPath, "/"), "/")
	if len(segs) < 2 {
		return "", "", "", "", false
	}

	m := tarballPattern.FindStringSubmatch(path.Base(reqPath))
	if m == nil {
		return "", "", "", "", false
	}

	if plat := segs[len(segs)-2]; platforms[plat] {
		platform = plat
	}
	return segs[0], platform,
		m[tarballPattern.SubexpIndex("name")],
		m[tarballPattern.SubexpIndex("version")], true
}

// ParseFiles parses the given log files concurrently, at most workers
// at a time. Results are returned in input order so repeated runs
// produce identical datasets.
func (p *Parser) ParseFiles(ctx context.Context, files []string, workers int) ([]*FileResult, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]*FileResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := p.ParseFile(file)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
