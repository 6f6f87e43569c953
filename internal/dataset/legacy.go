package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rendinam/logparse/internal/logparse"
)

// Legacy dataset files are JSON lines: a header object carrying the
// processed-file hashes, then one record object per line. This is the
// export format of the original Python tooling's dataset dump.
type legacyHeader struct {
	FileHashes []string `json:"file_hashes"`
}

type legacyRecord struct {
	IPAddress string `json:"ipaddress"`
	Date      string `json:"date"` // YYYY-MM-DD
	Time      string `json:"time"` // HH:MM:SS
	Path      string `json:"path"`
	Status    string `json:"status"`
	Size      int64  `json:"size"`
	Agent     string `json:"agent"`
}

// ImportLegacy merges an old-format dataset file into the store.
// Channel, platform, and package identity are re-derived from each
// record's path since the legacy format did not carry them all.
func (s *Store) ImportLegacy(file string) (int, error) {
	f, err := os.Open(file)
	if err != nil {
		return 0, fmt.Errorf("failed to open legacy dataset: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return 0, fmt.Errorf("failed to read legacy dataset: %w", err)
		}
		return 0, fmt.Errorf("legacy dataset %s is empty", file)
	}

	var header legacyHeader
	if err := json.Unmarshal(scanner.Bytes(), &header); err != nil {
		return 0, fmt.Errorf("failed to parse legacy header: %w", err)
	}

	var records []logparse.Record
	skipped := 0
	for scanner.Scan() {
		var lr legacyRecord
		if err := json.Unmarshal(scanner.Bytes(), &lr); err != nil {
			skipped++
			continue
		}
		rec, ok := convertLegacy(lr)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read legacy dataset: %w", err)
	}

	added, err := s.AddRecords(records)
	if err != nil {
		return 0, err
	}

	for _, hash := range header.FileHashes {
		if err := s.AddFile(hash, "legacy:"+file, "", 0); err != nil {
			return added, err
		}
	}

	s.log.Info("imported legacy dataset",
		zap.String("file", file),
		zap.Int("records", added),
		zap.Int("hashes", len(header.FileHashes)),
		zap.Int("skipped", skipped))

	return added, nil
}

func convertLegacy(lr legacyRecord) (logparse.Record, bool) {
	ts, err := time.Parse("2006-01-02 15:04:05", lr.Date+" "+lr.Time)
	if err != nil {
		return logparse.Record{}, false
	}
	status, err := strconv.Atoi(lr.Status)
	if err != nil {
		return logparse.Record{}, false
	}

	channel, platform, name, version, ok := logparse.SplitPackagePath(lr.Path)
	if !ok {
		return logparse.Record{}, false
	}

	return logparse.Record{
		IP:       lr.IPAddress,
		Time:     ts.UTC(),
		Path:     lr.Path,
		Status:   status,
		Bytes:    lr.Size,
		Agent:    lr.Agent,
		Channel:  channel,
		Platform: platform,
		Name:     name,
		Version:  version,
	}, true
}
