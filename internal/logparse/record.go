// Package logparse extracts conda package download transactions from
// Apache/nginx access logs, in raw or gzip form.
package logparse

import "time"

// Record is one package download transaction extracted from a log line.
type Record struct {
	IP       string
	Time     time.Time
	Path     string
	Status   int
	Bytes    int64
	Agent    string
	Channel  string
	Platform string
	Name     string
	Version  string
}

// Day returns the record's timestamp truncated to midnight UTC.
// Daily aggregation and elapsed-day math operate on this.
func (r Record) Day() time.Time {
	return time.Date(r.Time.Year(), r.Time.Month(), r.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// FileResult summarizes parsing one log file.
type FileResult struct {
	File        string
	Hash        string
	Records     []Record
	Lines       int
	Unparseable int
	Filtered    int
	Ignored     int
}
