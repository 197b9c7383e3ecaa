// Package manifest records completed downloads in a CSV file so
// reruns and audits can see what a job actually fetched.
package manifest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// csvHeader defines the manifest column layout.
const csvHeader = "Timestamp,Station,Year,DOY,Hour,FileName,Bytes,DurationSec\n"

// Record describes one completed download.
type Record struct {
	Station  string
	Year     string
	DOY      string
	Hour     string
	FileName string
	Bytes    int64
	Duration time.Duration
}

// Appender appends download records to a manifest CSV, writing the
// header when it creates the file.
type Appender struct {
	path string
}

// NewAppender creates an appender writing to path; parent directories
// are created on first append.
func NewAppender(path string) *Appender {
	return &Appender{path: path}
}

// Append writes one record. The file is opened per call so a crashed
// run never holds the manifest open.
func (a *Appender) Append(rec Record) error {
	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %v", err)
	}

	fileExists := true
	if _, err := os.Stat(a.path); os.IsNotExist(err) {
		fileExists = false
	}

	file, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open manifest %s: %v", a.path, err)
	}
	defer file.Close()

	if !fileExists {
		if _, err := file.WriteString(csvHeader); err != nil {
			return fmt.Errorf("failed to write manifest header: %v", err)
		}
	}

	writer := csv.NewWriter(file)
	record := []string{
		time.Now().Format(time.RFC3339),
		rec.Station,
		rec.Year,
		rec.DOY,
		rec.Hour,
		rec.FileName,
		strconv.FormatInt(rec.Bytes, 10),
		strconv.FormatFloat(rec.Duration.Seconds(), 'f', 2, 64),
	}
	if err := writer.Write(record); err != nil {
		return fmt.Errorf("failed to write manifest record: %v", err)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush manifest: %v", err)
	}
	return nil
}
