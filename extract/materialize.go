// Package extract turns downloaded compressed observation files into
// their local decompressed and optionally converted forms.
package extract

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"cddis/report"
)

// Materializer decompresses downloaded files and drives the external
// converter. Failures are reported and isolated to the single file;
// they never abort the run.
type Materializer struct {
	rep report.Reporter

	// converterPath overrides converter lookup in tests.
	converterPath func() (string, error)
}

// New creates a Materializer reporting through rep.
func New(rep report.Reporter) *Materializer {
	return &Materializer{rep: rep, converterPath: ConverterPath}
}

// Materialize decompresses compressedPath to a sibling path with the
// .gz suffix stripped, deleting the archive on success. When convert
// is set the decompressed file is run through CRX2RNX; only a
// successful conversion deletes the decompressed file. A decompressed
// but unconverted file left behind is intentional, not a defect.
func (m *Materializer) Materialize(compressedPath string, convert bool) {
	crxPath := strings.TrimSuffix(compressedPath, ".gz")
	if crxPath == compressedPath {
		m.rep.Warnf("%s has no .gz suffix, skipping extraction", compressedPath)
		return
	}

	if err := gunzip(compressedPath, crxPath); err != nil {
		m.rep.Errorf("extracting %s: %v", compressedPath, err)
		return
	}
	m.rep.Infof("Extracted: %s", crxPath)

	if err := os.Remove(compressedPath); err != nil {
		m.rep.Warnf("removing %s: %v", compressedPath, err)
	}

	if !convert {
		return
	}

	converter, err := m.converterPath()
	if err != nil {
		m.rep.Errorf("%v (decompressed file retained)", err)
		return
	}

	if err := runConverter(converter, crxPath); err != nil {
		m.rep.Errorf("converting %s: %v (decompressed file retained)", crxPath, err)
		return
	}
	m.rep.Successf("Converted to RINEX: %s", ConvertedName(crxPath))

	if err := os.Remove(crxPath); err != nil {
		m.rep.Warnf("removing %s: %v", crxPath, err)
	}
}

// ConvertedName returns the converter's expected output path for a
// decompressed .crx file.
func ConvertedName(crxPath string) string {
	return strings.TrimSuffix(crxPath, ".crx") + ".rnx"
}

// gunzip decompresses src into dst, leaving no partial dst behind on
// failure.
func gunzip(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("not a valid gzip file: %v", err)
	}
	defer gz.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, gz); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
