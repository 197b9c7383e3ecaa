// Package scheduler drives a retrieval job across the requested
// DOY/hour address space, one session per DOY.
package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cddis/config"
	"cddis/extract"
	"cddis/manifest"
	"cddis/report"
	"cddis/session"
)

// ArchiveSession is what the scheduler needs from a retrieval session.
type ArchiveSession interface {
	Connect() error
	Close()
	ListHourFolders(basePath string) []string
	ListFiles(basePath, hour, stationFilter string) []string
	DownloadFile(basePath, hour, filename, localPath string) error
}

// Materializer turns a downloaded compressed file into its local
// decompressed (and optionally converted) form.
type Materializer interface {
	Materialize(compressedPath string, convert bool)
}

// DOYStats accumulates the outcome of one requested DOY across all of
// its passes.
type DOYStats struct {
	DOY        string
	Downloaded int
	Skipped    int
	Bytes      int64
	Retries    int
}

// Scheduler owns request-level progress state. A DOY is only advanced
// past on success or on a genuinely-empty listing; transient failures
// retry the same DOY after a wait.
type Scheduler struct {
	cfg *config.Settings
	rep report.Reporter

	NewSession   func() ArchiveSession
	Materializer Materializer
	Manifest     *manifest.Appender

	sleep func(time.Duration)

	mu     sync.Mutex
	active ArchiveSession
}

// New wires a scheduler with the production session and materializer.
func New(cfg *config.Settings, rep report.Reporter) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		rep:          rep,
		NewSession:   func() ArchiveSession { return session.New(cfg, rep) },
		Materializer: extract.New(rep),
		Manifest:     manifest.NewAppender(filepath.Join(cfg.DownloadRoot, "manifest.csv")),
		sleep:        time.Sleep,
	}
}

// Run processes every requested DOY to completion. The archive is
// treated as eventually available: a DOY failing on transient network
// conditions is retried after the configured wait, never skipped.
func (s *Scheduler) Run(req *config.Request) []DOYStats {
	stats := make([]DOYStats, len(req.DOYs))
	for i := range stats {
		stats[i].DOY = req.DOYs[i]
	}

	for i := 0; i < len(req.DOYs); {
		doy := req.DOYs[i]
		s.rep.Infof("Processing DOY %s", doy)

		if s.processDOY(req, doy, &stats[i]) {
			i++
			continue
		}

		stats[i].Retries++
		s.rep.Warnf("DOY %s pass failed, retrying in %v", doy, s.cfg.DOYRetryWait)
		s.sleep(s.cfg.DOYRetryWait)
	}

	return stats
}

// processDOY runs one pass over a single DOY with a fresh session.
// It returns true when the scheduler may advance to the next DOY.
func (s *Scheduler) processDOY(req *config.Request, doy string, st *DOYStats) (advance bool) {
	sess := s.NewSession()
	if err := sess.Connect(); err != nil {
		s.rep.Errorf("connecting for DOY %s: %v", doy, err)
		return false
	}
	s.setActive(sess)
	// The session is closed on every exit path, success or failure.
	defer func() {
		s.setActive(nil)
		sess.Close()
	}()

	basePath := fmt.Sprintf("%s/%s/%s/%s", s.cfg.RemoteBase, req.Year, doy, req.Subfolder)

	available := sess.ListHourFolders(basePath)
	if len(available) == 0 {
		// Not retryable: the archive genuinely has no data here yet.
		s.rep.Warnf("no hour subfolders found in %s", basePath)
		return true
	}

	hours := req.Hours
	if len(hours) == 0 {
		hours = available
	}
	valid := intersect(hours, available)
	if len(valid) == 0 {
		s.rep.Warnf("no valid hours for DOY %s, available: %v", doy, available)
		return true
	}

	downloadDir := filepath.Join(s.cfg.DownloadRoot, req.StationFolder(), req.Year, doy)
	if err := os.MkdirAll(downloadDir, 0755); err != nil {
		s.rep.Errorf("creating %s: %v", downloadDir, err)
		return false
	}
	s.rep.Infof("Processing hours %v, saving to %s", valid, downloadDir)

	for _, hour := range valid {
		files := sess.ListFiles(basePath, hour, req.Station)
		if len(files) == 0 {
			s.rep.Infof("no %s files in %s/%s (filter=%s)",
				session.CompressedSuffix, basePath, hour, req.Station)
			continue
		}

		hourDir := filepath.Join(downloadDir, hour)
		if err := os.MkdirAll(hourDir, 0755); err != nil {
			s.rep.Errorf("creating %s: %v", hourDir, err)
			return false
		}

		for _, name := range files {
			localPath := filepath.Join(hourDir, name)
			if s.alreadyMaterialized(localPath) {
				st.Skipped++
				continue
			}

			start := time.Now()
			if err := sess.DownloadFile(basePath, hour, name, localPath); err != nil {
				// Stop processing this DOY; it will be retried whole.
				s.rep.Errorf("downloading %s: %v", name, err)
				return false
			}
			s.rep.Successf("Downloaded: %s", name)

			st.Downloaded++
			var size int64
			if fi, err := os.Stat(localPath); err == nil {
				size = fi.Size()
				st.Bytes += size
			}
			s.recordDownload(req, doy, hour, name, size, time.Since(start))

			if req.Extract {
				s.Materializer.Materialize(localPath, req.Convert)
			}
		}
	}

	return true
}

// alreadyMaterialized reports whether a converted or decompressed
// counterpart of the compressed file already exists locally, making
// reruns idempotent.
func (s *Scheduler) alreadyMaterialized(compressedPath string) bool {
	crxPath := strings.TrimSuffix(compressedPath, ".gz")

	rnxPath := extract.ConvertedName(crxPath)
	if _, err := os.Stat(rnxPath); err == nil {
		s.rep.Infof("Skipping %s: converted output exists", filepath.Base(compressedPath))
		return true
	}
	if _, err := os.Stat(crxPath); err == nil {
		s.rep.Infof("Skipping %s: decompressed output exists", filepath.Base(compressedPath))
		return true
	}
	return false
}

// recordDownload appends to the manifest; manifest trouble is a
// warning, never fatal.
func (s *Scheduler) recordDownload(req *config.Request, doy, hour, name string, size int64, dur time.Duration) {
	if s.Manifest == nil {
		return
	}
	err := s.Manifest.Append(manifest.Record{
		Station:  req.StationFolder(),
		Year:     req.Year,
		DOY:      doy,
		Hour:     hour,
		FileName: name,
		Bytes:    size,
		Duration: dur,
	})
	if err != nil {
		s.rep.Warnf("manifest: %v", err)
	}
}

func (s *Scheduler) setActive(sess ArchiveSession) {
	s.mu.Lock()
	s.active = sess
	s.mu.Unlock()
}

// CloseActive closes the session currently processing a DOY, if any.
// Used by the signal handler on shutdown.
func (s *Scheduler) CloseActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.active.Close()
		s.active = nil
	}
}

// intersect returns the members of want that are present in have,
// preserving want's order.
func intersect(want, have []string) []string {
	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[h] = true
	}
	var out []string
	for _, w := range want {
		if set[w] {
			out = append(out, w)
		}
	}
	return out
}
