package scheduler

import (
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cddis/config"
	"cddis/extract"
	"cddis/report"
)

// fakeArchive scripts one archive layout for scheduler tests.
type fakeArchive struct {
	hours map[string][]string // basePath -> hour folders
	files map[string][]string // basePath/hour -> filenames

	connectErrs  int // fail this many Connect calls
	downloadErrs int // fail this many DownloadFile calls

	connects  int
	closes    int
	downloads int
}

func (f *fakeArchive) Connect() error {
	f.connects++
	if f.connectErrs > 0 {
		f.connectErrs--
		return errors.New("530 handshake failed")
	}
	return nil
}

func (f *fakeArchive) Close() { f.closes++ }

func (f *fakeArchive) ListHourFolders(basePath string) []string {
	return f.hours[basePath]
}

func (f *fakeArchive) ListFiles(basePath, hour, stationFilter string) []string {
	return f.files[basePath+"/"+hour]
}

func (f *fakeArchive) DownloadFile(basePath, hour, filename, localPath string) error {
	if f.downloadErrs > 0 {
		f.downloadErrs--
		return errors.New("550 transfer failed after retries")
	}
	f.downloads++

	// Real gzip bytes so the materializer can decompress them.
	out, err := os.Create(localPath)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(out)
	gz.Write([]byte("compact observation data"))
	gz.Close()
	return out.Close()
}

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	return &config.Settings{
		RemoteBase:   "/gnss/data/highrate",
		DownloadRoot: filepath.Join(t.TempDir(), "downloads"),
		DOYRetryWait: time.Millisecond,
	}
}

func newTestScheduler(cfg *config.Settings, arch *fakeArchive, slept *int) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		rep:          report.Discard{},
		NewSession:   func() ArchiveSession { return arch },
		Materializer: extract.New(report.Discard{}),
		sleep: func(time.Duration) {
			if slept != nil {
				*slept++
			}
		},
	}
}

func brstRequest(extractFiles bool) *config.Request {
	return &config.Request{
		Station:   "BRST00FRA",
		Year:      "2024",
		DOYs:      []string{"300"},
		Hours:     []string{"05"},
		Subfolder: "24d",
		Extract:   extractFiles,
	}
}

const brstFile = "BRST00FRA_R_20243000500_01H_01S_MO.crx.gz"

func brstArchive() *fakeArchive {
	base := "/gnss/data/highrate/2024/300/24d"
	return &fakeArchive{
		hours: map[string][]string{base: {"05"}},
		files: map[string][]string{base + "/05": {brstFile}},
	}
}

func TestRunDownloadsAndExtracts(t *testing.T) {
	cfg := testSettings(t)
	arch := brstArchive()
	s := newTestScheduler(cfg, arch, nil)

	stats := s.Run(brstRequest(true))

	hourDir := filepath.Join(cfg.DownloadRoot, "BRST00FRA", "2024", "300", "05")
	crx := filepath.Join(hourDir, "BRST00FRA_R_20243000500_01H_01S_MO.crx")
	if _, err := os.Stat(crx); err != nil {
		t.Fatalf("decompressed file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(hourDir, brstFile)); !os.IsNotExist(err) {
		t.Fatal(".crx.gz must be deleted after extraction")
	}
	if _, err := os.Stat(extract.ConvertedName(crx)); !os.IsNotExist(err) {
		t.Fatal("no .rnx may exist without conversion")
	}
	if stats[0].Downloaded != 1 || stats[0].Retries != 0 {
		t.Fatalf("unexpected stats: %+v", stats[0])
	}
	if arch.closes != 1 {
		t.Fatalf("session must be closed exactly once, got %d", arch.closes)
	}
}

func TestRunIdempotentRerun(t *testing.T) {
	cfg := testSettings(t)
	arch := brstArchive()
	s := newTestScheduler(cfg, arch, nil)

	s.Run(brstRequest(true))
	first := arch.downloads

	stats := s.Run(brstRequest(true))
	if arch.downloads != first {
		t.Fatalf("rerun downloaded %d extra files, want 0", arch.downloads-first)
	}
	if stats[0].Skipped != 1 {
		t.Fatalf("rerun should skip the materialized file, stats: %+v", stats[0])
	}
}

func TestRunAbsentHourAdvances(t *testing.T) {
	cfg := testSettings(t)
	arch := brstArchive()
	var slept int
	s := newTestScheduler(cfg, arch, &slept)

	req := brstRequest(true)
	req.Hours = []string{"06"}
	stats := s.Run(req)

	if stats[0].Downloaded != 0 || stats[0].Retries != 0 {
		t.Fatalf("absent hour must advance without retries, stats: %+v", stats[0])
	}
	if slept != 0 {
		t.Fatalf("absent hour must not trigger a retry wait, slept %d times", slept)
	}
	hourDir := filepath.Join(cfg.DownloadRoot, "BRST00FRA", "2024", "300", "06")
	if _, err := os.Stat(hourDir); !os.IsNotExist(err) {
		t.Fatal("no directory may be created for the absent hour")
	}
}

func TestRunEmptyListingAdvances(t *testing.T) {
	cfg := testSettings(t)
	arch := &fakeArchive{hours: map[string][]string{}}
	var slept int
	s := newTestScheduler(cfg, arch, &slept)

	stats := s.Run(brstRequest(false))
	if stats[0].Retries != 0 || slept != 0 {
		t.Fatalf("empty hour listing is not retryable, stats: %+v slept: %d", stats[0], slept)
	}
}

func TestRunRetriesSameDOYOnDownloadFailure(t *testing.T) {
	cfg := testSettings(t)
	arch := brstArchive()
	arch.downloadErrs = 1
	var slept int
	s := newTestScheduler(cfg, arch, &slept)

	stats := s.Run(brstRequest(false))

	if stats[0].Retries != 1 {
		t.Fatalf("failed pass must retry the same DOY, stats: %+v", stats[0])
	}
	if slept != 1 {
		t.Fatalf("expected one retry wait, got %d", slept)
	}
	if arch.connects != 2 || arch.closes != 2 {
		t.Fatalf("each pass needs a fresh session: connects=%d closes=%d", arch.connects, arch.closes)
	}
	if stats[0].Downloaded != 1 {
		t.Fatalf("second pass should complete the download, stats: %+v", stats[0])
	}
}

func TestRunRetriesSameDOYOnConnectFailure(t *testing.T) {
	cfg := testSettings(t)
	arch := brstArchive()
	arch.connectErrs = 2
	var slept int
	s := newTestScheduler(cfg, arch, &slept)

	stats := s.Run(brstRequest(false))
	if stats[0].Retries != 2 || slept != 2 {
		t.Fatalf("connect failures must retry the same DOY: stats=%+v slept=%d", stats[0], slept)
	}
	if stats[0].Downloaded != 1 {
		t.Fatalf("expected eventual success, stats: %+v", stats[0])
	}
}

func TestRunAllStationsFolder(t *testing.T) {
	cfg := testSettings(t)
	arch := brstArchive()
	s := newTestScheduler(cfg, arch, nil)

	req := brstRequest(false)
	req.Station = ""
	req.Hours = nil // all available hours
	s.Run(req)

	local := filepath.Join(cfg.DownloadRoot, "ALLSTATIONS", "2024", "300", "05", brstFile)
	if _, err := os.Stat(local); err != nil {
		t.Fatalf("download missing under ALLSTATIONS: %v", err)
	}
}

func TestIntersectPreservesOrder(t *testing.T) {
	got := intersect([]string{"00", "05", "06"}, []string{"05", "00", "12"})
	if len(got) != 2 || got[0] != "00" || got[1] != "05" {
		t.Fatalf("got %v, want [00 05]", got)
	}
}
