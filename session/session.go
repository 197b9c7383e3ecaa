// Package session owns one FTPS connection to the CDDIS archive and
// exposes directory listing, filtered file listing, and single-file
// download, each tolerant of the connection silently dying mid-run.
package session

import (
	"crypto/tls"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"cddis/config"
	"cddis/report"
)

// State describes the session's connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateFaulted:
		return "faulted"
	default:
		return "disconnected"
	}
}

// CompressedSuffix identifies gzip-compressed compact observation files
// on the archive.
const CompressedSuffix = ".crx.gz"

// remoteConn is the subset of the FTP client the session needs. The
// indirection keeps the retry machinery testable without a live
// server.
type remoteConn interface {
	ChangeDir(path string) error
	NameList(path string) ([]string, error)
	Retr(path string) (io.ReadCloser, error)
	Quit() error
}

// serverConn adapts *ftp.ServerConn to remoteConn.
type serverConn struct {
	c *ftp.ServerConn
}

func (s serverConn) ChangeDir(path string) error { return s.c.ChangeDir(path) }

func (s serverConn) NameList(path string) ([]string, error) { return s.c.NameList(path) }

func (s serverConn) Quit() error { return s.c.Quit() }

func (s serverConn) Retr(path string) (io.ReadCloser, error) {
	return s.c.Retr(path)
}

// Session wraps one anonymous encrypted connection to the archive.
// It is not safe for concurrent use; the scheduler owns it exclusively
// for the lifetime of one DOY.
type Session struct {
	conn  remoteConn
	state State
	rep   report.Reporter

	maxAttempts    int
	reconnectTries int
	reconnectDelay time.Duration

	dial  func() (remoteConn, error)
	sleep func(time.Duration)
}

// New creates a disconnected session for the configured archive.
func New(cfg *config.Settings, rep report.Reporter) *Session {
	return &Session{
		rep:            rep,
		maxAttempts:    cfg.MaxAttempts,
		reconnectTries: cfg.ReconnectTries,
		reconnectDelay: cfg.ReconnectDelay,
		dial:           func() (remoteConn, error) { return dialArchive(cfg) },
		sleep:          time.Sleep,
	}
}

// dialArchive opens the control connection with explicit TLS, performs
// the anonymous login, and negotiates the protected data channel. The
// library selects passive transfers and issues PBSZ 0 / PROT P as part
// of the TLS login.
func dialArchive(cfg *config.Settings) (remoteConn, error) {
	tlsConfig := &tls.Config{ServerName: cfg.Host}
	c, err := ftp.Dial(cfg.Addr(),
		ftp.DialWithTimeout(cfg.ConnectTimeout),
		ftp.DialWithExplicitTLS(tlsConfig),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s failed: %v", cfg.Addr(), err)
	}

	if err := c.Login("anonymous", "anonymous"); err != nil {
		// No half-open handle survives a failed login.
		c.Quit()
		return nil, fmt.Errorf("anonymous login failed: %v", err)
	}

	return serverConn{c: c}, nil
}

// State reports the current connection state.
func (s *Session) State() State {
	return s.state
}

// Connect establishes the archive connection. On failure the session
// stays disconnected with no handle retained.
func (s *Session) Connect() error {
	conn, err := s.dial()
	if err != nil {
		s.conn = nil
		s.state = StateDisconnected
		return err
	}
	s.conn = conn
	s.state = StateConnected
	return nil
}

// Reconnect closes the current connection (swallowing close errors)
// and re-establishes it, backing off exponentially between attempts.
func (s *Session) Reconnect() error {
	var err error
	delay := s.reconnectDelay
	for attempt := 1; attempt <= s.reconnectTries; attempt++ {
		s.Close()
		err = s.Connect()
		if err == nil {
			return nil
		}
		if attempt < s.reconnectTries {
			s.rep.Warnf("reconnect attempt %d/%d failed: %v (retrying in %v)",
				attempt, s.reconnectTries, err, delay)
			s.sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("reconnect failed after %d attempts: %v", s.reconnectTries, err)
}

// Close is idempotent. A polite QUIT is sent when connected; any
// termination error is swallowed and the connection state cleared
// unconditionally.
func (s *Session) Close() {
	if s.conn != nil && s.state == StateConnected {
		if err := s.conn.Quit(); err != nil {
			s.rep.Warnf("session close: %v", err)
		}
	}
	s.conn = nil
	s.state = StateDisconnected
}

// ListHourFolders lists the 2-digit hour subdirectories under basePath
// in ascending order. Any protocol error yields an empty result; the
// archive genuinely having no data here is not fatal to the caller.
func (s *Session) ListHourFolders(basePath string) []string {
	if s.state != StateConnected {
		return nil
	}

	if err := s.conn.ChangeDir(basePath); err != nil {
		s.rep.Warnf("listing hour folders in %s: %v", basePath, err)
		s.state = StateFaulted
		return nil
	}
	names, err := s.conn.NameList("")
	if err != nil {
		s.rep.Warnf("listing hour folders in %s: %v", basePath, err)
		s.state = StateFaulted
		return nil
	}

	var hours []string
	for _, name := range names {
		if isHourToken(name) {
			hours = append(hours, name)
		}
	}
	sort.Strings(hours)
	return hours
}

// ListFiles lists the compressed observation files under
// basePath/hour, optionally filtered by station prefix, in ascending
// order. The listing is retried with reconnects; exhausted attempts
// degrade to an empty result.
func (s *Session) ListFiles(basePath, hour, stationFilter string) []string {
	var files []string
	err := s.withRetry(fmt.Sprintf("list %s/%s", basePath, hour), func() error {
		if err := s.conn.ChangeDir(basePath + "/" + hour); err != nil {
			return err
		}
		names, err := s.conn.NameList("")
		if err != nil {
			return err
		}

		files = files[:0]
		for _, name := range names {
			if !strings.HasSuffix(name, CompressedSuffix) {
				continue
			}
			if stationFilter != "" && !strings.HasPrefix(name, stationFilter) {
				continue
			}
			files = append(files, name)
		}
		return nil
	})
	if err != nil {
		s.rep.Warnf("%v", err)
		return nil
	}

	sort.Strings(files)
	return files
}

// DownloadFile streams basePath/hour/filename into a newly created
// local file. A failed attempt removes the partial local file before
// the retry; after exhausted attempts the caller must not assume the
// local file exists.
func (s *Session) DownloadFile(basePath, hour, filename, localPath string) error {
	return s.withRetry(fmt.Sprintf("download %s", filename), func() error {
		if err := s.conn.ChangeDir(basePath + "/" + hour); err != nil {
			return err
		}

		resp, err := s.conn.Retr(filename)
		if err != nil {
			return err
		}

		local, err := os.Create(localPath)
		if err != nil {
			resp.Close()
			return err
		}

		_, copyErr := io.Copy(local, resp)
		closeErr := resp.Close()
		local.Close()

		if copyErr == nil && closeErr != nil {
			copyErr = closeErr
		}
		if copyErr != nil {
			os.Remove(localPath)
			return copyErr
		}
		return nil
	})
}

// isHourToken reports whether name is a two-digit numeric directory
// name.
func isHourToken(name string) bool {
	if len(name) != 2 {
		return false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
