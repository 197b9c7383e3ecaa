package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Settings holds archive connection and retrieval policy configuration.
type Settings struct {
	Host           string        // Archive hostname, port 21 implied
	Port           int           // FTP control port
	ConnectTimeout time.Duration // Timeout for the initial dial
	RemoteBase     string        // Root of the high-rate data tree on the archive
	DownloadRoot   string        // Local root for downloaded files
	LogDir         string        // Directory for run log files ("" disables file logging)

	// Retry policy
	MaxAttempts    int           // Attempts per remote listing/download operation
	ReconnectTries int           // Attempts per reconnect
	ReconnectDelay time.Duration // Initial reconnect backoff, doubled per attempt
	DOYRetryWait   time.Duration // Wait before retrying a failed DOY
}

// Load reads settings from cddis.yaml (if present), environment
// variables prefixed with CDDIS_, and built-in defaults, in that
// order of precedence.
func Load() (*Settings, error) {
	v := viper.New()

	v.SetDefault("host", "gdc.cddis.eosdis.nasa.gov")
	v.SetDefault("port", 21)
	v.SetDefault("connect_timeout", "30s")
	v.SetDefault("remote_base", "/gnss/data/highrate")
	v.SetDefault("download_root", "downloads")
	v.SetDefault("log_dir", "logs")
	v.SetDefault("max_attempts", 3)
	v.SetDefault("reconnect_tries", 3)
	v.SetDefault("reconnect_delay", "5s")
	v.SetDefault("doy_retry_wait", "30s")

	v.SetConfigName("cddis")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("cddis")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; anything else is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
	}

	s := &Settings{
		Host:           v.GetString("host"),
		Port:           v.GetInt("port"),
		ConnectTimeout: v.GetDuration("connect_timeout"),
		RemoteBase:     v.GetString("remote_base"),
		DownloadRoot:   v.GetString("download_root"),
		LogDir:         v.GetString("log_dir"),
		MaxAttempts:    v.GetInt("max_attempts"),
		ReconnectTries: v.GetInt("reconnect_tries"),
		ReconnectDelay: v.GetDuration("reconnect_delay"),
		DOYRetryWait:   v.GetDuration("doy_retry_wait"),
	}

	if s.Host == "" {
		return nil, fmt.Errorf("archive host cannot be empty")
	}
	if s.MaxAttempts < 1 {
		return nil, fmt.Errorf("max_attempts must be at least 1, got %d", s.MaxAttempts)
	}

	return s, nil
}

// Addr returns the host:port dial address for the archive.
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Request describes one retrieval job after validation.
type Request struct {
	Station   string   // Station prefix filter; empty means all stations
	Year      string   // 4-digit year
	DOYs      []string // 3-digit day-of-year tokens
	Hours     []string // 2-digit hour tokens; empty means all available
	Subfolder string   // Archive data-type code, e.g. "24d"
	Extract   bool     // Decompress downloaded files
	Convert   bool     // Run CRX2RNX on decompressed files
}

// RawRequest carries the unvalidated user answers.
type RawRequest struct {
	Station   string
	Year      string
	DOY       string
	Subfolder string
	Hour      string
	Extract   bool
	Convert   bool
}

// Validate parses the DOY and hour inputs into zero-padded token
// sequences. It fails when the DOY input is empty or invalid, or when
// an hour input was provided but does not parse. No network activity
// happens before this step.
func (r RawRequest) Validate() (*Request, error) {
	doys, err := ValidateDOY(r.DOY)
	if err != nil {
		return nil, err
	}
	if len(doys) == 0 {
		return nil, fmt.Errorf("DOY is required (single value or range, e.g. 300 or 300-305)")
	}

	var hours []string
	if r.Hour != "" {
		hours, err = ValidateHour(r.Hour)
		if err != nil {
			return nil, err
		}
	}

	if len(r.Year) != 4 {
		return nil, fmt.Errorf("year must be 4 digits, got %q", r.Year)
	}

	return &Request{
		Station:   r.Station,
		Year:      r.Year,
		DOYs:      doys,
		Hours:     hours,
		Subfolder: r.Subfolder,
		Extract:   r.Extract,
		Convert:   r.Convert,
	}, nil
}

// StationFolder returns the station component of the local download
// tree, falling back to ALLSTATIONS when no filter was given.
func (r *Request) StationFolder() string {
	if r.Station == "" {
		return "ALLSTATIONS"
	}
	return r.Station
}
