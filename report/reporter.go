// Package report provides the event reporting interface injected into
// the session, scheduler, and materializer so their behavior is
// observable without capturing process output.
package report

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
)

// Reporter receives progress and error events from the retrieval
// pipeline.
type Reporter interface {
	Infof(format string, args ...interface{})
	Successf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Console reports to stdout with colored severity and optionally tees
// every line into a run log file.
type Console struct {
	info    *color.Color
	success *color.Color
	warn    *color.Color
	errc    *color.Color
	file    *log.Logger
}

// NewConsole creates a console reporter. When logDir is non-empty a
// dated log file is created under it and every reported line is
// appended there as well; failure to open the file degrades to
// console-only reporting.
func NewConsole(logDir string) *Console {
	c := &Console{
		info:    color.New(color.FgBlue),
		success: color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		errc:    color.New(color.FgRed),
	}

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			fmt.Printf("Warning: failed to create log directory %s: %v\n", logDir, err)
			return c
		}
		name := fmt.Sprintf("cddis-%s.log", time.Now().Format("2006-01-02"))
		path := filepath.Join(logDir, name)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Printf("Warning: failed to open log file %s: %v\n", path, err)
			return c
		}
		c.file = log.New(f, "", log.LstdFlags)
	}

	return c
}

func (c *Console) emit(col *color.Color, format string, args ...interface{}) {
	col.Printf(format+"\n", args...)
	if c.file != nil {
		c.file.Printf(format, args...)
	}
}

func (c *Console) Infof(format string, args ...interface{}) {
	c.emit(c.info, format, args...)
}

func (c *Console) Successf(format string, args ...interface{}) {
	c.emit(c.success, format, args...)
}

func (c *Console) Warnf(format string, args ...interface{}) {
	c.emit(c.warn, "Warning: "+format, args...)
}

func (c *Console) Errorf(format string, args ...interface{}) {
	c.emit(c.errc, "Error: "+format, args...)
}

// Discard is a Reporter that drops everything.
type Discard struct{}

func (Discard) Infof(string, ...interface{})    {}
func (Discard) Successf(string, ...interface{}) {}
func (Discard) Warnf(string, ...interface{})    {}
func (Discard) Errorf(string, ...interface{})   {}
