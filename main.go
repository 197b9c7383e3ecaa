package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"cddis/config"
	"cddis/extract"
	"cddis/report"
	"cddis/scheduler"
	"cddis/terminal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	rep := report.NewConsole(cfg.LogDir)

	color.New(color.FgGreen, color.Bold).Println("CDDIS High-Rate GNSS Downloader")
	fmt.Printf("Archive: %s\n\n", cfg.Addr())

	if !terminal.IsInteractive() {
		rep.Errorf("stdin is not a terminal; run interactively")
		os.Exit(1)
	}

	converterPresent := extract.ConverterAvailable()
	raw := terminal.CollectRequest(converterPresent)
	if raw.Extract && !converterPresent {
		rep.Warnf("CRX2RNX executable not found; RINEX conversion is disabled")
	}

	req, err := raw.Validate()
	if err != nil {
		rep.Errorf("%v", err)
		os.Exit(1)
	}

	sched := scheduler.New(cfg, rep)

	// Graceful shutdown: close the in-flight session before exiting.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		rep.Warnf("received %v, closing archive session", sig)
		sched.CloseActive()
		os.Exit(1)
	}()

	stats := sched.Run(req)

	fmt.Println()
	if err := terminal.RenderSummary(os.Stdout, stats); err != nil {
		rep.Warnf("rendering summary: %v", err)
	}
	rep.Successf("All operations completed successfully.")
}
