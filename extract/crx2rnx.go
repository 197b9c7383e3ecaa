package extract

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// converterName returns the platform-selected executable name.
func converterName() string {
	if runtime.GOOS == "windows" {
		return "CRX2RNX.exe"
	}
	return "CRX2RNX"
}

// executableDir is overridable in tests.
var executableDir = func() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// ConverterPath locates the CRX2RNX executable installed beside this
// program, marking it runnable on unix platforms before first use.
func ConverterPath() (string, error) {
	dir, err := executableDir()
	if err != nil {
		return "", fmt.Errorf("locating CRX2RNX: %v", err)
	}

	path := filepath.Join(dir, converterName())
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("CRX2RNX not found at %s", path)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(path, 0755); err != nil {
			return "", fmt.Errorf("marking CRX2RNX executable: %v", err)
		}
	}

	return path, nil
}

// ConverterAvailable reports whether the converter can be used; the
// entry point disables conversion with a warning when it cannot.
func ConverterAvailable() bool {
	_, err := ConverterPath()
	return err == nil
}

// runConverter invokes the converter with the decompressed file as its
// sole argument. The converter writes its .rnx output beside the input
// and exits zero on success; non-zero exit is reported with the
// captured diagnostic output.
func runConverter(converter, crxPath string) error {
	cmd := exec.Command(converter, crxPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		diag := strings.TrimSpace(stderr.String())
		if diag != "" {
			return fmt.Errorf("%v: %s", err, diag)
		}
		return err
	}
	return nil
}
