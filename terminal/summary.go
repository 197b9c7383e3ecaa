package terminal

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"cddis/scheduler"
)

// RenderSummary prints the per-DOY outcome table after a run.
func RenderSummary(w io.Writer, stats []scheduler.DOYStats) error {
	if len(stats) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("DOY", "Downloaded", "Skipped", "Size", "Retries")
	table.Options(
		tablewriter.WithRendition(tw.Rendition{Borders: tw.Border{Left: tw.Pending, Right: tw.Pending, Top: tw.Pending, Bottom: tw.Pending}}),
		tablewriter.WithPadding(tw.Padding{Left: "  ", Right: "  "}),
	)

	var files, skipped, retries int
	var bytes int64
	for _, st := range stats {
		table.Append([]string{
			st.DOY,
			strconv.Itoa(st.Downloaded),
			strconv.Itoa(st.Skipped),
			formatSize(st.Bytes),
			strconv.Itoa(st.Retries),
		})
		files += st.Downloaded
		skipped += st.Skipped
		retries += st.Retries
		bytes += st.Bytes
	}
	table.Append([]string{
		"total",
		strconv.Itoa(files),
		strconv.Itoa(skipped),
		formatSize(bytes),
		strconv.Itoa(retries),
	})

	return table.Render()
}

// formatSize formats a byte count in human-readable form.
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
