package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Statusf writes a progress note to stderr unless --quiet was given.
// Results go to stdout so they can be piped; notes never do.
func (cc *CLIContext) Statusf(format string, args ...any) {
	if cc.Flags.Quiet {
		return
	}

	fmt.Fprintf(os.Stderr, format, args...)
}

// sizeUnits are the binary units used for quota figures.
var sizeUnits = []string{"KB", "MB", "GB", "TB"}

// formatSize renders a byte count the way usage reports quota,
// e.g. "512 B" or "1.5 GB".
func formatSize(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}

	v := float64(n) / 1024
	unit := sizeUnits[0]

	for _, u := range sizeUnits[1:] {
		if v < 1024 {
			break
		}

		v /= 1024
		unit = u
	}

	return fmt.Sprintf("%.1f %s", v, unit)
}

// historyTimeLayout is minute precision in local time; links are rarely
// created more than once a minute.
const historyTimeLayout = "2006-01-02 15:04"

// formatTime renders a history timestamp.
func formatTime(t time.Time) string {
	return t.Local().Format(historyTimeLayout)
}

// printTable writes headers and rows as aligned columns.
func printTable(w io.Writer, headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	_ = tw.Flush()
}
