package telemetry

import (
	"fmt"
	"io"
	"time"

	"github.com/robinvdvleuten/ratebook/output"
)

// slowThreshold marks operations highlighted in styled reports.
const slowThreshold = 100 * time.Millisecond

// formatTimingTree writes a timing tree:
//
//	check prices.bean: 125ms
//	├─ load prices.bean: 85ms
//	│  └─ parse prices.bean: 45ms
//	└─ converter.build: 40ms
func formatTimingTree(w io.Writer, root *timerNode, styles *output.Styles) {
	duration := formatDuration(root.end.Sub(root.start))
	if styles != nil {
		_, _ = fmt.Fprintf(w, "%s: %s\n", styles.Keyword(root.name), duration)
	} else {
		_, _ = fmt.Fprintf(w, "%s: %s\n", root.name, duration)
	}

	for i, child := range root.children {
		formatNode(w, child, "", i == len(root.children)-1, styles)
	}
}

func formatNode(w io.Writer, node *timerNode, prefix string, isLast bool, styles *output.Styles) {
	elapsed := node.end.Sub(node.start)

	branch, extension := "├─ ", "│  "
	if isLast {
		branch, extension = "└─ ", "   "
	}

	if styles != nil {
		timing := styles.Timing(formatDuration(elapsed), elapsed >= slowThreshold)
		_, _ = fmt.Fprintf(w, "%s%s: %s\n", styles.Dim(prefix+branch), node.name, timing)
	} else {
		_, _ = fmt.Fprintf(w, "%s%s%s: %s\n", prefix, branch, node.name, formatDuration(elapsed))
	}

	for i, child := range node.children {
		formatNode(w, child, prefix+extension, i == len(node.children)-1, styles)
	}
}

// formatDuration shows milliseconds below one second, seconds above.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.0fms", float64(d)/float64(time.Millisecond))
	}
	return fmt.Sprintf("%.2fs", float64(d)/float64(time.Second))
}
