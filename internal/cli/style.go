package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rocksun/siteship/internal/config"
	"github.com/rocksun/siteship/internal/deploy"
	"github.com/rocksun/siteship/internal/journal"
	"github.com/rocksun/siteship/internal/site"
	"github.com/rocksun/siteship/internal/storage"
)

var (
	// Colors
	colorPrimary = lipgloss.Color("#7C3AED")
	colorGreen   = lipgloss.Color("#10B981")
	colorRed     = lipgloss.Color("#EF4444")
	colorYellow  = lipgloss.Color("#F59E0B")
	colorDim     = lipgloss.Color("#6B7280")

	// Text styles
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	dimStyle   = lipgloss.NewStyle().Foreground(colorDim)
	okStyle    = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(colorYellow)

	// Key-value
	keyStyle = lipgloss.NewStyle().Foreground(colorDim).Width(14)

	// Boxes
	successBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorGreen).
		Padding(0, 1)

	failureBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorRed).
		Padding(0, 1)

	partialBox = failureBox.BorderForeground(colorYellow)
)

// Returns a key-value line.
func kv(key, value string) string {
	return keyStyle.Render(key) + value
}

// Renders a run report.
func renderReport(r deploy.RunReport) string {
	var lines []string

	switch {
	case r.Status == deploy.Success:
		lines = append(lines, okStyle.Render("● "+string(r.Operation)+" succeeded"))
	case r.PartialSuccess():
		lines = append(lines, warnStyle.Bold(true).Render("● infrastructure converged, publish failed"))
	default:
		lines = append(lines, failStyle.Render(fmt.Sprintf("● %s failed at %s", r.Operation, r.FailedStage)))
	}
	lines = append(lines, "")

	lines = append(lines, kv("run", r.ID))
	if r.Project != "" {
		lines = append(lines, kv("stack", r.Project+"/"+r.Stack+dimStyle.Render(" ("+r.Engine+")")))
	}
	if r.ResourceID != "" {
		lines = append(lines, kv("bucket", r.ResourceID))
		lines = append(lines, kv("endpoint", r.Endpoint))
	}
	if r.ArtifactDigest != "" {
		lines = append(lines, kv("artifact", dimStyle.Render(r.ArtifactDigest.String())))
	}
	for _, s := range r.Steps {
		lines = append(lines, kv("step", fmt.Sprintf("%s %s", s.Name, dimStyle.Render(s.Duration.Round(time.Millisecond).String()))))
	}
	lines = append(lines, kv("duration", r.Duration().Round(time.Millisecond).String()))

	if r.ErrorDetail != "" {
		lines = append(lines, "", failStyle.UnsetBold().Render(r.ErrorDetail))
	}
	if r.PartialSuccess() {
		lines = append(lines, "", dimStyle.Render("run `siteship publish` to retry publishing without converging"))
	}

	box := failureBox
	switch {
	case r.Status == deploy.Success:
		box = successBox
	case r.PartialSuccess():
		box = partialBox
	}
	return box.Render(strings.Join(lines, "\n"))
}

// Renders recent runs of a stack as a table.
func renderHistory(id config.StackIdentity, entries []journal.Entry) string {
	title := titleStyle.Render("Runs of " + id.String())
	if len(entries) == 0 {
		return title + "\n" + dimStyle.Render("no runs recorded")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("STARTED", "OPERATION", "STATUS", "BUCKET", "DURATION").
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingRight(1).PaddingLeft(1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(colorPrimary)
			}
			return s
		})

	for _, e := range entries {
		t.Row(
			e.StartedAt.Local().Format(time.DateTime),
			e.Operation,
			statusCell(e),
			e.ResourceID,
			e.Duration().Round(time.Second).String(),
		)
	}

	return title + "\n" + t.String()
}

func statusCell(e journal.Entry) string {
	if e.Status == string(deploy.Success) {
		return okStyle.Render(e.Status)
	}
	return failStyle.Render(e.Status + " (" + e.FailedStage + ")")
}

// Renders a bucket summary.
func renderSummary(bucket, endpoint string, s storage.Summary) string {
	lines := []string{
		titleStyle.Render("Bucket " + bucket),
		kv("s3 endpoint", endpoint),
		kv("objects", fmt.Sprintf("%d", s.Objects)),
		kv("size", humanBytes(s.Bytes)),
	}
	if !s.LastModified.IsZero() {
		lines = append(lines, kv("modified", s.LastModified.Local().Format(time.DateTime)))
	}
	return strings.Join(lines, "\n")
}

func renderMissingBucket(bucket string) string {
	return failStyle.Render("● bucket " + bucket + " does not exist")
}

// Renders manifest findings.
func renderFindings(path string, r *site.ValidationResult) string {
	var lines []string
	if r.Valid {
		lines = append(lines, okStyle.Render("● "+path+" is valid"))
	} else {
		lines = append(lines, failStyle.Render("● "+path+" has errors"))
	}

	for _, f := range r.Findings {
		style := warnStyle
		if f.Severity == site.SeverityError {
			style = failStyle
		}
		lines = append(lines, "  "+style.Render(f.Severity)+" "+dimStyle.Render(f.Field)+" "+f.Message)
	}
	return strings.Join(lines, "\n")
}

// Formats a byte count with binary units.
func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
