package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/ResistanceIsUseless/StatusHawk/internal/status"
)

// maxRecent bounds the recent-verdicts list shown under the progress
// bar.
const maxRecent = 10

// View holds the render state of a running batch.
type View struct {
	Progress progress.Model
	Total    int
	Current  int

	Up   int
	Down int

	// Recent verdicts, newest last.
	Recent []*status.Status

	Version string
}

// NewView creates a View with sensible defaults.
func NewView(total int) *View {
	return &View{
		Progress: progress.New(progress.WithDefaultGradient()),
		Total:    total,
	}
}

// Record folds one verdict into the view state.
func (v *View) Record(st *status.Status) {
	v.Current++
	if st.IsUp() {
		v.Up++
	} else {
		v.Down++
	}

	v.Recent = append(v.Recent, st)
	if len(v.Recent) > maxRecent {
		v.Recent = v.Recent[len(v.Recent)-maxRecent:]
	}
}

// Done reports whether the batch is finished.
func (v *View) Done() bool {
	return v.Total > 0 && v.Current >= v.Total
}

// Render renders the full view.
func (v *View) Render() string {
	var sections []string

	title := "StatusHawk"
	if v.Version != "" {
		title += " " + v.Version
	}
	sections = append(sections, HeaderStyle.Render(title))

	sections = append(sections, v.renderProgress())
	sections = append(sections, v.renderRecent())
	sections = append(sections, InfoStyle.Render("Press q to quit"))

	return strings.Join(sections, "\n\n")
}

func (v *View) renderProgress() string {
	percent := 0.0
	if v.Total > 0 {
		percent = float64(v.Current) / float64(v.Total)
	}

	var builder strings.Builder
	builder.WriteString(v.Progress.ViewAs(percent))
	builder.WriteString("\n")
	builder.WriteString(fmt.Sprintf("Checked: %d/%d | Up: %s | Down: %s",
		v.Current, v.Total,
		SuccessStyle.Render(fmt.Sprintf("%d", v.Up)),
		ErrorStyle.Render(fmt.Sprintf("%d", v.Down))))

	return ProgressStyle.Render(builder.String())
}

func (v *View) renderRecent() string {
	var builder strings.Builder
	builder.WriteString("Recent verdicts:\n")

	if len(v.Recent) == 0 {
		builder.WriteString(InfoStyle.Render("Waiting for the first verdict..."))
		return StatusBlockStyle.Render(builder.String())
	}

	for _, st := range v.Recent {
		marker := ErrorStyle.Render("✗")
		if st.IsUp() {
			marker = SuccessStyle.Render("✓")
		}
		builder.WriteString(fmt.Sprintf("%s %s (%s)\n", marker, st.Subject, st.StatusSource))
	}

	return StatusBlockStyle.Render(strings.TrimRight(builder.String(), "\n"))
}
