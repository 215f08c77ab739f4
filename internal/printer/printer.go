// Package printer renders larpctl output with severity colours.
package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/iliyamo/larp-planner/internal/model"
	"github.com/iliyamo/larp-planner/internal/scheduler"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

func severityColor(s model.Severity) *color.Color {
	switch s {
	case model.SeverityCritical:
		return red
	case model.SeverityWarning:
		return yellow
	default:
		return cyan
	}
}

// Conflicts prints one row per conflict followed by a per-severity summary.
func Conflicts(w io.Writer, views []scheduler.ConflictView) error {
	if len(views) == 0 {
		_, err := green.Fprintln(w, "✓ no unresolved conflicts")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSEVERITY\tTYPE\tEVENTS\tSUBJECT\tDETAIL")
	counts := map[model.Severity]int{}
	for _, v := range views {
		c := v.Conflict
		counts[c.Severity]++
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, severityColor(c.Severity).Sprint(c.Severity), c.Type, eventList(v.Events), subject(v), c.Detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	var parts []string
	for _, s := range []model.Severity{model.SeverityCritical, model.SeverityWarning, model.SeverityInfo} {
		if n := counts[s]; n > 0 {
			parts = append(parts, severityColor(s).Sprintf("%d %s", n, strings.ToLower(s.String())))
		}
	}
	_, err := fmt.Fprintf(w, "\n%s\n", strings.Join(parts, ", "))
	return err
}

func eventList(refs []scheduler.EventRef) string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = fmt.Sprintf("#%d %s (%s)", r.ID, r.Title, r.StartTime.UTC().Format("Mon 15:04"))
	}
	return strings.Join(out, " / ")
}

func subject(v scheduler.ConflictView) string {
	switch {
	case v.ResourceName != nil:
		return "resource " + *v.ResourceName
	case v.LocationName != nil:
		return "location " + *v.LocationName
	}
	return "-"
}

// Rescan prints the outcome of a batch re-scan.
func Rescan(w io.Writer, rep scheduler.RescanReport) error {
	c := green
	if rep.Failed > 0 {
		c = yellow
	}
	_, err := c.Fprintf(w, "→ larp %d: %d events re-evaluated, %d new conflicts, %d failed\n",
		rep.LarpID, rep.Events, rep.Inserted, rep.Failed)
	return err
}

// Error prints title in red followed by an explanation and suggestions,
// and returns a plain error for cobra to exit with.
func Error(w io.Writer, title, explanation string, suggestions ...string) error {
	red.Fprintf(w, "%s\n\n", title)
	if explanation != "" {
		fmt.Fprintf(w, "%s\n", explanation)
	}
	switch len(suggestions) {
	case 0:
	case 1:
		fmt.Fprintf(w, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(w, "\nEither:\n")
		for i, s := range suggestions {
			fmt.Fprintf(w, "  %d. %s\n", i+1, s)
		}
	}
	return fmt.Errorf("%s", title)
}
