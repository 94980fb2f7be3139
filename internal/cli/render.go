package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"clok/internal/app"
	"clok/internal/domain"
)

const stamp = "2006-01-02 15:04"

func jobLabel(names map[int64]string, id int64) string {
	if n, ok := names[id]; ok {
		return n
	}
	return fmt.Sprintf("job %d", id)
}

// renderEntries prints clock entries as a fixed-width table.
func renderEntries(w io.Writer, entries []domain.ClockEntry, names map[int64]string, loc *time.Location) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries.")
		return
	}
	fmt.Fprintf(w, "%-5s %-12s %-16s  %-16s  %s\n", "ID", "JOB", "IN", "OUT", "SPAN")
	for _, c := range entries {
		out, span := "-", "open"
		if c.TimeOut != nil {
			out = c.TimeOut.In(loc).Format(stamp)
			span = domain.FormatDuration(c.TimeSpan)
		}
		fmt.Fprintf(w, "%-5d %-12s %-16s  %-16s  %s\n",
			c.ID, jobLabel(names, c.JobID), c.TimeIn.In(loc).Format(stamp), out, span)
	}
}

// renderStatus prints the current totals and the open session, if any.
func renderStatus(w io.Writer, job string, s *app.Summary, loc *time.Location) {
	if job == "" {
		fmt.Fprintln(w, "No active job. Create one with \"clok job add <name> --use\".")
		return
	}
	fmt.Fprintf(w, "Job:    %s\n", job)
	if s.Open != nil {
		fmt.Fprintf(w, "Open:   since %s (%s)\n", s.Open.TimeIn.In(loc).Format(stamp), domain.FormatDuration(s.OpenElapsed))
	} else {
		fmt.Fprintln(w, "Open:   no")
	}
	fmt.Fprintf(w, "Today:  %s\n", domain.FormatDuration(s.Today))
	fmt.Fprintf(w, "Week:   %s\n", domain.FormatDuration(s.Week))
	fmt.Fprintf(w, "Month:  %s\n", domain.FormatDuration(s.Month))
}

func renderJobs(w io.Writer, jobs []domain.Job, active *int64) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs.")
		return
	}
	for _, j := range jobs {
		mark := " "
		if active != nil && *active == j.ID {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %s\n", mark, j.Name)
	}
}

func renderTotal(w io.Writer, label string, seconds int64) {
	fmt.Fprintf(w, "%s: %s (%.2fh)\n", label, domain.FormatDuration(seconds), domain.Hours(seconds))
}

// renderDaily prints one bar per day, one # per half hour.
func renderDaily(w io.Writer, points []app.DayTotal) {
	for _, p := range points {
		bar := strings.Repeat("#", int(p.Seconds/1800))
		line := fmt.Sprintf("%s  %-7s %s", p.Day, domain.FormatDuration(p.Seconds), bar)
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

func renderJournals(w io.Writer, journals []domain.Journal, loc *time.Location) {
	for _, j := range journals {
		fmt.Fprintf(w, "%s  %s\n", j.Time.In(loc).Format(stamp), j.Entry)
	}
}
