// Package summary totals the hours in an exported time entries sheet.
package summary

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/pkg/errors"
)

const (
	projectColumn  = "Project"
	durationColumn = "Duration"
	noProject      = "(no project)"
)

type ProjectHours struct {
	Project string
	Hours   float64
	Entries int
}

type Summary struct {
	Projects []ProjectHours
	Total    float64
	Entries  int
}

// FromRows reads the header row to find the Project and Duration columns and
// sums the durations per project. Rows whose duration cannot be read are
// skipped.
func FromRows(rows [][]string) (*Summary, error) {
	if len(rows) == 0 {
		return &Summary{}, nil
	}

	projectIdx, durationIdx := -1, -1
	for i, name := range rows[0] {
		switch strings.TrimSpace(name) {
		case projectColumn:
			projectIdx = i
		case durationColumn:
			durationIdx = i
		}
	}
	if projectIdx < 0 || durationIdx < 0 {
		return nil, errors.Errorf("sheet header must contain %q and %q columns", projectColumn, durationColumn)
	}

	byProject := make(map[string]*ProjectHours)
	s := &Summary{}
	for _, row := range rows[1:] {
		if durationIdx >= len(row) {
			continue
		}
		d, err := ParseDuration(row[durationIdx])
		if err != nil {
			continue
		}

		project := noProject
		if projectIdx < len(row) && strings.TrimSpace(row[projectIdx]) != "" {
			project = strings.TrimSpace(row[projectIdx])
		}

		p, ok := byProject[project]
		if !ok {
			p = &ProjectHours{Project: project}
			byProject[project] = p
		}
		p.Hours += d.Hours()
		p.Entries++
		s.Total += d.Hours()
		s.Entries++
	}

	for _, p := range byProject {
		s.Projects = append(s.Projects, *p)
	}
	sort.Slice(s.Projects, func(i, j int) bool {
		if s.Projects[i].Hours != s.Projects[j].Hours {
			return s.Projects[i].Hours > s.Projects[j].Hours
		}
		return s.Projects[i].Project < s.Projects[j].Project
	})

	return s, nil
}

// ParseDuration reads Toggl's H:MM:SS durations; hours may exceed 24.
func ParseDuration(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, errors.Errorf("invalid duration %q", s)
	}

	var total time.Duration
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, errors.Errorf("invalid duration %q", s)
		}
		total += time.Duration(n) * units[i]
	}
	return total, nil
}

func (s *Summary) Render(w io.Writer, title string) {
	bold := color.New(color.FgCyan, color.Bold)
	bold.Fprintf(w, "=== %s ===\n", title)

	if len(s.Projects) == 0 {
		fmt.Fprintln(w, "No time entries found.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.PerColumn = []tw.Align{
			tw.AlignLeft,  // Project
			tw.AlignRight, // Entries
			tw.AlignRight, // Hours
		}
	})
	table.Header("Project", "Entries", "Hours")
	for _, p := range s.Projects {
		table.Append(p.Project, strconv.Itoa(p.Entries), fmt.Sprintf("%.1f", p.Hours))
	}
	table.Footer("Total", strconv.Itoa(s.Entries), fmt.Sprintf("%.1f", s.Total))
	table.Render()
}
