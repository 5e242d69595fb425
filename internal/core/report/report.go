// Package report ranks aggregated repositories and prints them
package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"ghscore/internal/core/score"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// DefaultThreshold is the minimum combined activity to be listed
	DefaultThreshold = 5
	// DefaultTop caps the listing
	DefaultTop = 10
)

// Options selects which repositories are listed
type Options struct {
	Threshold uint64
	Top       int // 0 lists every repository over the threshold
}

// DefaultOptions returns threshold 5, top 10
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, Top: DefaultTop}
}

// Row is one listed repository
type Row struct {
	Rank      int    `json:"rank"`
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	PRsOpened uint64 `json:"prs_opened"`
	Pushes    uint64 `json:"pushes"`
	Commits   uint64 `json:"commits"`
	Total     uint64 `json:"total"`
}

// Summary describes the run that produced the rows
type Summary struct {
	RunID           string        `json:"run_id,omitempty"`
	Selected        int           `json:"files_selected"`
	Skipped         int           `json:"files_skipped"` // selected but never started
	Files           int           `json:"files"`         // started
	FilesFailed     int           `json:"files_failed"`
	Hours           int           `json:"hours"` // distinct archive hours read to the end
	FirstHour       string        `json:"first_hour,omitempty"`
	LastHour        string        `json:"last_hour,omitempty"`
	Lines           int64         `json:"lines"`
	Unclassified    int64         `json:"unclassified_lines"`
	BadLines        int64         `json:"bad_lines"`
	Bytes           int64         `json:"bytes"`
	CompressedBytes int64         `json:"compressed_bytes"`
	Repos           int           `json:"repos"`
	NameConflicts   uint64        `json:"name_conflicts"`
	Elapsed         time.Duration `json:"-"`
}

// FilesOK is the number of files that were read to the end
func (s Summary) FilesOK() int { return s.Files - s.FilesFailed }

// Rank lists repositories whose total meets the threshold, busiest first, ties by ascending id
func Rank(s *score.Store, opt Options) []Row {
	var rows []Row
	s.Ascend(func(r score.RepoScore) bool {
		if t := r.Total(); t >= opt.Threshold {
			rows = append(rows, Row{
				ID:        r.ID,
				Name:      r.Name,
				PRsOpened: r.PRsOpened,
				Pushes:    r.Pushes,
				Commits:   r.Commits,
				Total:     t,
			})
		}
		return true
	})
	slices.SortFunc(rows, func(a, b Row) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if opt.Top > 0 && len(rows) > opt.Top {
		rows = rows[:opt.Top]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// displayName falls back to the id for repositories seen without a name
func displayName(r Row) string {
	if r.Name != "" {
		return r.Name
	}
	return "#" + strconv.FormatInt(r.ID, 10)
}

// Render writes rows as a table followed by a one-line summary
func Render(w io.Writer, rows []Row, sum Summary) error {
	p := message.NewPrinter(language.English)

	if len(rows) == 0 {
		if _, err := fmt.Fprintln(w, "no repositories met the threshold"); err != nil {
			return err
		}
	} else {
		table := tablewriter.NewWriter(w)
		table.SetAutoFormatHeaders(false)
		table.SetAutoWrapText(false)
		table.SetBorder(false)
		table.SetHeader([]string{"#", "repository", "prs opened", "pushes", "commits"})
		table.SetColumnAlignment([]int{
			tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
			tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
		})
		for _, r := range rows {
			table.Append([]string{
				strconv.Itoa(r.Rank),
				displayName(r),
				p.Sprintf("%d", r.PRsOpened),
				p.Sprintf("%d", r.Pushes),
				p.Sprintf("%d", r.Commits),
			})
		}
		table.Render()
	}

	hours := ""
	if sum.Hours > 0 {
		hours = p.Sprintf(" | hours %d (%s to %s)", sum.Hours, sum.FirstHour, sum.LastHour)
	}
	_, err := p.Fprintf(w,
		"\nfiles %d ok, %d failed, %d skipped of %d%s | lines %d (unclassified %d, bad %d) | read %s (%s compressed) | repos %d (name conflicts %d) | elapsed %s\n",
		sum.FilesOK(), sum.FilesFailed, sum.Skipped, sum.Selected, hours,
		sum.Lines, sum.Unclassified, sum.BadLines,
		humanize.IBytes(uint64(max(sum.Bytes, 0))), humanize.IBytes(uint64(max(sum.CompressedBytes, 0))),
		sum.Repos, sum.NameConflicts, sum.Elapsed.Round(time.Millisecond),
	)
	return err
}

type jsonSummary struct {
	Summary
	FilesOK   int   `json:"files_ok"`
	ElapsedMS int64 `json:"elapsed_ms"`
}

type jsonReport struct {
	Repos   []Row       `json:"repos"`
	Summary jsonSummary `json:"summary"`
}

// RenderJSON writes rows and summary as one indented JSON document
func RenderJSON(w io.Writer, rows []Row, sum Summary) error {
	if rows == nil {
		rows = []Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		Repos: rows,
		Summary: jsonSummary{
			Summary:   sum,
			FilesOK:   sum.FilesOK(),
			ElapsedMS: sum.Elapsed.Milliseconds(),
		},
	})
}
