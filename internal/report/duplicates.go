package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"bulletin_scraper/internal/domain"
)

const titleWidth = 60

// Printer renders sweep results for a terminal.
type Printer struct {
	w      io.Writer
	green  func(a ...interface{}) string
	red    func(a ...interface{}) string
	yellow func(a ...interface{}) string
	cyan   func(a ...interface{}) string
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{
		w:      w,
		green:  color.New(color.FgGreen).SprintFunc(),
		red:    color.New(color.FgRed).SprintFunc(),
		yellow: color.New(color.FgYellow).SprintFunc(),
		cyan:   color.New(color.FgCyan).SprintFunc(),
	}
}

func (p *Printer) Duplicates(r *domain.DuplicateReport) {
	fmt.Fprintln(p.w, p.cyan("Duplicate scan"))
	fmt.Fprintln(p.w, strings.Repeat("─", 50))
	fmt.Fprintf(p.w, "Scanned:    %d items\n", r.Scanned)
	fmt.Fprintf(p.w, "Duplicates: %d\n", r.Duplicates)

	if len(r.Pairs) == 0 {
		fmt.Fprintln(p.w, p.green("No duplicates found."))
		return
	}

	fmt.Fprintln(p.w)
	for _, pair := range r.Pairs {
		fmt.Fprintf(p.w, "%s #%d %s\n", p.green("keep"), pair.KeptID, truncate(pair.KeptTitle))
		fmt.Fprintf(p.w, "%s  #%d %s\n", p.red("drop"), pair.DeletedID, truncate(pair.DeletedTitle))
		fmt.Fprintf(p.w, "      %s\n\n", p.yellow(pair.Reason))
	}

	if r.DryRun {
		fmt.Fprintln(p.w, p.yellow("Dry run: nothing was deleted. Re-run with -apply to delete."))
		return
	}
	fmt.Fprintf(p.w, "%s %d items\n", p.red("Deleted"), r.Deleted)
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= titleWidth {
		return s
	}
	return string(r[:titleWidth-3]) + "..."
}
