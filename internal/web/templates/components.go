// Package templates holds the HTML components of the web UI.
//
// Components are written in .templ files; run `templ generate` after
// editing them.
package templates

import (
	"fmt"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/liquidaciones/internal/core"
)

// DashboardData drives the upload page.
type DashboardData struct {
	Tables      []core.TableInfo
	HasDatabase bool
	MaxFileSize int64
	Notice      templ.Component // guidance or error shown above the form
}

// ReportData drives the result page.
type ReportData struct {
	Report  *core.Report
	Format  Formatter
	Dialect core.Dialect
}

func maxSizeLabel(size int64) string {
	return fmt.Sprintf("%d MB", size/(1024*1024))
}

// partial reports whether some, but not all, tables are missing.
func partial(missing []core.TableKind) bool {
	return len(missing) > 0 && len(missing) < len(core.TableKinds)
}

func missingNames(missing []core.TableKind) string {
	names := make([]string, len(missing))
	for i, k := range missing {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func exportURL(reportID, format string) templ.SafeURL {
	return templ.URL("/api/report/" + reportID + "/export?format=" + format)
}

func orphanNotice(data ReportData) string {
	return fmt.Sprintf("%s settlement(s) reference a sale that does not exist and were left out.",
		data.Format.Count(data.Report.Stats.OrphanedSettlements))
}

func reportFooter(data ReportData) string {
	r := data.Report
	return fmt.Sprintf("%s titles. Generated %s from %s.",
		data.Format.Count(len(r.Balances)), r.CreatedAt.Format("2006-01-02 15:04 MST"), r.Source)
}
