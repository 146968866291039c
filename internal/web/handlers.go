package web

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/liquidaciones/internal/core"
	"github.com/JonMunkholm/liquidaciones/internal/logging"
	"github.com/JonMunkholm/liquidaciones/internal/web/templates"
)

// multipartMemory is how much of a multipart form is kept in memory;
// larger parts spill to temporary files.
const multipartMemory = 32 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleHealth reports liveness and run slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"database": s.service.HasDatabase(),
		"runs":     s.service.LimiterStatus(),
	})
}

// handleDashboard renders the upload page with the initial guidance.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderDashboard(w, r, http.StatusOK, templates.Guidance(core.TableKinds))
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, status int, notice templ.Component) {
	s.renderHTML(w, r, status, templates.Dashboard(templates.DashboardData{
		Tables:      s.service.ListTables(),
		HasDatabase: s.service.HasDatabase(),
		MaxFileSize: s.cfg.Upload.MaxFileSize,
		Notice:      notice,
	}))
}

// handleListTables returns the expected input tables and their columns.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	type tableJSON struct {
		Kind        core.TableKind `json:"kind"`
		Label       string         `json:"label"`
		Description string         `json:"description"`
		Columns     []string       `json:"columns"`
	}

	var tables []tableJSON
	for _, def := range core.All() {
		tables = append(tables, tableJSON{
			Kind:        def.Info.Kind,
			Label:       def.Info.Label,
			Description: def.Info.Description,
			Columns:     def.Columns(),
		})
	}
	writeJSON(w, http.StatusOK, tables)
}

// handleReconcile runs a reconciliation from the upload form.
//
// Missing files are the normal state before the operator has chosen all
// four, so they re-render the form with guidance instead of an error.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := s.reconcileUpload(w, r)
	if err != nil {
		var missing *core.MissingTablesError
		if errors.As(err, &missing) {
			s.renderDashboard(w, r, http.StatusOK, templates.Guidance(missing.Missing))
			return
		}

		status := statusFor(err)
		msg := core.MapError(err)
		logging.FromContext(r.Context()).Warn("reconciliation failed",
			"status", status,
			"error", err.Error(),
			"code", msg.Code,
		)
		s.renderDashboard(w, r, status, templates.ErrorAlert(msg.Message, msg.Action, msg.Code))
		return
	}

	http.Redirect(w, r, "/report/"+report.ID, http.StatusSeeOther)
}

// handleAPIReconcile is the JSON variant of handleReconcile.
func (s *Server) handleAPIReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := s.reconcileUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newReportResponse(report))
}

// reconcileUpload parses the multipart form and runs the service.
// Each table is a file field named after its kind.
func (s *Server) reconcileUpload(w http.ResponseWriter, r *http.Request) (*core.Report, error) {
	maxBody := int64(len(core.TableKinds))*s.cfg.Upload.MaxFileSize + multipartMemory
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, &core.MissingTablesError{Missing: core.TableKinds}
		}
		return nil, fmt.Errorf("parse upload form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	var (
		uploads []core.Upload
		files   []multipart.File
	)
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	for _, kind := range core.TableKinds {
		file, header, err := r.FormFile(string(kind))
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		files = append(files, file)
		uploads = append(uploads, core.Upload{
			Kind:     kind,
			FileName: header.Filename,
			Reader:   file,
		})
	}

	return s.service.Reconcile(r.Context(), uploads)
}

// handleReconcileDatabase runs a reconciliation against the database source.
func (s *Server) handleReconcileDatabase(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.ReconcileDatabase(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	http.Redirect(w, r, "/report/"+report.ID, http.StatusSeeOther)
}

// handleAPIReconcileDatabase is the JSON variant of handleReconcileDatabase.
func (s *Server) handleAPIReconcileDatabase(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.ReconcileDatabase(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newReportResponse(report))
}

// handleReport renders the result page.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.Report(chi.URLParam(r, "reportID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.renderHTML(w, r, http.StatusOK, templates.ReportPage(templates.ReportData{
		Report:  report,
		Format:  s.format,
		Dialect: s.service.ExportDialect(),
	}))
}

// handleAPIReport returns a stored report as JSON.
func (s *Server) handleAPIReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.Report(chi.URLParam(r, "reportID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newReportResponse(report))
}

// handleExport downloads a report as csv, csv-es or xlsx.
// Without a format parameter the configured CSV dialect is used.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.Report(chi.URLParam(r, "reportID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	logger := logging.FromContext(logging.WithReport(r.Context(), report.ID))

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "xlsx" {
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", attachment("xlsx"))
		if err := core.ExportXLSX(w, report); err != nil {
			logger.Error("xlsx export failed", "error", err)
		}
		return
	}

	dialect := s.service.ExportDialect()
	if format != "" {
		if dialect, err = core.ParseDialect(format); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	logger.Debug("exporting report", "format", string(dialect))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment("csv"))
	if err := core.ExportCSV(w, report.Balances, dialect); err != nil {
		logger.Error("csv export failed", "error", err)
	}
}

func attachment(ext string) string {
	return fmt.Sprintf(`attachment; filename="%s.%s"`, core.ExportBaseName, ext)
}

type balanceResponse struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Credit string `json:"credit"`
	Debt   string `json:"debt"`
	Net    string `json:"net"`
	Tone   string `json:"tone"`
}

type summaryResponse struct {
	CashOut         string `json:"cashOut"`
	Compensated     string `json:"compensated"`
	OutstandingDebt string `json:"outstandingDebt"`
}

type reportResponse struct {
	ID        string            `json:"id"`
	Source    string            `json:"source"`
	CreatedAt time.Time         `json:"createdAt"`
	Summary   summaryResponse   `json:"summary"`
	Balances  []balanceResponse `json:"balances"`
	Stats     core.RunStats     `json:"stats"`
}

// newReportResponse renders amounts as fixed two-decimal strings so JSON
// clients never see float rounding.
func newReportResponse(r *core.Report) reportResponse {
	resp := reportResponse{
		ID:        r.ID,
		Source:    r.Source,
		CreatedAt: r.CreatedAt,
		Summary: summaryResponse{
			CashOut:         r.Summary.CashOut.StringFixed(2),
			Compensated:     r.Summary.Compensated.StringFixed(2),
			OutstandingDebt: r.Summary.OutstandingDebt.StringFixed(2),
		},
		Balances: make([]balanceResponse, len(r.Balances)),
		Stats:    r.Stats,
	}
	for i, b := range r.Balances {
		resp.Balances[i] = balanceResponse{
			ID:     b.TitleID,
			Title:  b.Name,
			Credit: b.Credit.StringFixed(2),
			Debt:   b.Debt.StringFixed(2),
			Net:    b.Net.StringFixed(2),
			Tone:   string(core.ToneOf(b.Net)),
		}
	}
	return resp
}
