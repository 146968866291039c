package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/liquidaciones/internal/config"
	"github.com/JonMunkholm/liquidaciones/internal/logging"
)

// Report sources.
const (
	SourceUpload   = "upload"
	SourceDatabase = "database"
)

// ErrNoDatabase is returned by ReconcileDatabase when no database is configured.
var ErrNoDatabase = errors.New("no database configured")

// MissingTablesError reports input tables that were not provided.
// It is the normal state of the dashboard before every file is chosen,
// so callers show guidance instead of an error page.
type MissingTablesError struct {
	Missing []TableKind
}

func (e *MissingTablesError) Error() string {
	names := make([]string, len(e.Missing))
	for i, k := range e.Missing {
		names[i] = string(k)
	}
	return "missing input tables: " + strings.Join(names, ", ")
}

// Upload is one uploaded input table.
type Upload struct {
	Kind     TableKind
	FileName string
	Reader   io.Reader
}

// Service runs reconciliations and keeps their reports.
type Service struct {
	db      DBTX
	tables  TableNames
	store   *ReportStore
	limiter *RunLimiter

	maxFileSize int64
	dialect     Dialect
	mergeOpts   MergeOptions
}

// Option configures a Service.
type Option func(*Service)

// WithDatabase enables ReconcileDatabase using db.
func WithDatabase(db DBTX) Option {
	return func(s *Service) { s.db = db }
}

// WithReportStore replaces the default TTL store.
func WithReportStore(store *ReportStore) Option {
	return func(s *Service) { s.store = store }
}

// NewService creates a Service from cfg.
func NewService(cfg *config.Config, opts ...Option) (*Service, error) {
	dialect, err := ParseDialect(cfg.Report.ExportDialect)
	if err != nil {
		return nil, err
	}

	s := &Service{
		tables: TableNames{
			Shorts:        cfg.Database.ShortsTable,
			Registrations: cfg.Database.RegistrationsTable,
			Sales:         cfg.Database.SalesTable,
			Settlements:   cfg.Database.SettlementsTable,
		},
		store:       NewReportStore(cfg.Report.TTL),
		limiter:     NewRunLimiter(cfg.Report.MaxConcurrent, cfg.Report.MaxWaitTime),
		maxFileSize: cfg.Upload.MaxFileSize,
		dialect:     dialect,
		mergeOpts:   MergeOptions{UnknownTitle: cfg.Report.UnknownTitle},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ListTables returns information about all input tables.
func (s *Service) ListTables() []TableInfo {
	defs := All()
	infos := make([]TableInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info
	}
	return infos
}

// Reconcile reads the four uploaded tables and stores the resulting report.
// If any table is absent it returns a *MissingTablesError before reading anything.
func (s *Service) Reconcile(ctx context.Context, uploads []Upload) (*Report, error) {
	byKind := make(map[TableKind]Upload, len(uploads))
	for _, up := range uploads {
		if _, ok := Get(up.Kind); !ok {
			return nil, fmt.Errorf("unknown table: %s", up.Kind)
		}
		if _, dup := byKind[up.Kind]; dup {
			return nil, fmt.Errorf("duplicate upload for table %s", up.Kind)
		}
		byKind[up.Kind] = up
	}

	var missing []TableKind
	for _, def := range All() {
		if _, ok := byKind[def.Info.Kind]; !ok {
			missing = append(missing, def.Info.Kind)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingTablesError{Missing: missing}
	}

	return s.run(ctx, SourceUpload, func(ctx context.Context) (map[TableKind]RawTable, error) {
		tables := make(map[TableKind]RawTable, len(byKind))
		for _, def := range All() {
			kind := def.Info.Kind
			up := byKind[kind]
			raw, err := s.readUpload(up)
			if err != nil {
				return nil, fmt.Errorf("%s (%s): %w", kind, up.FileName, err)
			}
			tables[kind] = raw
		}
		return tables, nil
	})
}

// ReconcileDatabase reads the four tables from the configured database.
func (s *Service) ReconcileDatabase(ctx context.Context) (*Report, error) {
	if s.db == nil {
		return nil, ErrNoDatabase
	}
	return s.run(ctx, SourceDatabase, func(ctx context.Context) (map[TableKind]RawTable, error) {
		return LoadFromDatabase(ctx, s.db, s.tables)
	})
}

type loadFunc func(ctx context.Context) (map[TableKind]RawTable, error)

func (s *Service) run(ctx context.Context, source string, load loadFunc) (*Report, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	logger := logging.WithFields(ctx, "source", source)
	start := time.Now()

	tables, err := load(ctx)
	if err != nil {
		logger.Warn("reconciliation input rejected", "error", err)
		return nil, err
	}

	ds, err := DecodeDataset(tables)
	if err != nil {
		logger.Warn("reconciliation input rejected", "error", err)
		return nil, err
	}

	result := Reconcile(ds, s.mergeOpts)
	report := s.store.Put(source, result)

	logger = logging.WithFields(logging.WithReport(ctx, report.ID), "source", source)
	logStats(logger, result)
	logger.Info("reconciliation completed",
		"titles", len(result.Balances),
		"cash_out", result.Summary.CashOut.StringFixed(2),
		"outstanding_debt", result.Summary.OutstandingDebt.StringFixed(2),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

func logStats(logger *slog.Logger, result Result) {
	st := result.Stats

	kinds := make([]string, 0, len(st.Rows))
	for k := range st.Rows {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	args := make([]any, 0, 2*len(kinds))
	for _, k := range kinds {
		args = append(args, "rows_"+k, st.Rows[TableKind(k)])
	}
	logger.Debug("input tables decoded", args...)

	logger.Debug("rows filtered",
		"unpaid_registrations", st.UnpaidRegistrations,
		"unsettled_settlements", st.UnsettledSettlements,
	)

	if st.OrphanedSettlements > 0 {
		logger.Warn("settlements without a matching sale dropped", "count", st.OrphanedSettlements)
	}
	if st.UnkeyedRows > 0 {
		logger.Warn("rows without a usable title id dropped", "count", st.UnkeyedRows)
	}
	if st.DuplicateSaleIDs > 0 {
		logger.Warn("duplicate sale ids ignored", "count", st.DuplicateSaleIDs)
	}
	if st.DuplicateTitleIDs > 0 {
		logger.Warn("duplicate title ids ignored", "count", st.DuplicateTitleIDs)
	}
	if st.UnknownTitles > 0 {
		logger.Info("titles missing from shorts table", "count", st.UnknownTitles)
	}
}

// readUpload enforces the size limit and parses one file.
func (s *Service) readUpload(up Upload) (RawTable, error) {
	format, err := DetectFormat(up.FileName)
	if err != nil {
		return RawTable{}, err
	}

	r := up.Reader
	if s.maxFileSize > 0 {
		r = io.LimitReader(r, s.maxFileSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return RawTable{}, fmt.Errorf("read upload: %w", err)
	}
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return RawTable{}, fmt.Errorf("file too large (max %d bytes)", s.maxFileSize)
	}

	return ReadTable(bytes.NewReader(data), format)
}

// Report returns a stored report.
func (s *Service) Report(id string) (*Report, error) {
	return s.store.Get(id)
}

// HasDatabase reports whether ReconcileDatabase is available.
func (s *Service) HasDatabase() bool {
	return s.db != nil
}

// ExportDialect is the configured default CSV dialect.
func (s *Service) ExportDialect() Dialect {
	return s.dialect
}

// WaitForRuns blocks until in-flight reconciliations finish or ctx is done.
func (s *Service) WaitForRuns(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// LimiterStatus reports run slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}
