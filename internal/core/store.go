package core

// store.go keeps finished reports in memory so the result page, the JSON API
// and the export endpoints can refer to a run by id. Reports expire after a
// TTL; nothing is persisted.

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrReportNotFound is returned for unknown or expired report ids.
var ErrReportNotFound = errors.New("report not found")

// ReportStore is a concurrency-safe in-memory report cache.
type ReportStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	reports map[string]*Report
}

// NewReportStore creates a store whose entries live for ttl.
// A non-positive ttl keeps reports until the process exits.
func NewReportStore(ttl time.Duration) *ReportStore {
	return &ReportStore{
		ttl:     ttl,
		now:     time.Now,
		reports: make(map[string]*Report),
	}
}

// Put stores result under a fresh id and returns the report.
func (s *ReportStore) Put(source string, result Result) *Report {
	report := &Report{
		ID:        uuid.New().String(),
		Source:    source,
		CreatedAt: s.now().UTC(),
		Result:    result,
	}

	s.mu.Lock()
	s.reports[report.ID] = report
	s.mu.Unlock()

	return report
}

// Get returns a live report.
func (s *ReportStore) Get(id string) (*Report, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrReportNotFound
	}

	s.mu.RLock()
	report, ok := s.reports[id]
	s.mu.RUnlock()

	if !ok || s.expired(report) {
		return nil, ErrReportNotFound
	}
	return report, nil
}

// Sweep drops expired reports and returns how many were removed.
func (s *ReportStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, report := range s.reports {
		if s.expired(report) {
			delete(s.reports, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored reports, expired ones included.
func (s *ReportStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

func (s *ReportStore) expired(r *Report) bool {
	return s.ttl > 0 && s.now().Sub(r.CreatedAt) > s.ttl
}
