package store

import (
	"context"
	"sort"
	"sync"

	"github.com/wonny/demandcast/internal/contracts"
)

// Memory is an in-process ResultStore and ReportReader.
// Used when no database is configured.
type Memory struct {
	mu             sync.RWMutex
	reports        map[string]*contracts.EvaluationReport
	order          []string // run ids, oldest first
	qualifications map[string][]contracts.QualificationResult
}

var (
	_ contracts.ResultStore  = (*Memory)(nil)
	_ contracts.ReportReader = (*Memory)(nil)
)

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		reports:        make(map[string]*contracts.EvaluationReport),
		qualifications: make(map[string][]contracts.QualificationResult),
	}
}

// SaveRun implements contracts.ResultStore
func (m *Memory) SaveRun(ctx context.Context, report *contracts.EvaluationReport, results []contracts.QualificationResult) error {
	sorted := sortedByProduct(results)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.qualifications[report.RunID] = sorted
	m.reports[report.RunID] = report
	m.touch(report.RunID)
	return nil
}

// SaveQualifications stores decisions for a run without a report
func (m *Memory) SaveQualifications(ctx context.Context, runID string, results []contracts.QualificationResult) error {
	sorted := sortedByProduct(results)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.qualifications[runID] = sorted
	m.touch(runID)
	return nil
}

// SaveReport stores a report without decisions
func (m *Memory) SaveReport(ctx context.Context, report *contracts.EvaluationReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[report.RunID] = report
	m.touch(report.RunID)
	return nil
}

func sortedByProduct(results []contracts.QualificationResult) []contracts.QualificationResult {
	sorted := append([]contracts.QualificationResult(nil), results...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })
	return sorted
}

// touch moves runID to the newest position
func (m *Memory) touch(runID string) {
	for i, id := range m.order {
		if id == runID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.order = append(m.order, runID)
}

// LatestReport implements contracts.ReportReader
func (m *Memory) LatestReport(ctx context.Context) (*contracts.EvaluationReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.order) - 1; i >= 0; i-- {
		if r, ok := m.reports[m.order[i]]; ok {
			return r, nil
		}
	}
	return nil, ErrNotFound
}

// ReportByRunID implements contracts.ReportReader
func (m *Memory) ReportByRunID(ctx context.Context, runID string) (*contracts.EvaluationReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.reports[runID]; ok {
		return r, nil
	}
	return nil, ErrNotFound
}

// LatestQualification implements contracts.ReportReader
func (m *Memory) LatestQualification(ctx context.Context, productID string) (*contracts.QualificationResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.order) - 1; i >= 0; i-- {
		for _, q := range m.qualifications[m.order[i]] {
			if q.ProductID == productID {
				q := q
				return &q, nil
			}
		}
	}
	return nil, ErrNotFound
}

// ListQualifications implements contracts.ReportReader
func (m *Memory) ListQualifications(ctx context.Context, runID string, onlyQualified bool) ([]contracts.QualificationResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results, ok := m.qualifications[runID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]contracts.QualificationResult, 0, len(results))
	for _, q := range results {
		if onlyQualified && !q.ShouldForecast {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}
