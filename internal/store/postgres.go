package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/pkg/database"
)

// ErrNotFound is returned when a run or product has no persisted result
var ErrNotFound = errors.New("not found")

// Repository persists run results in the forecast schema
// ⭐ SSOT: forecast.* 테이블 접근은 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new result repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var (
	_ contracts.ResultStore  = (*Repository)(nil)
	_ contracts.ReportReader = (*Repository)(nil)
)

// SaveRun stores decisions, report and scores in one transaction
func (r *Repository) SaveRun(ctx context.Context, report *contracts.EvaluationReport, results []contracts.QualificationResult) error {
	return database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := saveQualifications(ctx, tx, report.RunID, results); err != nil {
			return err
		}
		return saveReport(ctx, tx, report)
	})
}

// SaveQualifications upserts one row per product for the run
func (r *Repository) SaveQualifications(ctx context.Context, runID string, results []contracts.QualificationResult) error {
	return database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		return saveQualifications(ctx, tx, runID, results)
	})
}

// SaveReport stores the report and its per-model scores in one transaction
func (r *Repository) SaveReport(ctx context.Context, report *contracts.EvaluationReport) error {
	return database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		return saveReport(ctx, tx, report)
	})
}

func saveQualifications(ctx context.Context, tx pgx.Tx, runID string, results []contracts.QualificationResult) error {
	if len(results) == 0 {
		return nil
	}

	query := `
		INSERT INTO forecast.qualifications (
			run_id, product_id, as_of, age_days, is_new, should_forecast, reasons, outcomes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id, product_id)
		DO UPDATE SET
			as_of = EXCLUDED.as_of,
			age_days = EXCLUDED.age_days,
			is_new = EXCLUDED.is_new,
			should_forecast = EXCLUDED.should_forecast,
			reasons = EXCLUDED.reasons,
			outcomes = EXCLUDED.outcomes
	`

	batch := &pgx.Batch{}
	for _, q := range results {
		outcomes, err := json.Marshal(q.Outcomes)
		if err != nil {
			return fmt.Errorf("marshal outcomes for %s: %w", q.ProductID, err)
		}
		batch.Queue(query,
			runID,
			q.ProductID,
			nullableTime(q.AsOf),
			q.AgeDays,
			q.IsNew,
			q.ShouldForecast,
			q.Reasons,
			outcomes,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < len(results); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("save qualification %s: %w", results[i].ProductID, err)
		}
	}
	return br.Close()
}

func saveReport(ctx context.Context, tx pgx.Tx, report *contracts.EvaluationReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO forecast.runs (
			run_id, config_hash, seed, generated_at, cutoff, train_rows, test_rows, report
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id) DO UPDATE SET report = EXCLUDED.report
	`,
		report.RunID,
		report.ConfigHash,
		report.Seed,
		report.GeneratedAt,
		nullableTime(report.Cutoff),
		report.TrainRows,
		report.TestRows,
		data,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, s := range report.Scores {
		batch.Queue(`
			INSERT INTO forecast.model_scores (run_id, model, wmape, defined, mae, rmse, bias, rows, rank)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (run_id, model) DO UPDATE SET
				wmape = EXCLUDED.wmape, defined = EXCLUDED.defined,
				mae = EXCLUDED.mae, rmse = EXCLUDED.rmse, bias = EXCLUDED.bias,
				rows = EXCLUDED.rows, rank = EXCLUDED.rank
		`,
			report.RunID,
			string(s.Model),
			nullableMetric(s.WMAPE),
			s.Defined,
			nullableMetric(s.MAE),
			nullableMetric(s.RMSE),
			nullableMetric(s.Bias),
			s.Rows,
			s.Rank,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert model scores: %w", err)
	}
	return nil
}

// LatestReport returns the most recently generated report
func (r *Repository) LatestReport(ctx context.Context) (*contracts.EvaluationReport, error) {
	return r.scanReport(ctx, `SELECT report FROM forecast.runs ORDER BY generated_at DESC LIMIT 1`)
}

// ReportByRunID returns one run's report
func (r *Repository) ReportByRunID(ctx context.Context, runID string) (*contracts.EvaluationReport, error) {
	return r.scanReport(ctx, `SELECT report FROM forecast.runs WHERE run_id = $1`, runID)
}

func (r *Repository) scanReport(ctx context.Context, query string, args ...interface{}) (*contracts.EvaluationReport, error) {
	var data []byte
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query report: %w", err)
	}

	var report contracts.EvaluationReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &report, nil
}

// LatestQualification returns the newest decision for a product
func (r *Repository) LatestQualification(ctx context.Context, productID string) (*contracts.QualificationResult, error) {
	rows, err := r.pool.Query(ctx, qualificationSelect+`
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("query qualification: %w", err)
	}

	results, err := scanQualifications(rows)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	return &results[0], nil
}

// ListQualifications returns a run's decisions ordered by product id
func (r *Repository) ListQualifications(ctx context.Context, runID string, onlyQualified bool) ([]contracts.QualificationResult, error) {
	rows, err := r.pool.Query(ctx, qualificationSelect+`
		WHERE run_id = $1
		  AND (NOT $2::boolean OR should_forecast)
		ORDER BY product_id
	`, runID, onlyQualified)
	if err != nil {
		return nil, fmt.Errorf("query qualifications: %w", err)
	}
	results, err := scanQualifications(rows)
	if err != nil || len(results) > 0 {
		return results, err
	}

	// 빈 결과: 필터 때문인지 run이 없는지 구분
	var exists bool
	if err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM forecast.qualifications WHERE run_id = $1)
	`, runID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check run: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	return results, nil
}

const qualificationSelect = `
	SELECT product_id, as_of, age_days, is_new, should_forecast, reasons, outcomes
	FROM forecast.qualifications
`

func scanQualifications(rows pgx.Rows) ([]contracts.QualificationResult, error) {
	defer rows.Close()

	results := []contracts.QualificationResult{}
	for rows.Next() {
		var (
			q        contracts.QualificationResult
			asOf     *time.Time
			outcomes []byte
		)
		if err := rows.Scan(
			&q.ProductID,
			&asOf,
			&q.AgeDays,
			&q.IsNew,
			&q.ShouldForecast,
			&q.Reasons,
			&outcomes,
		); err != nil {
			return nil, fmt.Errorf("scan qualification: %w", err)
		}
		if asOf != nil {
			q.AsOf = *asOf
		}
		if err := json.Unmarshal(outcomes, &q.Outcomes); err != nil {
			return nil, fmt.Errorf("unmarshal outcomes: %w", err)
		}
		results = append(results, q)
	}
	return results, rows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullableMetric(m contracts.Metric) *float64 {
	if !m.IsDefined() {
		return nil
	}
	f := m.Float()
	return &f
}
