package s0_history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/demandcast/internal/contracts"
)

// SalesRepository reads and writes raw daily sales rows
// ⭐ SSOT: retail.daily_sales 접근은 여기서만
type SalesRepository struct {
	pool *pgxpool.Pool
	from time.Time
	to   time.Time
}

// NewSalesRepository creates a repository over the full table
func NewSalesRepository(pool *pgxpool.Pool) *SalesRepository {
	return &SalesRepository{pool: pool}
}

// WithRange returns a copy restricted to [from, to]; zero bounds are open
func (r *SalesRepository) WithRange(from, to time.Time) *SalesRepository {
	return &SalesRepository{pool: r.pool, from: from, to: to}
}

// LoadRecords implements contracts.RecordSource
func (r *SalesRepository) LoadRecords(ctx context.Context) ([]contracts.RawRecord, error) {
	query := `
		SELECT product_id, sale_date, units_sold, on_hand, price, cost, reference_price, margin
		FROM retail.daily_sales
		WHERE ($1::date IS NULL OR sale_date >= $1)
		  AND ($2::date IS NULL OR sale_date <= $2)
		ORDER BY product_id, sale_date
	`

	rows, err := r.pool.Query(ctx, query, nullableDate(r.from), nullableDate(r.to))
	if err != nil {
		return nil, fmt.Errorf("query daily sales: %w", err)
	}
	defer rows.Close()

	var records []contracts.RawRecord
	for rows.Next() {
		var rec contracts.RawRecord
		if err := rows.Scan(
			&rec.ProductID,
			&rec.Date,
			&rec.UnitsSold,
			&rec.OnHand,
			&rec.Price,
			&rec.Cost,
			&rec.ReferencePrice,
			&rec.MarginIndicator,
		); err != nil {
			return nil, fmt.Errorf("scan daily sales: %w", err)
		}
		rec.Date = contracts.DayOf(rec.Date)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveBatch upserts raw rows (CLI import)
func (r *SalesRepository) SaveBatch(ctx context.Context, records []contracts.RawRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO retail.daily_sales (
			product_id, sale_date, units_sold, on_hand, price, cost, reference_price, margin
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product_id, sale_date)
		DO UPDATE SET
			units_sold = EXCLUDED.units_sold,
			on_hand = EXCLUDED.on_hand,
			price = EXCLUDED.price,
			cost = EXCLUDED.cost,
			reference_price = EXCLUDED.reference_price,
			margin = EXCLUDED.margin,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(query,
			rec.ProductID,
			contracts.DayOf(rec.Date),
			rec.UnitsSold,
			rec.OnHand,
			rec.Price,
			rec.Cost,
			rec.ReferencePrice,
			rec.MarginIndicator,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert daily sales row %d: %w", i, err)
		}
	}
	return nil
}

// CountProducts returns the number of distinct products in range
func (r *SalesRepository) CountProducts(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(DISTINCT product_id)
		FROM retail.daily_sales
		WHERE ($1::date IS NULL OR sale_date >= $1)
		  AND ($2::date IS NULL OR sale_date <= $2)
	`

	var n int
	if err := r.pool.QueryRow(ctx, query, nullableDate(r.from), nullableDate(r.to)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	d := contracts.DayOf(t)
	return &d
}
