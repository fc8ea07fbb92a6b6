package s0_history

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/demandcast/internal/contracts"
)

func TestSalesRepository_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err, "database connection failed")
	defer pool.Close()

	repo := NewSalesRepository(pool)
	records := []contracts.RawRecord{
		{ProductID: "TEST-SKU", Date: day(0), UnitsSold: f(3), OnHand: f(10), Price: f(12.5)},
		{ProductID: "TEST-SKU", Date: day(1), UnitsSold: f(0), OnHand: f(10)},
	}
	require.NoError(t, repo.SaveBatch(ctx, records))
	defer pool.Exec(ctx, `DELETE FROM retail.daily_sales WHERE product_id = 'TEST-SKU'`)

	loaded, err := repo.WithRange(day(0), day(1)).LoadRecords(ctx)
	require.NoError(t, err)

	var got []contracts.RawRecord
	for _, r := range loaded {
		if r.ProductID == "TEST-SKU" {
			got = append(got, r)
		}
	}
	require.Len(t, got, 2)
	assert.Equal(t, 3.0, *got[0].UnitsSold)
	assert.Nil(t, got[1].Price)
}
