package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/demandcast/internal/contracts"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetrics_RunAndQualification(t *testing.T) {
	m := New()

	m.RunFinished(nil)
	m.RunFinished(errors.New("boom"))
	m.SetQualification(contracts.QualificationSummary{
		Total:     10,
		Qualified: 7,
		ByReason:  map[string]int{contracts.ReasonUnprofitable: 3},
	})
	m.SetScores([]contracts.ModelScore{{Model: contracts.ModelLag, WMAPE: 0.25}})
	m.ObserveStage(contracts.StageFeatures, 20*time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `demandcast_runs_total{status="success"} 1`)
	assert.Contains(t, body, `demandcast_runs_total{status="failed"} 1`)
	assert.Contains(t, body, `demandcast_products{state="qualified"} 7`)
	assert.Contains(t, body, `demandcast_disqualified_products{reason="unprofitable"} 3`)
	assert.Contains(t, body, `demandcast_model_wmape{model="lag"} 0.25`)
	assert.Contains(t, body, `demandcast_stage_duration_seconds_count{stage="S2"} 1`)
}

func TestMetrics_FeatureRows(t *testing.T) {
	m := New()
	m.SetFeatureRows(100, 20, 5)

	body := scrape(t, m)
	assert.Contains(t, body, `demandcast_feature_rows{set="train"} 100`)
	assert.Contains(t, body, `demandcast_feature_rows{set="excluded"} 5`)
}
