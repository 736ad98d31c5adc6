package metrics_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/meenmo/termfit/metrics"
)

func TestMetrics_CountAndServe(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.Recalculations.WithLabelValues("bootstrap").Inc()
	m.Recalculations.WithLabelValues("bootstrap").Inc()
	m.NonConvergedFits.WithLabelValues("svensson").Inc()

	if got := testutil.ToFloat64(m.Recalculations.WithLabelValues("bootstrap")); got != 2 {
		t.Fatalf("recalculations: got %v want 2", got)
	}
	if got := testutil.ToFloat64(m.BootstrapFailures); got != 0 {
		t.Fatalf("bootstrap failures: got %v want 0", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `termfit_fit_nonconverged_total{method="svensson"} 1`) {
		t.Fatalf("exposition missing counter:\n%s", body)
	}
}
