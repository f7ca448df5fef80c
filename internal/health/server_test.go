package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/oddsedge/internal/metrics"
)

type fakeScanner struct {
	state ScanState
}

func (f *fakeScanner) ScanState() ScanState { return f.state }

func (f *fakeScanner) Status() interface{} {
	return map[string]interface{}{"halted": false, "balance": "1000.00"}
}

var testNow = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

func newTestServer(scanner *fakeScanner) *Server {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	s := NewServer(Config{
		ServiceName:    "oddsedge",
		Version:        "test",
		Port:           "0",
		MaxSnapshotAge: 15 * time.Minute,
		Logger:         log,
		Scanner:        scanner,
	})
	s.now = func() time.Time { return testNow }
	return s
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestServer(&fakeScanner{}).Handler()

	rec := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "oddsedge", resp.Service)
	assert.Equal(t, "test", resp.Version)
}

func TestReady(t *testing.T) {
	fresh := testNow.Add(-5 * time.Minute)

	tests := []struct {
		name       string
		notReady   bool
		state      ScanState
		wantCode   int
		wantReason string
		wantAge    string
	}{
		{
			name:       "service not marked ready",
			notReady:   true,
			state:      ScanState{LoadedAt: fresh},
			wantCode:   http.StatusServiceUnavailable,
			wantReason: "service not ready",
		},
		{
			name:       "no snapshot yet",
			wantCode:   http.StatusServiceUnavailable,
			wantReason: "no snapshot loaded",
		},
		{
			name:     "fresh snapshot",
			state:    ScanState{LoadedAt: fresh, LastScan: fresh, Signals: 4, Failures: 1},
			wantCode: http.StatusOK,
			wantAge:  "5m0s",
		},
		{
			name:     "halted bankroll is still ready",
			state:    ScanState{LoadedAt: fresh, LastScan: fresh, Halted: true},
			wantCode: http.StatusOK,
			wantAge:  "5m0s",
		},
		{
			name:       "stale snapshot",
			state:      ScanState{LoadedAt: testNow.Add(-time.Hour), LastScan: testNow.Add(-time.Hour)},
			wantCode:   http.StatusServiceUnavailable,
			wantReason: "snapshot older than 15m0s",
			wantAge:    "1h0m0s",
		},
		{
			name:       "last scan failed",
			state:      ScanState{LoadedAt: fresh, LastScan: testNow, Err: errors.New("feed unreachable")},
			wantCode:   http.StatusServiceUnavailable,
			wantReason: "last scan failed: feed unreachable",
			wantAge:    "5m0s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeScanner{state: tt.state})
			s.SetReady(!tt.notReady)

			rec := get(t, s.Handler(), "/ready")
			assert.Equal(t, tt.wantCode, rec.Code)

			var resp ReadyResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantReason, resp.Reason)
			assert.Equal(t, tt.wantAge, resp.SnapshotAge)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, "ok", resp.Status)
			} else {
				assert.Equal(t, "not_ready", resp.Status)
			}
			if !tt.notReady {
				assert.Equal(t, tt.state.Signals, resp.Signals)
				assert.Equal(t, tt.state.Failures, resp.ScanFailures)
				assert.Equal(t, tt.state.Halted, resp.Halted)
			}
		})
	}
}

func TestMetricsAndBankroll(t *testing.T) {
	metrics.InitRegistry()
	metrics.RecordHalt("daily_loss")
	h := newTestServer(&fakeScanner{}).Handler()

	rec := get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "oddsedge_halts_total")

	rec = get(t, h, "/bankroll")
	assert.Equal(t, http.StatusOK, rec.Code)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "1000.00", status["balance"])
}
