package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aithinkitive/ecare-e2e/internal/events"
)

func TestCollectorStageEvents(t *testing.T) {
	c := NewCollector()

	c.Emit(events.Event{Kind: events.KindStage, Stage: "open", Outcome: events.Started})
	c.Emit(events.Event{Kind: events.KindStage, Stage: "open", Outcome: events.Passed, Duration: 2 * time.Second})
	c.Emit(events.Event{Kind: events.KindStage, Stage: "authenticate", Outcome: events.Failed, Duration: time.Second})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.stagesTotal.WithLabelValues("open", "passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.stagesTotal.WithLabelValues("authenticate", "failed")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.stageDuration))
}

func TestCollectorRunEvents(t *testing.T) {
	c := NewCollector()
	at := time.Unix(1700000000, 0)

	c.Emit(events.Event{Kind: events.KindRun, Outcome: events.Failed, Time: at})
	assert.Equal(t, 0.0, testutil.ToFloat64(c.lastRunSuccess))

	c.Emit(events.Event{Kind: events.KindRun, Outcome: events.Passed, Time: at})
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsTotal.WithLabelValues("passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(c.lastRunSuccess))
}

func TestCollectorIgnoresCheckpointEvents(t *testing.T) {
	c := NewCollector()
	c.Emit(events.Event{Kind: events.KindCheckpoint, Stage: "create_provider", Checkpoint: "provider_created", Outcome: events.Passed})
	assert.Equal(t, 0, testutil.CollectAndCount(c.stagesTotal))
}

func TestHandler(t *testing.T) {
	c := NewCollector()
	c.Emit(events.Event{Kind: events.KindRun, Outcome: events.Passed, Time: time.Now()})

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `ecare_e2e_runs_total{outcome="passed"} 1`)
}

func TestPush(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
	)
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		method, path = r.Method, r.URL.Path
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer gw.Close()

	c := NewCollector()
	c.Emit(events.Event{Kind: events.KindRun, Outcome: events.Passed, Time: time.Now()})
	require.NoError(t, c.Push(context.Background(), gw.URL, "ecare_e2e"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.True(t, strings.HasSuffix(path, "/job/ecare_e2e"), path)
}

func TestPushDisabled(t *testing.T) {
	assert.NoError(t, NewCollector().Push(context.Background(), "", "job"))
}

func TestPushError(t *testing.T) {
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer gw.Close()

	err := NewCollector().Push(context.Background(), gw.URL, "job")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push metrics")
}
