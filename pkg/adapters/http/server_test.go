package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/gantry"
	gantryhttp "github.com/aretw0/gantry/pkg/adapters/http"
	"github.com/aretw0/gantry/pkg/adapters/memory"
	"github.com/aretw0/gantry/pkg/domain"
	"github.com/aretw0/gantry/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*httptest.Server, *gantry.Session) {
	t.Helper()
	p := domain.Pipeline{ID: "feature", Name: "Feature", Version: "1.0", Slots: []domain.Slot{
		{ID: "A", Type: "worker", Name: "First"},
		{ID: "B", Type: "worker", Name: "Second", DependsOn: []string{"A"},
			PreConditions: []domain.Gate{{Check: "brief", Type: domain.GateFileExists, Target: "brief.md"}}},
	}}

	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	eng, err := gantry.New(t.TempDir(),
		gantry.WithLoader(memory.NewLoader(p)),
		gantry.WithRegistry(memory.NewRegistry(domain.SlotType{ID: "worker", Name: "Worker"})),
		gantry.WithObservers(metrics),
		gantry.WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)
	sess, err := eng.Prepare(context.Background(), "feature", nil)
	require.NoError(t, err)

	srv := httptest.NewServer(gantryhttp.NewHandler(sess, gantryhttp.WithMetrics(reg)))
	t.Cleanup(srv.Close)
	return srv, sess
}

func post(t *testing.T, srv *httptest.Server, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, srv *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServer_DrivesRun(t *testing.T) {
	srv, sess := newServer(t)

	next := decode[gantryhttp.NextResponse](t, get(t, srv, "/slots/next"))
	require.Len(t, next.Slots, 1)
	assert.Equal(t, "A", next.Slots[0].ID)

	resp := post(t, srv, "/slots/A/begin", `{"agent_id":"coder","agent_prompt":"agents/coder.md"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ss := decode[domain.SlotState](t, resp)
	assert.Equal(t, domain.SlotInProgress, ss.Status)
	assert.Equal(t, "coder", ss.AgentID)

	resp = post(t, srv, "/slots/A/complete", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.SlotCompleted, decode[domain.SlotState](t, resp).Status)

	// gate failures are reported in the body, not as HTTP errors
	resp = post(t, srv, "/slots/B/begin", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ss = decode[domain.SlotState](t, resp)
	assert.Equal(t, domain.SlotFailed, ss.Status)
	assert.Contains(t, ss.Error, "Pre-conditions failed")

	status := decode[gantryhttp.StatusResponse](t, get(t, srv, "/status"))
	assert.Equal(t, domain.PipelineFailed, status.State.Status)
	assert.Equal(t, []string{"A"}, status.Overview.Completed)
	assert.Equal(t, []string{"B"}, status.Overview.Failed)
	assert.Equal(t, domain.PipelineFailed, sess.State().Status)

	metrics := get(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, metrics.StatusCode)
}

func TestServer_ErrorStatuses(t *testing.T) {
	srv, _ := newServer(t)

	resp := post(t, srv, "/slots/ghost/begin", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, decode[gantryhttp.ErrorResponse](t, resp).Error, "ghost")

	resp = post(t, srv, "/slots/A/skip", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.SlotSkipped, decode[domain.SlotState](t, resp).Status)

	resp = post(t, srv, "/slots/A/begin", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = post(t, srv, "/audit", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = post(t, srv, "/slots/B/fail", "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_FailAndAudit(t *testing.T) {
	srv, _ := newServer(t)

	resp := post(t, srv, "/slots/A/fail", `{"error":"agent crashed"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ss := decode[domain.SlotState](t, resp)
	assert.Equal(t, domain.SlotFailed, ss.Status)
	assert.Equal(t, "agent crashed", ss.Error)

	srv2, sess := newServer(t)
	_, err := sess.Skip(context.Background(), "A")
	require.NoError(t, err)
	_, err = sess.Skip(context.Background(), "B")
	require.NoError(t, err)

	resp = post(t, srv2, "/audit", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.PipelineAuditing, decode[domain.PipelineState](t, resp).Status)
	assert.NotEmpty(t, filepath.Base(sess.StatePath()))
}

func TestServer_CORSPreflight(t *testing.T) {
	srv, _ := newServer(t)
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/status", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
