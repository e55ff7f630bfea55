package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"balanced-bowl/internal/database"
	"balanced-bowl/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db.SQL)

	require.NoError(t, store.RecordMeta(ctx, shared.AgentMeta{
		AgentName: "assistant",
		Usage:     shared.TokenUsage{PromptTokens: 100, CompletionTokens: 20, Model: "gemini-2.5-pro"},
		Latency:   1500 * time.Millisecond,
	}))
	require.NoError(t, store.RecordMeta(ctx, shared.AgentMeta{
		AgentName: "narrator",
		Usage:     shared.TokenUsage{PromptTokens: 10, CompletionTokens: 200, Model: "tts"},
	}))
	// Calls without usage are not recorded.
	require.NoError(t, store.RecordMeta(ctx, shared.AgentMeta{AgentName: "assistant"}))

	require.NoError(t, store.Record(ctx, ExecutionMetric{
		AgentName: "assistant",
		Model:     "gemini-2.5-pro",
		Timestamp: time.Now().UTC().AddDate(0, 0, -40),
	}))

	usage, err := store.GetDailyUsage(ctx, 7)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), usage[0].Date)
	assert.Equal(t, 110, usage[0].TotalPrompt)
	assert.Equal(t, 220, usage[0].TotalCompletion)
	assert.Equal(t, 2, usage[0].TotalExecution)

	removed, err := store.Cleanup(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestMapUsage(t *testing.T) {
	m := MapUsage("assistant", shared.TokenUsage{PromptTokens: 5, CompletionTokens: 7, Model: "m"}, 2*time.Second)
	assert.Equal(t, "assistant", m.AgentName)
	assert.Equal(t, int64(2000), m.LatencyMS)
	assert.False(t, m.Timestamp.IsZero())
}

func TestGetSysHealth(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.db"), make([]byte, 2048), 0o644))

	health := GetSysHealth(dir)
	assert.Greater(t, health.Goroutines, 0)
	assert.Equal(t, "2.0 KB", health.DataDiskSize)
}

func TestCollectorsHandler(t *testing.T) {
	c := NewCollectors(nil)
	c.ObserveHTTP("GET", "/api/v1/state", 200, 15*time.Millisecond)
	c.Dispatches.WithLabelValues("AssignMeal").Inc()
	c.Sessions.Set(3)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)
	assert.True(t, strings.Contains(out, `balanced_bowl_http_requests_total{method="GET",route="/api/v1/state",status="200"} 1`), out)
	assert.Contains(t, out, `balanced_bowl_planner_dispatches_total{action="AssignMeal"} 1`)
	assert.Contains(t, out, "balanced_bowl_planner_sessions_open 3")
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "512 B", humanBytes(512))
	assert.Equal(t, "1.5 MB", humanBytes(1536*1024))
	assert.Equal(t, "0 B", humanBytes(diskUsage(filepath.Join(t.TempDir(), "missing"))))
}
