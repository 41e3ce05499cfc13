package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopuf/domain/core"
	"gopuf/internal/testkit"
	"gopuf/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func sampleResult() *models.ExperimentResult {
	return &models.ExperimentResult{
		ID: core.ExperimentID(core.NewID()),
		Params: models.ExperimentParams{
			N: 64, K: 2, Noisiness: 0.05, Num: 30000, Reps: 11,
		},
		Accuracy:         0.98,
		TrainingAccuracy: 0.97,
		Iterations:       412,
		Stops:            "no_effect,stagnation",
		DiscardCount:     map[int]int{1: 2},
		IterationCount:   map[int]int{0: 200, 1: 212},
		MeasuredSeconds:  12.5,
		CreatedAt:        core.Now(),
	}
}

func newTestServer(t *testing.T) (*Server, *models.ExperimentResult) {
	t.Helper()
	store := testkit.NewInMemoryResultStore()
	res := sampleResult()
	require.NoError(t, store.SaveResult(context.Background(), res))
	return NewServer(store, nil), res
}

func get(t *testing.T, server *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	w := get(t, server, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListExperiments(t *testing.T) {
	server, res := newTestServer(t)
	w := get(t, server, "/api/experiments")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Experiments []models.ExperimentResult `json:"experiments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Experiments, 1)
	assert.Equal(t, res.ID, body.Experiments[0].ID)
	assert.Equal(t, res.Accuracy, body.Experiments[0].Accuracy)
}

func TestGetExperiment(t *testing.T) {
	server, res := newTestServer(t)

	t.Run("found", func(t *testing.T) {
		w := get(t, server, "/api/experiments/"+res.ID.String())
		require.Equal(t, http.StatusOK, w.Code)

		var got models.ExperimentResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, res.ID, got.ID)
		assert.Equal(t, res.Stops, got.Stops)
	})

	t.Run("missing", func(t *testing.T) {
		w := get(t, server, "/api/experiments/does-not-exist")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("blank id", func(t *testing.T) {
		w := get(t, server, "/api/experiments/%20")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReportEndpoint(t *testing.T) {
	server, res := newTestServer(t)

	w := get(t, server, "/experiments/"+res.ID.String()+"/report")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), res.ID.String())

	w = get(t, server, "/experiments/nope/report")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRenderReportMarkdown(t *testing.T) {
	res := sampleResult()
	md := RenderReportMarkdown(res)

	assert.True(t, strings.HasPrefix(md, "# Experiment "+res.ID.String()))
	assert.Contains(t, md, "Holdout accuracy")
	assert.Contains(t, md, "no_effect,stagnation")
	assert.Contains(t, md, "## Per-chain search")

	html := string(RenderReportHTML(res))
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, res.ID.String())
}
