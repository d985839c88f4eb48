// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhoffm/chatd/internal/store"
	"github.com/mhoffm/chatd/internal/wire"
)

func TestAdminHealthz(t *testing.T) {
	router := AdminRouter(store.NewMemoryStore(), zerolog.Nop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAdminStatusz(t *testing.T) {
	st := store.NewMemoryStore()
	router := AdminRouter(st, zerolog.Nop())

	var status struct {
		LabelsReady bool `json:"labelsReady"`
		Labels      int  `json:"labels"`
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/statusz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.LabelsReady)

	require.NoError(t, st.UpsertLabel(context.Background(), wire.Label{ID: "l1", Name: "Work"}))
	st.SetLabelsReady()

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/statusz", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.LabelsReady)
	assert.Equal(t, 1, status.Labels)
}

func TestAdminMetrics(t *testing.T) {
	router := AdminRouter(store.NewMemoryStore(), zerolog.Nop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAdminUnknownRoute(t *testing.T) {
	router := AdminRouter(store.NewMemoryStore(), zerolog.Nop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/labels", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
