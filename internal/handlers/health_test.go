package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/compass-engine/pkg/storage"
)

func TestHealthHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		setupStorage   func() *storage.MockStorage
		expectedStatus int
		expectedHealth string
		expectedStore  string
		expectedWorlds string
	}{
		{
			name: "all healthy",
			setupStorage: func() *storage.MockStorage {
				m := storage.NewMockStorage()
				m.SetPingSuccess()
				m.AddWorld("test_world.json", testWorld())
				return m
			},
			expectedStatus: http.StatusOK,
			expectedHealth: "healthy",
			expectedStore:  "healthy",
			expectedWorlds: "healthy",
		},
		{
			name: "no worlds installed",
			setupStorage: func() *storage.MockStorage {
				return storage.NewMockStorage()
			},
			expectedStatus: http.StatusOK,
			expectedHealth: "healthy",
			expectedStore:  "healthy",
			expectedWorlds: "empty",
		},
		{
			name: "storage unhealthy",
			setupStorage: func() *storage.MockStorage {
				m := storage.NewMockStorage()
				m.SetPingError(errors.New("connection refused"))
				m.AddWorld("test_world.json", testWorld())
				return m
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedHealth: "degraded",
			expectedStore:  "unhealthy",
			expectedWorlds: "healthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.setupStorage(), testLogger())

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var response HealthResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
			assert.Equal(t, tt.expectedHealth, response.Status)
			assert.Equal(t, "compass-engine", response.Service)
			assert.Equal(t, tt.expectedStore, response.Components["storage"])
			assert.Equal(t, tt.expectedWorlds, response.Components["worlds"])
			assert.WithinDuration(t, time.Now(), response.Timestamp, 5*time.Second)
		})
	}
}
