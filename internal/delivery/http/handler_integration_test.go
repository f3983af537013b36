package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nutriscan/backend/config"
	"github.com/nutriscan/backend/internal/domain"
	"github.com/nutriscan/backend/internal/infrastructure/history"
	"github.com/nutriscan/backend/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// stubLookupBackend resolves a fixed product set
type stubLookupBackend struct {
	products map[string]*domain.BarcodeProduct
}

func (s *stubLookupBackend) Lookup(ctx context.Context, barcode string) (*domain.BarcodeProduct, error) {
	if p, ok := s.products[barcode]; ok {
		return p, nil
	}
	return nil, &domain.LookupError{Reason: domain.ReasonNotFound, Message: "no product", Status: 404}
}

// stubScannerBackend is a minimal in-process backend double
type stubScannerBackend struct {
	startErr error
	emit     func(code string)
}

func (b *stubScannerBackend) Kind() domain.BackendKind { return domain.BackendInProcess }

func (b *stubScannerBackend) Start(ctx context.Context, opts domain.BackendOptions, emit func(code string)) (domain.BackendSession, error) {
	if b.startErr != nil {
		return nil, b.startErr
	}
	b.emit = emit
	return &stubSession{deviceID: "rear"}, nil
}

type stubSession struct {
	deviceID string
}

func (s *stubSession) Cameras() []domain.CameraDevice {
	return []domain.CameraDevice{{DeviceID: "rear", Label: "Back Camera"}}
}
func (s *stubSession) ActiveDeviceID() string { return s.deviceID }
func (s *stubSession) HasTorch() bool         { return true }
func (s *stubSession) SetTorch(on bool) error { return nil }
func (s *stubSession) Stop()                  {}

type testEnv struct {
	router  *gin.Engine
	backend *stubScannerBackend
	scanner *usecase.ScannerController
	hub     *EventHub
}

// setupTestEnv wires real usecase objects over stub boundaries
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:*"},
		},
		Lookup: config.LookupConfig{BaseURL: "https://lookup.example.com"},
	}

	lookupBackend := &stubLookupBackend{
		products: map[string]*domain.BarcodeProduct{
			"729000001234": {
				Barcode: "729000001234",
				Name:    "Hummus",
				Brand:   "Acme",
				Per100g: domain.Per100g{Calories: 250, Protein: 8, Carbs: 14, Fat: 18},
				Source:  "openfoodfacts",
			},
		},
	}
	cache := usecase.NewLookupCache(lookupBackend, usecase.LookupCacheConfig{MinLatency: time.Nanosecond})

	scannerBackend := &stubScannerBackend{}
	scanner := usecase.NewScannerController(scannerBackend, usecase.ScannerControllerConfig{})

	store, err := history.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	hub := NewEventHub()
	handler := NewHandler(scanner, cache, store, hub)

	return &testEnv{
		router:  SetupRouter(cfg, handler),
		backend: scannerBackend,
		scanner: scanner,
		hub:     hub,
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheckEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	w := doJSON(t, env.router, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "nutriscan-backend", response["service"])
}

func TestLookupEndpoint(t *testing.T) {
	t.Run("resolves a known barcode", func(t *testing.T) {
		env := setupTestEnv(t)

		w := doJSON(t, env.router, "POST", "/api/v1/barcode/lookup", gin.H{"barcode": "729000001234"})
		require.Equal(t, http.StatusOK, w.Code)

		var result domain.LookupResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		require.True(t, result.OK)
		assert.Equal(t, "Hummus", result.Product.Name)
		assert.False(t, result.FromCache)
	})

	t.Run("unknown barcode resolves as not_found, still 200", func(t *testing.T) {
		env := setupTestEnv(t)

		w := doJSON(t, env.router, "POST", "/api/v1/barcode/lookup", gin.H{"barcode": "40000000"})
		require.Equal(t, http.StatusOK, w.Code)

		var result domain.LookupResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.False(t, result.OK)
		assert.Equal(t, domain.ReasonNotFound, result.Reason)
	})

	t.Run("malformed body is a 400 invalid result", func(t *testing.T) {
		env := setupTestEnv(t)

		req, _ := http.NewRequest("POST", "/api/v1/barcode/lookup", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		var result domain.LookupResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, domain.ReasonInvalid, result.Reason)
	})

	t.Run("successful lookups land in history", func(t *testing.T) {
		env := setupTestEnv(t)

		doJSON(t, env.router, "POST", "/api/v1/barcode/lookup", gin.H{"barcode": "729000001234"})

		w := doJSON(t, env.router, "GET", "/api/v1/scans", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Scans []domain.ScanRecord `json:"scans"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Scans, 1)
		assert.Equal(t, "Hummus", response.Scans[0].ProductName)
		assert.Equal(t, "729000001234", response.Scans[0].Barcode)
	})
}

func TestScannerEndpoints(t *testing.T) {
	t.Run("start stop lifecycle", func(t *testing.T) {
		env := setupTestEnv(t)

		w := doJSON(t, env.router, "GET", "/api/v1/scanner", nil)
		var snap domain.ScannerSnapshot
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
		assert.Equal(t, domain.StatusIdle, snap.Status)

		w = doJSON(t, env.router, "POST", "/api/v1/scanner/start", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
		assert.Equal(t, domain.StatusRunning, snap.Status)
		assert.Equal(t, "rear", snap.ActiveDeviceID)
		assert.True(t, snap.HasTorch)

		w = doJSON(t, env.router, "POST", "/api/v1/scanner/stop", nil)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
		assert.Equal(t, domain.StatusIdle, snap.Status)
	})

	t.Run("start failure surfaces classified state", func(t *testing.T) {
		env := setupTestEnv(t)
		env.backend.startErr = domain.ErrPermissionDenied

		w := doJSON(t, env.router, "POST", "/api/v1/scanner/start", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var snap domain.ScannerSnapshot
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
		assert.Equal(t, domain.StatusNoPermission, snap.Status)
		assert.Equal(t, domain.CodePermissionDenied, snap.ErrorCode)
	})

	t.Run("torch toggles on a running session", func(t *testing.T) {
		env := setupTestEnv(t)
		doJSON(t, env.router, "POST", "/api/v1/scanner/start", nil)

		w := doJSON(t, env.router, "POST", "/api/v1/scanner/torch", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var snap domain.ScannerSnapshot
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
		assert.True(t, snap.TorchEnabled)
	})

	t.Run("device switch stops the session", func(t *testing.T) {
		env := setupTestEnv(t)
		doJSON(t, env.router, "POST", "/api/v1/scanner/start", nil)

		w := doJSON(t, env.router, "POST", "/api/v1/scanner/device", gin.H{"deviceId": "front"})
		require.Equal(t, http.StatusOK, w.Code)

		var snap domain.ScannerSnapshot
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
		assert.Equal(t, domain.StatusIdle, snap.Status)
		assert.Equal(t, "front", snap.ActiveDeviceID)
	})

	t.Run("device switch requires a device id", func(t *testing.T) {
		env := setupTestEnv(t)

		w := doJSON(t, env.router, "POST", "/api/v1/scanner/device", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestEventStream(t *testing.T) {
	env := setupTestEnv(t)

	// Wire detection to the hub the way main does
	env.scanner.SetOnDetected(func(r domain.DecodeResult) {
		env.hub.Broadcast(DetectionEvent(r))
	})

	server := httptest.NewServer(env.router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/scanner/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.Eventually(t, func() bool { return env.hub.ClientCount() == 1 }, time.Second, time.Millisecond)

	// Start the scanner and push a detection through the backend
	doJSON(t, env.router, "POST", "/api/v1/scanner/start", nil)
	env.backend.emit("729000001234")

	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)

		var event Event
		require.NoError(t, json.Unmarshal(payload, &event))
		if event.Type == "status" {
			continue // start broadcasts a status event first
		}
		require.Equal(t, "detection", event.Type)
		require.NotNil(t, event.Detection)
		assert.Equal(t, "729000001234", event.Detection.Code)
		break
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	w := doJSON(t, env.router, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
