package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/guillermoBallester/dqscore/internal/adapter/file"
	"github.com/guillermoBallester/dqscore/internal/audit"
	"github.com/guillermoBallester/dqscore/internal/core/domain"
	"github.com/guillermoBallester/dqscore/internal/core/port"
	"github.com/guillermoBallester/dqscore/internal/core/service"
	"github.com/guillermoBallester/dqscore/internal/reportstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const carsCSV = "make,year,price\nford,2019,12500\nkia,2021,\nvw,1995,8000\nford,2019,12500\n"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

type failingLoader struct{ err error }

func (l failingLoader) Load(context.Context, string, io.Reader) (*domain.Table, error) {
	return nil, l.err
}

type toolTimer struct {
	port.NoopInstrumentation
	calls int
}

func (t *toolTimer) RecordToolDuration(context.Context, float64) { t.calls++ }

func newService(t *testing.T, loader port.TableLoader) *service.AssessmentService {
	t.Helper()
	logger := discardLogger()
	if loader == nil {
		loader = file.NewLoader(logger)
	}
	engine := service.NewEngine(service.EngineConfig{ReferenceYear: 2025}, nil, logger, nil, nil)
	return service.NewAssessmentService(
		service.AssessmentConfig{PreviewRows: 2},
		loader, nil, domain.NewPgQueryValidator(), engine,
		reportstore.NoopStore{}, audit.NoopAuditor{},
		logger, nil, nil,
	)
}

func newRouter(t *testing.T, cfg Config, loader port.TableLoader) http.Handler {
	t.Helper()
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 1 << 20
	}
	return NewRouter(cfg, newService(t, loader), okHandler(), discardLogger(), nil)
}

// uploadRequest builds a multipart POST /evaluate. An empty field skips the
// file part entirely.
func uploadRequest(t *testing.T, field, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "ignored"))
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/evaluate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

// --- middleware ---

func TestBearerAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer secret-token", http.StatusOK},
		{"wrong token", "Bearer wrong-token", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret-token", http.StatusUnauthorized},
		{"token prefix only", "Bearer secret", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := bearerAuthMiddleware(okHandler(), "secret-token")
			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := serve(handler, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestRecoveryMiddleware_PanicReturns500(t *testing.T) {
	handler := recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("unexpected error")
	}), discardLogger())

	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", errorBody(t, rec))
}

func TestRecoveryMiddleware_NoPanicPassesThrough(t *testing.T) {
	handler := recoveryMiddleware(okHandler(), discardLogger())
	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := requestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	serve(h, httptest.NewRequest(http.MethodGet, "/brew", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "http request", line["msg"])
	assert.Equal(t, "/brew", line["http.route"])
	assert.Equal(t, float64(http.StatusTeapot), line["http.status"])
	assert.Contains(t, line, "duration")
}

// --- routes ---

func TestHealthHandler(t *testing.T) {
	rec := serve(http.HandlerFunc(healthHandler), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_HealthSkipsAuth(t *testing.T) {
	h := newRouter(t, Config{BearerToken: "tok"}, nil)
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestRouter_AuthGuardsEvaluateAndMCP(t *testing.T) {
	h := newRouter(t, Config{BearerToken: "tok"}, nil)

	rec := serve(h, uploadRequest(t, "file", "cars.csv", carsCSV))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := uploadRequest(t, "file", "cars.csv", carsCSV)
	req.Header.Set("Authorization", "Bearer tok")
	rec = serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec = serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_NoMCPHandler(t *testing.T) {
	h := NewRouter(Config{MaxUploadBytes: 1024}, newService(t, nil), nil, discardLogger(), nil)
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	h := newRouter(t, Config{AllowedOrigins: []string{"https://app.example.com"}}, nil)
	req := httptest.NewRequest(http.MethodOptions, "/evaluate", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := serve(h, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_NoOriginsSendsNoCORSHeaders(t *testing.T) {
	h := newRouter(t, Config{BearerToken: "tok"}, nil)

	preflight := httptest.NewRequest(http.MethodOptions, "/mcp", nil)
	preflight.Header.Set("Origin", "https://evil.example")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(h, preflight)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_CORSRejectsUnlistedOrigin(t *testing.T) {
	h := newRouter(t, Config{AllowedOrigins: []string{"https://app.example.com"}}, nil)
	req := httptest.NewRequest(http.MethodOptions, "/evaluate", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := serve(h, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

// --- /evaluate ---

func TestEvaluate_Success(t *testing.T) {
	inst := &toolTimer{}
	h := NewRouter(Config{MaxUploadBytes: 1 << 20}, newService(t, nil), nil, discardLogger(), inst)

	rec := serve(h, uploadRequest(t, "file", "cars.csv", carsCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, float64(4), got["total_rows"])
	assert.Equal(t, float64(3), got["total_columns"])
	assert.Equal(t, float64(1), got["duplicate_rows"])
	assert.NotEmpty(t, got["assessment_id"])
	assert.Equal(t, []any{"make", "year", "price"}, got["preview_columns"])
	assert.Len(t, got["preview_data"], 2)
	assert.NotContains(t, got, "saved_report")
	assert.Equal(t, 1, inst.calls)
}

func TestEvaluate_NoExtensionIsSniffed(t *testing.T) {
	h := newRouter(t, Config{}, nil)
	rec := serve(h, uploadRequest(t, "file", "upload", `[{"a":1},{"a":2}]`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"total_rows":2`)
}

func TestEvaluate_ClientErrors(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		filename string
		content  string
		want     string
	}{
		{"no file part", "", "", "", msgNoFile},
		{"wrong field name", "upload", "cars.csv", carsCSV, msgNoFile},
		{"empty filename", "file", "", carsCSV, msgNoFileName},
		{"disallowed extension", "file", "notes.txt", "hello", msgNotAllowed},
		{"empty table", "file", "empty.csv", "", domain.ErrEmptyTable.Error()},
		{"malformed json", "file", "bad.json", `[{"a":`, "malformed input"},
		{"legacy xls", "file", "old.xls", "whatever", "unsupported file type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newRouter(t, Config{}, nil)
			rec := serve(h, uploadRequest(t, tt.field, tt.filename, tt.content))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, errorBody(t, rec), tt.want)
		})
	}
}

func TestEvaluate_NotMultipart(t *testing.T) {
	h := newRouter(t, Config{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader(carsCSV))
	req.Header.Set("Content-Type", "text/csv")

	rec := serve(h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgNoFile, errorBody(t, rec))
}

func TestEvaluate_TooLarge(t *testing.T) {
	h := newRouter(t, Config{MaxUploadBytes: 64}, nil)
	rec := serve(h, uploadRequest(t, "file", "big.csv", "a\n"+strings.Repeat("1\n", 100)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, msgTooLarge, errorBody(t, rec))
}

func TestEvaluate_InternalErrorIsHidden(t *testing.T) {
	h := newRouter(t, Config{}, failingLoader{err: errors.New("disk on fire at /var/secret")})
	rec := serve(h, uploadRequest(t, "file", "cars.csv", carsCSV))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	msg := errorBody(t, rec)
	assert.Equal(t, msgInternal, msg)
	assert.NotContains(t, msg, "secret")
}

func TestAssessError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"input error", domain.ErrEmptyTable, http.StatusBadRequest, domain.ErrEmptyTable.Error()},
		{"wrapped input error", errors.Join(errors.New("loading"), domain.ErrMalformedInput), http.StatusBadRequest, "malformed input"},
		{"upload limit", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, msgTooLarge},
		{"deadline", context.DeadlineExceeded, http.StatusInternalServerError, msgTimedOut},
		{"anything else", errors.New("boom"), http.StatusInternalServerError, msgInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := assessError(discardLogger(), tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Contains(t, msg, tt.wantMsg)
		})
	}
}
