package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ValentinKolb/sdcs/lib/envelope"
	"github.com/ValentinKolb/sdcs/lib/store"
	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("gateway")
)

// Banner is the body of GET /
const Banner = "Simple Distributed Cache System\n"

// maxBodySize limits the body of a POST request
const maxBodySize = 16 << 20

var (
	errNotAnObject = errors.New("body must be a JSON object")
	errPairCount   = errors.New("body must contain exactly one key")
)

// MetricsWriter writes metrics in the Prometheus text format
type MetricsWriter func(w io.Writer)

// NewHandler creates the gateway handler serving target. metricsWriter may be
// nil, the process metrics are always exposed.
func NewHandler(target store.IStore, metricsWriter MetricsWriter) http.Handler {
	h := &handler{store: target, metrics: metricsWriter}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logRequests)

	r.Get("/", h.banner)
	r.Post("/", h.set)
	r.Get("/metrics", h.writeMetrics)
	r.Get("/{key}", h.get)
	r.Delete("/{key}", h.remove)

	return r
}

type handler struct {
	store   store.IStore
	metrics MetricsWriter
}

// --------------------------------------------------------------------------
// Routes
// --------------------------------------------------------------------------

func (h *handler) banner(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, Banner)
}

func (h *handler) set(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeText(w, http.StatusBadRequest, fmt.Sprintf("failed to read body: %v\n", err))
		return
	}

	key, value, err := parseEntry(body)
	if err != nil {
		writeText(w, http.StatusBadRequest, err.Error()+"\n")
		return
	}

	if err := h.store.Set(key, value); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	key, err := keyParam(r)
	if err != nil {
		writeText(w, http.StatusBadRequest, err.Error()+"\n")
		return
	}

	value, ok, err := h.store.Get(key)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	raw, err := envelope.FormatJSON(value)
	if err != nil {
		writeText(w, http.StatusInternalServerError, err.Error()+"\n")
		return
	}
	name, err := json.Marshal(key)
	if err != nil {
		writeText(w, http.StatusInternalServerError, err.Error()+"\n")
		return
	}

	// {"key": value}, built by hand to keep the number formatting of FormatJSON
	var buf bytes.Buffer
	buf.WriteByte('{')
	buf.Write(name)
	buf.WriteByte(':')
	buf.Write(raw)
	buf.WriteString("}\n")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *handler) remove(w http.ResponseWriter, r *http.Request) {
	key, err := keyParam(r)
	if err != nil {
		writeText(w, http.StatusBadRequest, err.Error()+"\n")
		return
	}

	existed, err := h.store.Remove(key)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if existed {
		writeText(w, http.StatusOK, "1\n")
	} else {
		writeText(w, http.StatusOK, "0\n")
	}
}

func (h *handler) writeMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	if h.metrics != nil {
		h.metrics(w)
	}
	metrics.WritePrometheus(w, true)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// parseEntry extracts the single key value pair of a POST body
func parseEntry(body []byte) (string, envelope.Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(body))

	var entries map[string]json.RawMessage
	if err := dec.Decode(&entries); err != nil || entries == nil {
		return "", envelope.Envelope{}, errNotAnObject
	}
	if dec.More() {
		return "", envelope.Envelope{}, errNotAnObject
	}
	if len(entries) != 1 {
		return "", envelope.Envelope{}, fmt.Errorf("%w, got %d", errPairCount, len(entries))
	}

	var key string
	var raw json.RawMessage
	for key, raw = range entries {
	}

	value, err := envelope.ParseJSON(raw)
	if err != nil {
		return "", envelope.Envelope{}, fmt.Errorf("unsupported type: %w", err)
	}
	return key, value, nil
}

// keyParam returns the decoded key of the route
func keyParam(r *http.Request) (string, error) {
	key := chi.URLParam(r, "key")
	if r.URL.RawPath == "" {
		return key, nil
	}
	return url.PathUnescape(key)
}

// writeStoreError maps invalid values to 400, everything else (mostly
// failures of the owning node) to 500
func writeStoreError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if store.HasCode(err, store.RetCInvalidValue) || errors.Is(err, envelope.ErrUnsupportedType) {
		status = http.StatusBadRequest
	}
	Logger.Warningf("Request failed: %v", err)
	writeText(w, status, err.Error()+"\n")
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, text)
}

// statusRecorder remembers the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logRequests logs method, path, status and duration of every request
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		Logger.Debugf("%s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
