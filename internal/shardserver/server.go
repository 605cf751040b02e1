package shardserver

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stablekit/stablekit/internal/format"
	"github.com/stablekit/stablekit/internal/regionfile"
)

// Config carries the shard daemon's operating parameters.
type Config struct {
	// DataDir holds the shard's region file, identity, and payload.
	DataDir string

	// MaxBytes is the shard's capacity. Writes that would push the log
	// past it are rejected with 413.
	MaxBytes uint64
}

// Server is one shard: an identity, a blob log, and the HTTP surface the
// pool talks to.
type Server struct {
	id     string
	cfg    Config
	logger *slog.Logger

	mu    sync.Mutex
	store *Store
	file  *regionfile.File

	registry *prometheus.Registry
	writes   prometheus.Counter
	rejected prometheus.Counter
	used     prometheus.Gauge
}

// New opens (or initializes) a shard in cfg.DataDir. A fresh data dir
// gets a generated ULID identity; an existing one keeps its identity and
// blob log across restarts.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("shardserver: create data dir: %w", err)
	}

	id, err := loadIdentity(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	file, err := regionfile.Open(filepath.Join(cfg.DataDir, "shard.dat"))
	if err != nil {
		return nil, err
	}
	store, err := NewStore(file)
	if err != nil {
		file.Close()
		return nil, err
	}

	s := &Server{id: id, cfg: cfg, logger: logger, store: store, file: file}
	s.initMetrics()
	s.used.Set(float64(store.Used()))

	logger.Info("shard open", "shard", id, "used", store.Used(), "capacity", cfg.MaxBytes)
	return s, nil
}

// ID returns the shard's ULID identity.
func (s *Server) ID() string {
	return s.id
}

// Close flushes and closes the shard's region file.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Sync(); err != nil {
		return err
	}
	return s.file.Close()
}

// Handler returns the shard's HTTP API.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/v1/write", s.handleWrite).Methods(http.MethodPost)
	r.HandleFunc("/v1/read", s.handleRead).Methods(http.MethodGet)
	r.HandleFunc("/v1/install", s.handlePayload).Methods(http.MethodPost)
	r.HandleFunc("/v1/upgrade", s.handlePayload).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

// handleWrite appends the request body to the blob log and answers with
// the 8-byte big-endian offset it landed at.
func (s *Server) handleWrite(w http.ResponseWriter, req *http.Request) {
	blob, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if s.store.Used()+uint64(len(blob)) > s.cfg.MaxBytes {
		s.mu.Unlock()
		s.rejected.Inc()
		http.Error(w, "shard capacity exceeded", http.StatusRequestEntityTooLarge)
		return
	}
	off, err := s.store.Append(blob)
	if err == nil {
		err = s.store.Sync()
	}
	used := s.store.Used()
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("append failed", "shard", s.id, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writes.Inc()
	s.used.Set(float64(used))

	var resp [8]byte
	format.PutU64(resp[:], 0, off)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(resp[:])
}

func (s *Server) handleRead(w http.ResponseWriter, req *http.Request) {
	off, err1 := strconv.ParseUint(req.URL.Query().Get("offset"), 10, 64)
	n, err2 := strconv.ParseUint(req.URL.Query().Get("len"), 10, 64)
	if err1 != nil || err2 != nil {
		http.Error(w, "offset and len query parameters are required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	blob, err := s.store.ReadBlob(off, n)
	s.mu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(blob)
}

// handlePayload persists the executable payload pushed by the pool on
// install and upgrade. The shard only stores it; running it is outside
// this process.
func (s *Server) handlePayload(w http.ResponseWriter, req *http.Request) {
	payload, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(payload) == 0 {
		http.Error(w, "empty payload", http.StatusBadRequest)
		return
	}
	path := filepath.Join(s.cfg.DataDir, "payload.bin")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.logger.Info("payload stored", "shard", s.id, "bytes", len(payload))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ok")
}

func (s *Server) initMetrics() {
	s.registry = prometheus.NewRegistry()
	s.writes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stablekit",
		Subsystem: "shard",
		Name:      "writes_total",
		Help:      "Blobs appended to this shard.",
	})
	s.rejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stablekit",
		Subsystem: "shard",
		Name:      "writes_rejected_total",
		Help:      "Writes rejected because the shard is at capacity.",
	})
	s.used = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "stablekit",
		Subsystem: "shard",
		Name:      "used_bytes",
		Help:      "End offset of the blob log.",
	})
	s.registry.MustRegister(s.writes, s.rejected, s.used)
}

// loadIdentity reads the shard's persisted ULID, generating and storing
// one on first start.
func loadIdentity(dataDir string) (string, error) {
	path := filepath.Join(dataDir, "identity")
	b, err := os.ReadFile(path)
	if err == nil {
		id, perr := ulid.ParseStrict(string(b))
		if perr != nil {
			return "", fmt.Errorf("shardserver: corrupt identity file %s: %w", path, perr)
		}
		return id.String(), nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("shardserver: read identity: %w", err)
	}

	id := ulid.Make().String()
	if err := os.WriteFile(path, []byte(id), 0o644); err != nil {
		return "", fmt.Errorf("shardserver: store identity: %w", err)
	}
	return id, nil
}
