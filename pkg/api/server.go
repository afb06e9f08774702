package api

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lam-tt/neural-memory/pkg/api/apierr"
	"github.com/lam-tt/neural-memory/pkg/concurrency"
	"github.com/lam-tt/neural-memory/pkg/consolidation"
	"github.com/lam-tt/neural-memory/pkg/core"
	"github.com/lam-tt/neural-memory/pkg/daemon"
	"github.com/lam-tt/neural-memory/pkg/lifecycle"
	mcpapi "github.com/lam-tt/neural-memory/pkg/mcp"
	"github.com/lam-tt/neural-memory/pkg/persistence"
	"github.com/lam-tt/neural-memory/pkg/registry"
)

// Server is the HTTP/REST API server exposing spec.md §6's ten public
// operations, plus brain lifecycle and admin endpoints, over the
// single-logical-writer BrainWorker/WorkerPool (pkg/concurrency).
type Server struct {
	pool      *concurrency.WorkerPool
	lifecycle *lifecycle.Manager
	registry  *registry.Store
	config    *core.Config
	daemons   *daemon.DaemonManager

	httpServer *http.Server
	addr       string
	mcpPath    string

	rateLimitEnabled  bool
	rateLimitRequests int
	rateLimitWindow   time.Duration
	rateLimitMu       sync.Mutex
	rateLimitEntries  map[string]rateLimitEntry
}

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

type rateLimitEntry struct {
	windowStart time.Time
	count       int
}

// NewServer creates a new API server.
func NewServer(
	addr string,
	pool *concurrency.WorkerPool,
	lm *lifecycle.Manager,
	reg *registry.Store,
	cfg *core.Config,
) *Server {
	s := &Server{
		pool:              pool,
		lifecycle:         lm,
		registry:          reg,
		config:            cfg,
		addr:              addr,
		rateLimitEnabled:  cfg.Security.RateLimitEnabled,
		rateLimitRequests: cfg.Security.RateLimitRequests,
		rateLimitWindow:   cfg.Security.RateLimitWindow,
		rateLimitEntries:  make(map[string]rateLimitEntry),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/brain/", s.handleBrain)

	// Nine of the ten public operations (spec.md §6); health is served
	// by /health.
	mux.HandleFunc("/v1/encode", s.handleEncode)
	mux.HandleFunc("/v1/query", s.handleQuery)
	mux.HandleFunc("/v1/neurons", s.handleListNeurons)
	mux.HandleFunc("/v1/fiber/", s.handleGetFiber)
	mux.HandleFunc("/v1/decay", s.handleDecay)
	mux.HandleFunc("/v1/consolidate", s.handleConsolidate)
	mux.HandleFunc("/v1/export", s.handleExport)
	mux.HandleFunc("/v1/import", s.handleImport)
	mux.HandleFunc("/v1/stats", s.handleStats)

	// Brain-id registry
	mux.HandleFunc("/v1/registry/find-or-create", s.handleRegistryFindOrCreate)
	mux.HandleFunc("/v1/registry/", s.handleRegistry)
	mux.HandleFunc("/v1/registry", s.handleRegistry)

	if cfg.MCP.Enabled {
		path := cfg.MCP.Path
		if strings.TrimSpace(path) == "" {
			path = "/mcp"
		}
		if len(path) > 1 {
			path = strings.TrimRight(path, "/")
		}

		mcpHandler, err := mcpapi.NewHandler(mcpapi.Config{
			APIKey:         cfg.MCP.APIKey,
			Stateless:      cfg.MCP.Stateless,
			RateLimitRPS:   cfg.MCP.RateLimitRPS,
			RateLimitBurst: cfg.MCP.RateLimitBurst,
			EnablePrompts:  cfg.MCP.EnablePrompts,
			AllowedTools:   cfg.MCP.AllowedTools,
		}, newMCPBackend(s))
		if err != nil {
			log.Printf("MCP endpoint disabled: %v", err)
		} else {
			s.mcpPath = path
			mux.Handle(path, mcpHandler)
			log.Printf("MCP endpoint enabled at %s (stateless=%v)", path, cfg.MCP.Stateless)
		}
	}

	if cfg.Admin.Enabled {
		mux.HandleFunc("/admin/login", s.handleAdminLogin)
		mux.HandleFunc("/admin/indexes", s.requireAdmin(s.handleAdminIndexes))
		mux.HandleFunc("/admin/indexes/", s.requireAdmin(s.handleAdminIndexOps))
		mux.HandleFunc("/v1/config", s.requireAdmin(s.handleConfig))
		mux.HandleFunc("/admin/config", s.requireAdmin(s.handleConfig))
		mux.HandleFunc("/admin/daemons", s.requireAdmin(s.handleAdminDaemons))
		mux.HandleFunc("/admin/persist", s.requireAdmin(s.handleAdminPersist))
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(mux),
		ReadTimeout:  cfg.Security.ReadTimeout,
		WriteTimeout: cfg.Security.WriteTimeout,
	}

	return s
}

// SetDaemonManager binds the daemon manager for runtime interval reconfiguration.
func (s *Server) SetDaemonManager(dm *daemon.DaemonManager) {
	s.daemons = dm
}

// withMiddleware adds common middleware (CORS, content-type, request body limit, logging).
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.isMCPPath(r.URL.Path) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
			return
		}

		requestOrigin := r.Header.Get("Origin")
		if requestOrigin != "" {
			allowed := false
			if s.config.Security.AllowedOrigins == "*" {
				allowed = true
			} else {
				for _, o := range strings.Split(s.config.Security.AllowedOrigins, ",") {
					if strings.TrimSpace(o) == requestOrigin {
						allowed = true
						break
					}
				}
			}
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", requestOrigin)
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Brain-ID, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		if !s.allowRequestByRateLimit(r) {
			retryAfter := int(s.rateLimitWindow.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			apierr.TooManyRequests(w, "rate limit exceeded")
			return
		}

		if s.config.Security.MaxRequestBody > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.config.Security.MaxRequestBody)
		}

		w.Header().Set("Content-Type", "application/json")

		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) isMCPPath(path string) bool {
	if s.mcpPath == "" {
		return false
	}
	if path == s.mcpPath {
		return true
	}
	return strings.HasPrefix(path, s.mcpPath+"/")
}

// requireAdmin wraps a handler with admin Basic-Auth verification.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="neuralmemory admin"`)
			apierr.Unauthorized(w, "admin authentication required")
			return
		}

		userHash := sha256.Sum256([]byte(user))
		passHash := sha256.Sum256([]byte(pass))
		expectedUserHash := sha256.Sum256([]byte(s.config.Admin.User))
		expectedPassHash := sha256.Sum256([]byte(s.config.Admin.Password))

		userMatch := subtle.ConstantTimeCompare(userHash[:], expectedUserHash[:]) == 1
		passMatch := subtle.ConstantTimeCompare(passHash[:], expectedPassHash[:]) == 1

		if !userMatch || !passMatch {
			apierr.Unauthorized(w, "invalid admin credentials")
			return
		}

		next(w, r)
	}
}

// writeOperationError maps brain/worker errors to HTTP API errors.
func (s *Server) writeOperationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidContent):
		apierr.BadRequest(w, apierr.CodeInvalidContent, err.Error())
	case errors.Is(err, core.ErrInvalidQuery):
		apierr.BadRequest(w, apierr.CodeQueryRequired, err.Error())
	case errors.Is(err, core.ErrContentTooLarge):
		apierr.PayloadTooLarge(w, err.Error())
	case errors.Is(err, core.ErrNeuronNotFound), errors.Is(err, core.ErrFiberNotFound), errors.Is(err, core.ErrSynapseNotFound):
		apierr.NotFound(w, apierr.CodeNeuronNotFound, err.Error())
	case errors.Is(err, core.ErrConflict):
		apierr.Conflict(w, apierr.CodeConflict, err.Error())
	case errors.Is(err, core.ErrBusy), errors.Is(err, context.DeadlineExceeded):
		apierr.Busy(w, err.Error())
	default:
		apierr.Internal(w, err.Error())
	}
}

func (s *Server) decodeJSONRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierr.PayloadTooLarge(w, err.Error())
			return false
		}
		apierr.InvalidJSON(w)
		return false
	}
	return true
}

func clampPositive(value, fallback, maxValue int) int {
	if value <= 0 {
		value = fallback
	}
	if maxValue > 0 && value > maxValue {
		return maxValue
	}
	return value
}

func parsePositiveQueryInt(raw string) int {
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}

func (s *Server) allowRequestByRateLimit(r *http.Request) bool {
	if !s.rateLimitEnabled || s.rateLimitRequests <= 0 || s.rateLimitWindow <= 0 {
		return true
	}

	key := r.RemoteAddr
	if ip := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); ip != "" {
		parts := strings.Split(ip, ",")
		key = strings.TrimSpace(parts[0])
	} else if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		key = ip
	} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		key = host
	}
	if key == "" {
		key = "unknown"
	}

	now := time.Now()
	s.rateLimitMu.Lock()
	defer s.rateLimitMu.Unlock()

	entry := s.rateLimitEntries[key]
	if entry.windowStart.IsZero() || now.Sub(entry.windowStart) >= s.rateLimitWindow {
		s.rateLimitEntries[key] = rateLimitEntry{windowStart: now, count: 1}
		return true
	}
	if entry.count >= s.rateLimitRequests {
		return false
	}
	entry.count++
	s.rateLimitEntries[key] = entry
	return true
}

// Start starts the server. Uses TLS if configured.
func (s *Server) Start() error {
	if s.config.Security.TLSCert != "" && s.config.Security.TLSKey != "" {
		log.Printf("neuralmemory API server starting on %s (TLS)", s.addr)
		return s.httpServer.ListenAndServeTLS(s.config.Security.TLSCert, s.config.Security.TLSKey)
	}
	log.Printf("neuralmemory API server starting on %s", s.addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// getBrainID extracts the brain id from request (header, then query param).
func (s *Server) getBrainID(r *http.Request) core.IndexID {
	if id := r.Header.Get("X-Brain-ID"); id != "" {
		return core.IndexID(id)
	}
	if id := r.URL.Query().Get("brainId"); id != "" {
		return core.IndexID(id)
	}
	if id := r.URL.Query().Get("brain_id"); id != "" {
		return core.IndexID(id)
	}
	return ""
}

// getWorker gets or creates a worker for the brain (requires registration
// when the registry guard is enabled).
func (s *Server) getWorker(brainID core.IndexID) (*concurrency.BrainWorker, error) {
	if brainID == "" {
		return nil, fmt.Errorf("%s: X-Brain-ID header or brain_id query parameter required", apierr.CodeIndexIDRequired)
	}

	if s.config.Registry.Enabled && !s.registry.Exists(core.BrainID(brainID)) {
		return nil, fmt.Errorf("%s: brain id not registered: %s", apierr.CodeUUIDNotRegistered, brainID)
	}

	s.lifecycle.RecordActivity(brainID)

	return s.pool.GetOrCreate(brainID)
}

// writeWorkerError maps a getWorker error to the appropriate apierr response.
func (s *Server) writeWorkerError(w http.ResponseWriter, err error) {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, apierr.CodeIndexIDRequired):
		apierr.IndexIDRequired(w)
	case strings.HasPrefix(msg, apierr.CodeUUIDNotRegistered):
		apierr.BadRequest(w, apierr.CodeUUIDNotRegistered, msg)
	default:
		apierr.Internal(w, msg)
	}
}

// handleHealth returns health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]any{
		"status":       "healthy",
		"timestamp":    time.Now(),
		"activeBrains": s.pool.ActiveCount(),
	})
}

// handleBrain handles brain-level lifecycle operations.
func (s *Server) handleBrain(w http.ResponseWriter, r *http.Request) {
	brainID := s.getBrainID(r)
	if brainID == "" {
		apierr.IndexIDRequired(w)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v1/brain/")

	switch {
	case path == "wake" && r.Method == "POST":
		s.lifecycle.ForceWake(brainID)
		json.NewEncoder(w).Encode(map[string]any{"status": "awake"})

	case path == "sleep" && r.Method == "POST":
		s.lifecycle.ForceSleep(brainID)
		json.NewEncoder(w).Encode(map[string]any{"status": "sleeping"})

	case path == "state" && r.Method == "GET":
		state := s.lifecycle.GetBrainState(brainID)
		if state == nil {
			json.NewEncoder(w).Encode(map[string]any{"state": "dormant"})
		} else {
			stateNames := []string{"active", "idle", "sleeping", "dormant"}
			json.NewEncoder(w).Encode(map[string]any{
				"state":       stateNames[state.State],
				"lastInvoke":  state.LastInvoke,
				"invokeCount": state.InvokeCount,
			})
		}

	default:
		apierr.NotFound(w, apierr.CodeNotFound, "unknown brain action")
	}
}

type encodeRequestDTO struct {
	Content    string         `json:"content"`
	MemoryType string         `json:"memoryType"`
	Tags       []string       `json:"tags"`
	Metadata   map[string]any `json:"metadata"`
}

// handleEncode serves OpEncode.
func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		apierr.MethodNotAllowed(w)
		return
	}

	worker, err := s.getWorker(s.getBrainID(r))
	if err != nil {
		s.writeWorkerError(w, err)
		return
	}

	var dto encodeRequestDTO
	if !s.decodeJSONRequest(w, r, &dto) {
		return
	}
	if strings.TrimSpace(dto.Content) == "" {
		apierr.BadRequest(w, apierr.CodeInvalidContent, "content is required")
		return
	}
	if dto.MemoryType == "" {
		dto.MemoryType = "fact"
	}

	result, err := worker.Submit(r.Context(), &concurrency.Operation{
		Type: concurrency.OpEncode,
		Payload: encoderRequest(dto, time.Now()),
	})
	if err != nil {
		s.writeOperationError(w, err)
		return
	}

	json.NewEncoder(w).Encode(result)
}

type queryRequestDTO struct {
	Query string `json:"query"`
}

// handleQuery serves OpQuery.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" && r.Method != "GET" {
		apierr.MethodNotAllowed(w)
		return
	}

	worker, err := s.getWorker(s.getBrainID(r))
	if err != nil {
		s.writeWorkerError(w, err)
		return
	}

	var query string
	if r.Method == "GET" {
		query = r.URL.Query().Get("q")
	} else {
		var dto queryRequestDTO
		if !s.decodeJSONRequest(w, r, &dto) {
			return
		}
		query = dto.Query
	}
	if strings.TrimSpace(query) == "" {
		apierr.QueryRequired(w)
		return
	}

	result, err := worker.Submit(r.Context(), &concurrency.Operation{
		Type:    concurrency.OpQuery,
		Payload: queryRequest(query, time.Now()),
	})
	if err != nil {
		s.writeOperationError(w, err)
		return
	}

	json.NewEncoder(w).Encode(result)
}

// handleListNeurons serves OpListNeurons.
func (s *Server) handleListNeurons(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		apierr.MethodNotAllowed(w)
		return
	}

	worker, err := s.getWorker(s.getBrainID(r))
	if err != nil {
		s.writeWorkerError(w, err)
		return
	}

	offset := parsePositiveQueryInt(r.URL.Query().Get("offset"))
	limit := clampPositive(parsePositiveQueryInt(r.URL.Query().Get("limit")), defaultListLimit, maxListLimit)

	req := concurrency.ListNeuronsRequest{Offset: offset, Limit: limit}
	if t := r.URL.Query().Get("type"); t != "" {
		nt := core.NeuronType(strings.ToUpper(t))
		req.TypeFilter = &nt
	}

	result, err := worker.Submit(r.Context(), &concurrency.Operation{Type: concurrency.OpListNeurons, Payload: req})
	if err != nil {
		s.writeOperationError(w, err)
		return
	}

	json.NewEncoder(w).Encode(result)
}

// handleGetFiber serves OpGetFiber.
func (s *Server) handleGetFiber(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		apierr.MethodNotAllowed(w)
		return
	}

	fiberID := strings.TrimPrefix(r.URL.Path, "/v1/fiber/")
	if fiberID == "" {
		apierr.BadRequest(w, apierr.CodeNeuronIDRequired, "fiber id required in path")
		return
	}

	worker, err := s.getWorker(s.getBrainID(r))
	if err != nil {
		s.writeWorkerError(w, err)
		return
	}

	result, err := worker.Submit(r.Context(), &concurrency.Operation{Type: concurrency.OpGetFiber, Payload: core.FiberID(fiberID)})
	if err != nil {
		s.writeOperationError(w, err)
		return
	}

	json.NewEncoder(w).Encode(result)
}

// handleDecay serves OpDecay.
func (s *Server) handleDecay(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		apierr.MethodNotAllowed(w)
		return
	}

	worker, err := s.getWorker(s.getBrainID(r))
	if err != nil {
		s.writeWorkerError(w, err)
		return
	}

	result, err := worker.Submit(r.Context(), &concurrency.Operation{Type: concurrency.OpDecay, Payload: time.Now()})
	if err != nil {
		s.writeOperationError(w, err)
		return
	}

	json.NewEncoder(w).Encode(result)
}

type consolidateRequestDTO struct {
	Strategy string `json:"strategy"`
	DryRun   bool   `json:"dryRun"`
}

// handleConsolidate serves OpConsolidate.
func (s *Server) handleConsolidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		apierr.MethodNotAllowed(w)
		return
	}

	worker, err := s.getWorker(s.getBrainID(r))
	if err != nil {
		s.writeWorkerError(w, err)
		return
	}

	var dto consolidateRequestDTO
	if r.ContentLength != 0 {
		if !s.decodeJSONRequest(w, r, &dto) {
			return
		}
	}

	result, err := worker.Submit(r.Context(), &concurrency.Operation{
		Type: concurrency.OpConsolidate,
		Payload: concurrency.ConsolidateRequest{
			Strategy: consolidation.Strategy(strings.ToUpper(dto.Strategy)),
			DryRun:   dto.DryRun,
			Now:      time.Now(),
		},
	})
	if err != nil {
		s.writeOperationError(w, err)
		return
	}

	json.NewEncoder(w).Encode(result)
}

// handleExport serves OpExport.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		apierr.MethodNotAllowed(w)
		return
	}

	worker, err := s.getWorker(s.getBrainID(r))
	if err != nil {
		s.writeWorkerError(w, err)
		return
	}

	result, err := worker.Submit(r.Context(), &concurrency.Operation{Type: concurrency.OpExport, Payload: time.Now()})
	if err != nil {
		s.writeOperationError(w, err)
		return
	}

	snap, _ := result.(persistence.BrainSnapshot)
	data, err := persistence.MarshalSnapshotJSON(snap)
	if err != nil {
		apierr.Internal(w, err.Error())
		return
	}
	w.Write(data)
}

// handleImport serves OpImport.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		apierr.MethodNotAllowed(w)
		return
	}

	worker, err := s.getWorker(s.getBrainID(r))
	if err != nil {
		s.writeWorkerError(w, err)
		return
	}

	body, err := readAll(r)
	if err != nil {
		apierr.PayloadTooLarge(w, err.Error())
		return
	}
	snap, err := persistence.UnmarshalSnapshotJSON(body)
	if err != nil {
		apierr.InvalidJSON(w)
		return
	}

	if _, err := worker.Submit(r.Context(), &concurrency.Operation{Type: concurrency.OpImport, Payload: snap}); err != nil {
		s.writeOperationError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]any{"status": "imported"})
}

// handleStats serves OpStats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		apierr.MethodNotAllowed(w)
		return
	}

	worker, err := s.getWorker(s.getBrainID(r))
	if err != nil {
		s.writeWorkerError(w, err)
		return
	}

	result, err := worker.Submit(r.Context(), &concurrency.Operation{Type: concurrency.OpStats})
	if err != nil {
		s.writeOperationError(w, err)
		return
	}

	json.NewEncoder(w).Encode(result)
}

type registryRequestDTO struct {
	BrainID  string         `json:"brainId"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) handleRegistryFindOrCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		apierr.MethodNotAllowed(w)
		return
	}

	var dto registryRequestDTO
	if !s.decodeJSONRequest(w, r, &dto) {
		return
	}
	if strings.TrimSpace(dto.BrainID) == "" {
		apierr.UUIDRequired(w)
		return
	}

	entry, created, err := s.registry.FindOrCreate(core.BrainID(dto.BrainID), dto.Metadata)
	if err != nil {
		apierr.Internal(w, err.Error())
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"brainId":   entry.BrainID,
		"metadata":  entry.Metadata,
		"created":   created,
		"createdAt": entry.CreatedAt,
		"updatedAt": entry.UpdatedAt,
	})
}

func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	brainID := strings.TrimPrefix(r.URL.Path, "/v1/registry/")

	switch r.Method {
	case "GET":
		if brainID == "" || brainID == "/v1/registry" {
			json.NewEncoder(w).Encode(map[string]any{"entries": s.registry.List(), "count": s.registry.Count()})
			return
		}
		entry, ok := s.registry.Get(core.BrainID(brainID))
		if !ok {
			apierr.NotFound(w, apierr.CodeUUIDNotFound, "brain id not registered")
			return
		}
		json.NewEncoder(w).Encode(entry)

	case "POST":
		var dto registryRequestDTO
		if !s.decodeJSONRequest(w, r, &dto) {
			return
		}
		if strings.TrimSpace(dto.BrainID) == "" {
			apierr.UUIDRequired(w)
			return
		}
		entry, err := s.registry.Create(core.BrainID(dto.BrainID), dto.Metadata)
		if err != nil {
			apierr.Conflict(w, apierr.CodeUUIDConflict, err.Error())
			return
		}
		json.NewEncoder(w).Encode(entry)

	case "DELETE":
		if brainID == "" {
			apierr.UUIDRequired(w)
			return
		}
		if err := s.registry.Delete(core.BrainID(brainID)); err != nil {
			apierr.NotFound(w, apierr.CodeUUIDNotFound, err.Error())
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "deleted"})

	default:
		apierr.MethodNotAllowed(w)
	}
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok {
		w.Header().Set("WWW-Authenticate", `Basic realm="neuralmemory admin"`)
		apierr.Unauthorized(w, "admin authentication required")
		return
	}
	userHash := sha256.Sum256([]byte(user))
	passHash := sha256.Sum256([]byte(pass))
	expectedUserHash := sha256.Sum256([]byte(s.config.Admin.User))
	expectedPassHash := sha256.Sum256([]byte(s.config.Admin.Password))

	userMatch := subtle.ConstantTimeCompare(userHash[:], expectedUserHash[:]) == 1
	passMatch := subtle.ConstantTimeCompare(passHash[:], expectedPassHash[:]) == 1

	if !userMatch || !passMatch {
		apierr.Unauthorized(w, "invalid admin credentials")
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"status": "authenticated"})
}

func (s *Server) handleAdminIndexes(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]any{
		"indexes": s.pool.ListIndexes(),
		"stats":   s.pool.Stats(),
	})
}

func (s *Server) handleAdminIndexOps(w http.ResponseWriter, r *http.Request) {
	brainID := core.IndexID(strings.TrimPrefix(r.URL.Path, "/admin/indexes/"))
	if brainID == "" {
		apierr.IndexIDRequired(w)
		return
	}

	switch r.Method {
	case "DELETE":
		if err := s.pool.Evict(brainID); err != nil {
			apierr.Internal(w, err.Error())
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "evicted"})
	case "PUT":
		if err := s.pool.Truncate(brainID); err != nil {
			apierr.Internal(w, err.Error())
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "truncated"})
	default:
		apierr.MethodNotAllowed(w)
	}
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(s.config)
}

type daemonIntervalsDTO struct {
	DecayInterval       string `json:"decayInterval"`
	ConsolidateInterval string `json:"consolidateInterval"`
	PersistInterval     string `json:"persistInterval"`
}

func (s *Server) handleAdminDaemons(w http.ResponseWriter, r *http.Request) {
	if s.daemons == nil {
		apierr.NotFound(w, apierr.CodeNotFound, "no daemon manager bound")
		return
	}

	switch r.Method {
	case "GET":
		json.NewEncoder(w).Encode(s.daemons.Stats())
	case "PUT":
		var dto daemonIntervalsDTO
		if !s.decodeJSONRequest(w, r, &dto) {
			return
		}
		decay, err := time.ParseDuration(dto.DecayInterval)
		if err != nil {
			apierr.BadRequest(w, apierr.CodeBadRequest, "invalid decayInterval")
			return
		}
		consolidate, err := time.ParseDuration(dto.ConsolidateInterval)
		if err != nil {
			apierr.BadRequest(w, apierr.CodeBadRequest, "invalid consolidateInterval")
			return
		}
		persist, err := time.ParseDuration(dto.PersistInterval)
		if err != nil {
			apierr.BadRequest(w, apierr.CodeBadRequest, "invalid persistInterval")
			return
		}
		s.daemons.SetIntervals(decay, consolidate, persist)
		json.NewEncoder(w).Encode(s.daemons.Stats())
	default:
		apierr.MethodNotAllowed(w)
	}
}

func (s *Server) handleAdminPersist(w http.ResponseWriter, r *http.Request) {
	if err := s.pool.PersistAll(); err != nil {
		apierr.Internal(w, err.Error())
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"status": "persisted"})
}
