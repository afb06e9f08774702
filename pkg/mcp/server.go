package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	mcpproto "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

const (
	toolEncode      = "neuralmemory_encode"
	toolQuery       = "neuralmemory_query"
	toolListNeurons = "neuralmemory_list_neurons"
	toolGetFiber    = "neuralmemory_get_fiber"
	toolDecay       = "neuralmemory_decay"
	toolConsolidate = "neuralmemory_consolidate"
	toolExport      = "neuralmemory_export"
	toolImport      = "neuralmemory_import"
	toolStats       = "neuralmemory_stats"
	toolHealth      = "neuralmemory_health"
)

// Config controls MCP route behavior.
type Config struct {
	APIKey         string
	Stateless      bool
	RateLimitRPS   float64
	RateLimitBurst int
	EnablePrompts  bool
	AllowedTools   []string
}

// Backend is the minimal capability contract exposed to MCP tools: the
// ten public brain operations, each scoped to an agent-supplied brain
// id (spec.md §6).
type Backend interface {
	Encode(ctx context.Context, brainID, content, memoryType string, tags []string, metadata map[string]any) (map[string]any, error)
	Query(ctx context.Context, brainID, query string) (map[string]any, error)
	ListNeurons(ctx context.Context, brainID string, offset, limit int, typeFilter string) (map[string]any, error)
	GetFiber(ctx context.Context, brainID, fiberID string) (map[string]any, error)
	Decay(ctx context.Context, brainID string) (map[string]any, error)
	Consolidate(ctx context.Context, brainID, strategy string, dryRun bool) (map[string]any, error)
	Export(ctx context.Context, brainID string) (map[string]any, error)
	Import(ctx context.Context, brainID string, snapshot map[string]any) (map[string]any, error)
	Stats(ctx context.Context, brainID string) (map[string]any, error)
	Health(ctx context.Context) (map[string]any, error)
}

// NewHandler builds an MCP streamable HTTP handler with optional API-key auth
// and endpoint-local rate limiting.
func NewHandler(cfg Config, backend Backend) (http.Handler, error) {
	if backend == nil {
		return nil, fmt.Errorf("mcp backend is required")
	}

	s := mcpserver.NewMCPServer(
		"neuralmemory-mcp",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(cfg.EnablePrompts),
		mcpserver.WithRecovery(),
	)

	registerTools(s, backend, cfg.AllowedTools)
	if cfg.EnablePrompts {
		registerPrompts(s)
	}

	streamable := mcpserver.NewStreamableHTTPServer(s, mcpserver.WithStateLess(cfg.Stateless))
	var h http.Handler = http.HandlerFunc(streamable.ServeHTTP)

	if strings.TrimSpace(cfg.APIKey) != "" {
		h = apiKeyMiddleware(strings.TrimSpace(cfg.APIKey), h)
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst > 0 {
		h = rateLimitMiddleware(newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst), h)
	}

	return h, nil
}

func registerTools(s *mcpserver.MCPServer, backend Backend, allowed []string) {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		name = strings.TrimSpace(name)
		if name != "" {
			allowedSet[name] = struct{}{}
		}
	}
	isAllowed := func(name string) bool {
		if len(allowedSet) == 0 {
			return true
		}
		_, ok := allowedSet[name]
		return ok
	}

	if isAllowed(toolEncode) {
		s.AddTool(mcpproto.NewTool(toolEncode,
			mcpproto.WithDescription("Encode a memory: extract neurons/synapses/a fiber from raw text and commit them to a brain."),
			mcpproto.WithString("brain_id", mcpproto.Required(), mcpproto.Description("Brain id (X-Brain-ID equivalent).")),
			mcpproto.WithString("content", mcpproto.Required(), mcpproto.Description("Memory content to encode.")),
			mcpproto.WithString("memory_type", mcpproto.Description("fact|decision|todo|context|instruction|reference (optional, default fact).")),
			mcpproto.WithString("tags", mcpproto.Description("Optional JSON array of agent-supplied tags.")),
			mcpproto.WithString("metadata", mcpproto.Description("Optional JSON object of metadata.")),
		), func(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
			args := req.GetArguments()
			brainID := getString(args, "brain_id", "")
			content := getString(args, "content", "")
			if brainID == "" {
				return errResult("brain_id is required"), nil
			}
			if strings.TrimSpace(content) == "" {
				return errResult("content is required"), nil
			}
			memoryType := getString(args, "memory_type", "fact")
			var tags []string
			if raw := getString(args, "tags", ""); raw != "" {
				if err := json.Unmarshal([]byte(raw), &tags); err != nil {
					return errResult("tags must be a valid JSON array of strings"), nil
				}
			}
			var metadata map[string]any
			if raw := getString(args, "metadata", ""); raw != "" {
				if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
					return errResult("metadata must be a valid JSON object"), nil
				}
			}
			result, err := backend.Encode(ctx, brainID, content, memoryType, tags, metadata)
			if err != nil {
				return errResult(err.Error()), nil
			}
			return structuredResult("memory encoded", result)
		})
	}

	if isAllowed(toolQuery) {
		s.AddTool(mcpproto.NewTool(toolQuery,
			mcpproto.WithDescription("Query a brain: spread activation from a cue and reconstruct an answer."),
			mcpproto.WithString("brain_id", mcpproto.Required(), mcpproto.Description("Brain id.")),
			mcpproto.WithString("query", mcpproto.Required(), mcpproto.Description("Query text.")),
		), func(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
			args := req.GetArguments()
			brainID := getString(args, "brain_id", "")
			query := getString(args, "query", "")
			if brainID == "" || strings.TrimSpace(query) == "" {
				return errResult("brain_id and query are required"), nil
			}
			result, err := backend.Query(ctx, brainID, query)
			if err != nil {
				return errResult(err.Error()), nil
			}
			return structuredResult("query completed", result)
		})
	}

	if isAllowed(toolListNeurons) {
		s.AddTool(mcpproto.NewTool(toolListNeurons,
			mcpproto.WithDescription("List neurons in a brain, optionally filtered by type."),
			mcpproto.WithString("brain_id", mcpproto.Required(), mcpproto.Description("Brain id.")),
			mcpproto.WithNumber("offset", mcpproto.Description("Pagination offset (optional).")),
			mcpproto.WithNumber("limit", mcpproto.Description("Max neurons to return (optional).")),
			mcpproto.WithString("type", mcpproto.Description("Neuron type filter (optional): TIME|SPATIAL|ENTITY|ACTION|STATE|CONCEPT|SENSORY|INTENT.")),
		), func(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
			args := req.GetArguments()
			brainID := getString(args, "brain_id", "")
			if brainID == "" {
				return errResult("brain_id is required"), nil
			}
			offset := getInt(args, "offset", 0)
			limit := getInt(args, "limit", 100)
			typeFilter := getString(args, "type", "")
			result, err := backend.ListNeurons(ctx, brainID, offset, limit, typeFilter)
			if err != nil {
				return errResult(err.Error()), nil
			}
			return structuredResult("neurons listed", result)
		})
	}

	if isAllowed(toolGetFiber) {
		s.AddTool(mcpproto.NewTool(toolGetFiber,
			mcpproto.WithDescription("Fetch one fiber (a memory's neuron/synapse bundle) and its maturation state."),
			mcpproto.WithString("brain_id", mcpproto.Required(), mcpproto.Description("Brain id.")),
			mcpproto.WithString("fiber_id", mcpproto.Required(), mcpproto.Description("Fiber id.")),
		), func(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
			args := req.GetArguments()
			brainID := getString(args, "brain_id", "")
			fiberID := getString(args, "fiber_id", "")
			if brainID == "" || fiberID == "" {
				return errResult("brain_id and fiber_id are required"), nil
			}
			result, err := backend.GetFiber(ctx, brainID, fiberID)
			if err != nil {
				return errResult(err.Error()), nil
			}
			return structuredResult("fiber fetched", result)
		})
	}

	if isAllowed(toolDecay) {
		s.AddTool(mcpproto.NewTool(toolDecay,
			mcpproto.WithDescription("Run one decay pass over a brain's neurons and synapses."),
			mcpproto.WithString("brain_id", mcpproto.Required(), mcpproto.Description("Brain id.")),
		), func(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
			args := req.GetArguments()
			brainID := getString(args, "brain_id", "")
			if brainID == "" {
				return errResult("brain_id is required"), nil
			}
			result, err := backend.Decay(ctx, brainID)
			if err != nil {
				return errResult(err.Error()), nil
			}
			return structuredResult("decay pass completed", result)
		})
	}

	if isAllowed(toolConsolidate) {
		s.AddTool(mcpproto.NewTool(toolConsolidate,
			mcpproto.WithDescription("Run consolidation strategies (PRUNE, MERGE, SUMMARIZE, MATURE, INFER, ENRICH, DREAM, LEARN_HABITS) over a brain."),
			mcpproto.WithString("brain_id", mcpproto.Required(), mcpproto.Description("Brain id.")),
			mcpproto.WithString("strategy", mcpproto.Description("A single strategy name (optional; omit to run all eight).")),
			mcpproto.WithBoolean("dry_run", mcpproto.Description("If true, compute reports without mutating the brain.")),
		), func(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
			args := req.GetArguments()
			brainID := getString(args, "brain_id", "")
			if brainID == "" {
				return errResult("brain_id is required"), nil
			}
			strategy := getString(args, "strategy", "")
			dryRun := getBool(args, "dry_run", false)
			result, err := backend.Consolidate(ctx, brainID, strategy, dryRun)
			if err != nil {
				return errResult(err.Error()), nil
			}
			return structuredResult("consolidation completed", result)
		})
	}

	if isAllowed(toolExport) {
		s.AddTool(mcpproto.NewTool(toolExport,
			mcpproto.WithDescription("Export a brain's full state as a portable snapshot."),
			mcpproto.WithString("brain_id", mcpproto.Required(), mcpproto.Description("Brain id.")),
		), func(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
			args := req.GetArguments()
			brainID := getString(args, "brain_id", "")
			if brainID == "" {
				return errResult("brain_id is required"), nil
			}
			result, err := backend.Export(ctx, brainID)
			if err != nil {
				return errResult(err.Error()), nil
			}
			return structuredResult("brain exported", result)
		})
	}

	if isAllowed(toolImport) {
		s.AddTool(mcpproto.NewTool(toolImport,
			mcpproto.WithDescription("Import a snapshot produced by neuralmemory_export, replacing the brain's current state."),
			mcpproto.WithString("brain_id", mcpproto.Required(), mcpproto.Description("Brain id.")),
			mcpproto.WithString("snapshot", mcpproto.Required(), mcpproto.Description("JSON snapshot, as returned by neuralmemory_export.")),
		), func(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
			args := req.GetArguments()
			brainID := getString(args, "brain_id", "")
			raw := getString(args, "snapshot", "")
			if brainID == "" || raw == "" {
				return errResult("brain_id and snapshot are required"), nil
			}
			var snapshot map[string]any
			if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
				return errResult("snapshot must be valid JSON"), nil
			}
			result, err := backend.Import(ctx, brainID, snapshot)
			if err != nil {
				return errResult(err.Error()), nil
			}
			return structuredResult("brain imported", result)
		})
	}

	if isAllowed(toolStats) {
		s.AddTool(mcpproto.NewTool(toolStats,
			mcpproto.WithDescription("Return a brain's neuron/synapse/fiber counts and worker stats."),
			mcpproto.WithString("brain_id", mcpproto.Required(), mcpproto.Description("Brain id.")),
		), func(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
			args := req.GetArguments()
			brainID := getString(args, "brain_id", "")
			if brainID == "" {
				return errResult("brain_id is required"), nil
			}
			result, err := backend.Stats(ctx, brainID)
			if err != nil {
				return errResult(err.Error()), nil
			}
			return structuredResult("stats fetched", result)
		})
	}

	if isAllowed(toolHealth) {
		s.AddTool(mcpproto.NewTool(toolHealth,
			mcpproto.WithDescription("Report server health."),
		), func(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
			result, err := backend.Health(ctx)
			if err != nil {
				return errResult(err.Error()), nil
			}
			return structuredResult("healthy", result)
		})
	}
}

func registerPrompts(s *mcpserver.MCPServer) {
	s.AddPrompt(mcpproto.NewPrompt("neuralmemory_recall",
		mcpproto.WithPromptDescription("Generate a memory recall workflow for a cue."),
		mcpproto.WithArgument("brain_id", mcpproto.RequiredArgument(), mcpproto.ArgumentDescription("Brain id.")),
		mcpproto.WithArgument("cue", mcpproto.RequiredArgument(), mcpproto.ArgumentDescription("The current question or cue.")),
	), func(_ context.Context, req mcpproto.GetPromptRequest) (*mcpproto.GetPromptResult, error) {
		brainID := req.Params.Arguments["brain_id"]
		cue := req.Params.Arguments["cue"]
		return &mcpproto.GetPromptResult{
			Description: "NeuralMemory recall workflow",
			Messages: []mcpproto.PromptMessage{
				{
					Role: mcpproto.RoleUser,
					Content: mcpproto.TextContent{
						Type: "text",
						Text: fmt.Sprintf("For brain %q, call neuralmemory_query with cue %q, then summarize the reconstructed answer and cite its confidence.", brainID, cue),
					},
				},
			},
		}, nil
	})
}

func errResult(msg string) *mcpproto.CallToolResult {
	return &mcpproto.CallToolResult{
		Content: []mcpproto.Content{
			mcpproto.TextContent{Type: "text", Text: "Error: " + msg},
		},
		IsError: true,
	}
}

func structuredResult(summary string, data any) (*mcpproto.CallToolResult, error) {
	blob, err := json.Marshal(data)
	if err != nil {
		return errResult(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return &mcpproto.CallToolResult{
		Content: []mcpproto.Content{
			mcpproto.TextContent{Type: "text", Text: summary},
			mcpproto.TextContent{Type: "text", Text: string(blob)},
		},
	}, nil
}

func getString(args map[string]any, key string, def string) string {
	if args == nil {
		return def
	}
	if v, ok := args[key].(string); ok {
		return v
	}
	return def
}

func getInt(args map[string]any, key string, def int) int {
	if args == nil {
		return def
	}
	v, ok := args[key].(float64)
	if !ok {
		return def
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return int(v)
}

func getBool(args map[string]any, key string, def bool) bool {
	if args == nil {
		return def
	}
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

func apiKeyMiddleware(expected string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		provided := strings.TrimSpace(r.Header.Get("X-API-Key"))
		if provided == "" {
			auth := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
				provided = strings.TrimSpace(auth[7:])
			}
		}

		if provided == "" || provided != expected {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type rateLimitEntry struct {
	tokens float64
	last   time.Time
}

type rateLimiter struct {
	rps   float64
	burst float64

	mu      sync.Mutex
	clients map[string]rateLimitEntry
}

func newRateLimiter(rps float64, burst int) *rateLimiter {
	return &rateLimiter{
		rps:     rps,
		burst:   float64(burst),
		clients: make(map[string]rateLimitEntry),
	}
}

func (rl *rateLimiter) allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.clients[key]
	if !ok {
		rl.clients[key] = rateLimitEntry{tokens: rl.burst - 1, last: now}
		return true
	}

	elapsed := now.Sub(entry.last).Seconds()
	entry.tokens = math.Min(rl.burst, entry.tokens+elapsed*rl.rps)
	entry.last = now
	if entry.tokens < 1 {
		rl.clients[key] = entry
		return false
	}
	entry.tokens -= 1
	rl.clients[key] = entry
	return true
}

func rateLimitMiddleware(rl *rateLimiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientAddr(r)
		if !rl.allow(key) {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		parts := strings.Split(fwd, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if strings.TrimSpace(r.RemoteAddr) != "" {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return "unknown"
}
