package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lam-tt/neural-memory/pkg/api/apierr"
	"github.com/lam-tt/neural-memory/pkg/concurrency"
	"github.com/lam-tt/neural-memory/pkg/consolidation"
	"github.com/lam-tt/neural-memory/pkg/core"
	"github.com/lam-tt/neural-memory/pkg/persistence"
)

// mcpBackend adapts Server to pkg/mcp.Backend, routing each MCP tool
// call through the same BrainWorker operations the REST handlers use.
type mcpBackend struct {
	server *Server
}

func newMCPBackend(s *Server) *mcpBackend {
	return &mcpBackend{server: s}
}

func (b *mcpBackend) Encode(ctx context.Context, brainID, content, memoryType string, tags []string, metadata map[string]any) (map[string]any, error) {
	worker, err := b.getWorker(brainID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("content is required")
	}
	if memoryType == "" {
		memoryType = "fact"
	}

	result, err := worker.Submit(ctx, &concurrency.Operation{
		Type: concurrency.OpEncode,
		Payload: encoderRequest(encodeRequestDTO{
			Content:    content,
			MemoryType: memoryType,
			Tags:       tags,
			Metadata:   metadata,
		}, time.Now()),
	})
	if err != nil {
		return nil, err
	}
	return toMap(result)
}

func (b *mcpBackend) Query(ctx context.Context, brainID, query string) (map[string]any, error) {
	worker, err := b.getWorker(brainID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}

	result, err := worker.Submit(ctx, &concurrency.Operation{Type: concurrency.OpQuery, Payload: queryRequest(query, time.Now())})
	if err != nil {
		return nil, err
	}
	return toMap(result)
}

func (b *mcpBackend) ListNeurons(ctx context.Context, brainID string, offset, limit int, typeFilter string) (map[string]any, error) {
	worker, err := b.getWorker(brainID)
	if err != nil {
		return nil, err
	}

	limit = clampPositive(limit, defaultListLimit, maxListLimit)
	req := concurrency.ListNeuronsRequest{Offset: offset, Limit: limit}
	if typeFilter != "" {
		nt := core.NeuronType(strings.ToUpper(typeFilter))
		req.TypeFilter = &nt
	}

	result, err := worker.Submit(ctx, &concurrency.Operation{Type: concurrency.OpListNeurons, Payload: req})
	if err != nil {
		return nil, err
	}
	return toMap(result)
}

func (b *mcpBackend) GetFiber(ctx context.Context, brainID, fiberID string) (map[string]any, error) {
	worker, err := b.getWorker(brainID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(fiberID) == "" {
		return nil, fmt.Errorf("fiber_id is required")
	}

	result, err := worker.Submit(ctx, &concurrency.Operation{Type: concurrency.OpGetFiber, Payload: core.FiberID(fiberID)})
	if err != nil {
		return nil, err
	}
	return toMap(result)
}

func (b *mcpBackend) Decay(ctx context.Context, brainID string) (map[string]any, error) {
	worker, err := b.getWorker(brainID)
	if err != nil {
		return nil, err
	}

	result, err := worker.Submit(ctx, &concurrency.Operation{Type: concurrency.OpDecay, Payload: time.Now()})
	if err != nil {
		return nil, err
	}
	return toMap(result)
}

func (b *mcpBackend) Consolidate(ctx context.Context, brainID, strategy string, dryRun bool) (map[string]any, error) {
	worker, err := b.getWorker(brainID)
	if err != nil {
		return nil, err
	}

	result, err := worker.Submit(ctx, &concurrency.Operation{
		Type: concurrency.OpConsolidate,
		Payload: concurrency.ConsolidateRequest{
			Strategy: consolidation.Strategy(strings.ToUpper(strategy)),
			DryRun:   dryRun,
			Now:      time.Now(),
		},
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"reports": result}, nil
}

func (b *mcpBackend) Export(ctx context.Context, brainID string) (map[string]any, error) {
	worker, err := b.getWorker(brainID)
	if err != nil {
		return nil, err
	}

	result, err := worker.Submit(ctx, &concurrency.Operation{Type: concurrency.OpExport, Payload: time.Now()})
	if err != nil {
		return nil, err
	}
	return toMap(result)
}

func (b *mcpBackend) Import(ctx context.Context, brainID string, snapshot map[string]any) (map[string]any, error) {
	worker, err := b.getWorker(brainID)
	if err != nil {
		return nil, err
	}

	blob, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}
	snap, err := persistence.UnmarshalSnapshotJSON(blob)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}

	if _, err := worker.Submit(ctx, &concurrency.Operation{Type: concurrency.OpImport, Payload: snap}); err != nil {
		return nil, err
	}
	return map[string]any{"status": "imported"}, nil
}

func (b *mcpBackend) Stats(ctx context.Context, brainID string) (map[string]any, error) {
	worker, err := b.getWorker(brainID)
	if err != nil {
		return nil, err
	}

	result, err := worker.Submit(ctx, &concurrency.Operation{Type: concurrency.OpStats})
	if err != nil {
		return nil, err
	}
	return toMap(result)
}

func (b *mcpBackend) Health(_ context.Context) (map[string]any, error) {
	return map[string]any{
		"status":       "healthy",
		"timestamp":    time.Now(),
		"activeBrains": b.server.pool.ActiveCount(),
	}, nil
}

func (b *mcpBackend) getWorker(brainID string) (*concurrency.BrainWorker, error) {
	worker, err := b.server.getWorker(core.IndexID(brainID))
	if err != nil {
		msg := err.Error()
		switch {
		case strings.HasPrefix(msg, apierr.CodeIndexIDRequired):
			return nil, fmt.Errorf("brain_id is required")
		case strings.HasPrefix(msg, apierr.CodeUUIDNotRegistered):
			return nil, fmt.Errorf(msg)
		default:
			return nil, err
		}
	}
	return worker, nil
}

// toMap round-trips v through JSON so every MCP tool result is a
// plain map[string]any regardless of the worker operation's concrete
// return type.
func toMap(v any) (map[string]any, error) {
	if v == nil {
		return map[string]any{}, nil
	}
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	blob, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(blob, &m); err != nil {
		return nil, err
	}
	return m, nil
}
