package graph

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/baotvdn/chatguard/pkg/chatguard/observability"
)

// Run executes the graph with the given initial state.
// Returns the final state and any error encountered.
//
// On success, returns the state after the last node executed before END.
// On error, returns the state at the point of failure.
//
// Execution flow:
//  1. Start at the entry point node
//  2. Check for cancellation
//  3. Execute the current node
//  4. Determine the next node (via simple or conditional edge)
//  5. Checkpoint the state if a saver is configured
//  6. Repeat until END is reached or an error occurs
func (cg *CompiledGraph[S]) Run(ctx Context, state S, opts ...RunOption) (result S, runErr error) {
	if ctx == nil {
		return state, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.saver != nil && cfg.threadID == "" {
		return state, ErrThreadIDRequired
	}

	startTime := time.Now()

	current := cg.entryPoint
	iterations := 0
	nodeCount := 0

	defer func() {
		duration := time.Since(startTime)
		durationMs := float64(duration.Milliseconds())
		cfg.metrics.RecordTurn(ctx, runErr == nil, duration)
		if runErr != nil {
			observability.LogTurnError(ctx.Logger(), ctx.RunID(), runErr, durationMs, current)
		} else {
			observability.LogTurnComplete(ctx.Logger(), ctx.RunID(), durationMs, nodeCount)
		}
	}()

	for current != END {
		iterations++
		if iterations > cfg.maxIterations {
			return state, &MaxIterationsError{
				Max:        cfg.maxIterations,
				LastNodeID: current,
				State:      state,
			}
		}

		// Check for cancellation before executing the node.
		select {
		case <-ctx.Done():
			return state, &CancellationError{
				NodeID: current,
				State:  state,
				Cause:  ctx.Err(),
			}
		default:
		}

		observability.LogNodeStart(ctx.Logger(), current)
		nodeStart := time.Now()

		var nodeErr error
		state, nodeErr = cg.executeNode(ctx, current, state)

		nodeDuration := time.Since(nodeStart)
		cfg.metrics.RecordNodeExecution(ctx, current, nodeDuration, nodeErr)

		if nodeErr != nil {
			observability.LogNodeError(ctx.Logger(), current, nodeErr)
			return state, nodeErr
		}
		observability.LogNodeComplete(ctx.Logger(), current, float64(nodeDuration.Milliseconds()))
		nodeCount++

		next, err := cg.nextNode(ctx, state, current)
		if err != nil {
			return state, err
		}

		if cfg.saver != nil {
			if err := saveCheckpoint(ctx, &cfg, current, state); err != nil {
				return state, err
			}
		}

		current = next
	}

	return state, nil
}

// saveCheckpoint serializes the state and persists it through the saver.
// Checkpoint failures are fatal for the turn: no silent data loss.
func saveCheckpoint[S any](ctx Context, cfg *runConfig, nodeID string, state S) error {
	data, err := json.Marshal(state)
	if err != nil {
		return &CheckpointError{NodeID: nodeID, Op: "serialize", Err: err}
	}

	if err := cfg.saver.SaveCheckpoint(ctx, cfg.threadID, nodeID, data); err != nil {
		return &CheckpointError{NodeID: nodeID, Op: "save", Err: err}
	}

	observability.LogCheckpoint(ctx.Logger(), cfg.threadID, nodeID, len(data))
	return nil
}

// executeNode executes a single node with panic recovery.
// Returns the new state and any error (including wrapped panics).
func (cg *CompiledGraph[S]) executeNode(ctx Context, nodeID string, state S) (result S, err error) {
	fn, exists := cg.getNode(nodeID)
	if !exists {
		// Shouldn't happen if compilation was successful.
		return state, &NodeError{
			NodeID: nodeID,
			Op:     "lookup",
			Err:    fmt.Errorf("node not found: %s", nodeID),
		}
	}

	nodeCtx := ctx
	if ec, ok := ctx.(*executionContext); ok {
		nodeCtx = ec.withNodeID(nodeID)
	}

	defer func() {
		if r := recover(); r != nil {
			result = state
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	result, err = fn(nodeCtx, state)
	if err != nil {
		return result, &NodeError{
			NodeID: nodeID,
			Op:     "execute",
			Err:    err,
		}
	}

	return result, nil
}

// nextNode determines the next node to execute.
// Checks conditional edges first, then simple edges.
func (cg *CompiledGraph[S]) nextNode(ctx Context, state S, current string) (string, error) {
	if router, exists := cg.getRouter(current); exists {
		routerCtx := ctx
		if ec, ok := ctx.(*executionContext); ok {
			routerCtx = ec.withNodeID(current)
		}

		next := router(routerCtx, state)

		if next == "" {
			return "", &RouterError{
				FromNode: current,
				Returned: next,
				Err:      ErrInvalidRouterResult,
			}
		}

		if next != END {
			if _, exists := cg.getNode(next); !exists {
				return "", &RouterError{
					FromNode: current,
					Returned: next,
					Err:      ErrRouterTargetNotFound,
				}
			}
		}

		return next, nil
	}

	edges := cg.getEdges(current)
	if len(edges) == 0 {
		// Shouldn't happen if compilation was successful.
		return "", &NodeError{
			NodeID: current,
			Op:     "routing",
			Err:    fmt.Errorf("no outgoing edge from node %s", current),
		}
	}

	// Simple edges take the first target.
	return edges[0], nil
}
