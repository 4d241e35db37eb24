package chatguard

import (
	"context"
	"strings"

	"github.com/baotvdn/chatguard/pkg/chatguard/graph"
	"github.com/baotvdn/chatguard/pkg/chatguard/observability"
	"github.com/baotvdn/chatguard/pkg/chatguard/state"
)

// Fragment is one unit of a streamed reply. Content fragments carry a
// non-empty Chunk; the final fragment carries Complete=true and no chunk.
type Fragment struct {
	Chunk    string `json:"chunk,omitempty"`
	Complete bool   `json:"complete,omitempty"`
}

// StreamRespond submits a turn and returns a channel of reply fragments.
//
// The user message is persisted before the first fragment is emitted.
// The concatenation of all chunk fragments equals the assistant message
// persisted to the thread, and exactly one assistant message is persisted
// per stream regardless of how much of it the caller consumes: delivery
// runs on a separate forwarding path, so a caller that stops reading,
// with or without canceling ctx, never stalls generation or persistence.
// Canceling ctx releases the forwarder; until then undelivered fragments
// stay queued for a slow consumer.
//
// A rejected turn yields the refusal as a single chunk. A mid-stream
// provider failure yields a final "Error: ..." chunk and persists
// whatever content had accumulated.
//
// Unlike Respond, the safety stage is evaluated directly rather than
// through the compiled pipeline, so streamed turns record no per-node
// checkpoints.
func (s *Service) StreamRespond(ctx context.Context, userID, text string) (<-chan Fragment, error) {
	turn, err := s.beginTurn(ctx, userID, text)
	if err != nil {
		return nil, err
	}

	out := make(chan Fragment)
	relay := make(chan Fragment)
	go s.streamTurn(ctx, userID, turn, relay)
	go forwardFragments(ctx, relay, out)
	return out, nil
}

// streamTurn runs the safety stage synchronously, then bridges the
// responder's chunk stream onto relay while accumulating the reply for
// persistence. It owns closing relay; the forwarder owns the consumer.
func (s *Service) streamTurn(ctx context.Context, userID string, turn state.Turn, relay chan<- Fragment) {
	defer close(relay)

	gctx := graph.NewContext(ctx, graph.WithLogger(s.logger))
	observability.LogTurnStart(s.logger, gctx.RunID(), userID)

	evaluated := s.classifier.Evaluate(gctx, userID, turn)
	if evaluated.Decision == state.DecideHalt {
		refusal, ok := evaluated.Last()
		if !ok {
			return
		}
		relay <- Fragment{Chunk: refusal.Content}
		s.persistReply(ctx, userID, refusal.Content)
		relay <- Fragment{Complete: true}
		return
	}

	// The provider stream is detached from the request context: a consumer
	// that stops reading must not abort generation, or the persisted reply
	// would be truncated.
	chunks, err := s.responder.Stream(context.WithoutCancel(ctx), evaluated.Messages)
	if err != nil {
		msg := "Error: " + err.Error()
		relay <- Fragment{Chunk: msg}
		s.persistReply(ctx, userID, msg)
		relay <- Fragment{Complete: true}
		return
	}

	var reply strings.Builder
	var chunkCount int64

	for chunk := range chunks {
		if chunk.Error != nil {
			msg := "Error: " + chunk.Error.Error()
			reply.WriteString(msg)
			relay <- Fragment{Chunk: msg}
			break
		}
		if chunk.Done {
			break
		}
		if chunk.Content == "" {
			continue
		}
		reply.WriteString(chunk.Content)
		chunkCount++
		relay <- Fragment{Chunk: chunk.Content}
	}

	// Drain anything left after an early break so the producer can exit.
	for range chunks {
	}

	s.metrics.RecordStreamChunks(context.WithoutCancel(ctx), chunkCount)

	s.persistReply(ctx, userID, reply.String())
	relay <- Fragment{Complete: true}
}

// forwardFragments delivers fragments from the bridge to the consumer.
// Receiving from relay is always ready while the bridge is producing, so
// a consumer that reads slowly or not at all never blocks the bridge;
// undelivered fragments queue here until the consumer catches up or ctx
// is canceled, at which point the remainder is discarded.
func forwardFragments(ctx context.Context, relay <-chan Fragment, out chan<- Fragment) {
	defer close(out)

	var pending []Fragment
	for relay != nil || len(pending) > 0 {
		var deliver chan<- Fragment
		var next Fragment
		if len(pending) > 0 {
			deliver = out
			next = pending[0]
		}

		select {
		case f, ok := <-relay:
			if !ok {
				relay = nil
				continue
			}
			pending = append(pending, f)
		case deliver <- next:
			pending = pending[1:]
		case <-ctx.Done():
			if relay != nil {
				for range relay {
				}
			}
			return
		}
	}
}

// persistReply appends the assistant message, detached from the request
// context so a consumer disconnect cannot lose the reply.
func (s *Service) persistReply(ctx context.Context, userID, content string) {
	msg := state.NewMessage(state.RoleAssistant, content)
	if err := s.store.Append(context.WithoutCancel(ctx), userID, msg); err != nil {
		s.logger.Error("failed to persist streamed reply",
			"user_id", userID,
			"error", err)
	}
}
