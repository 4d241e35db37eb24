// Package chatguard routes a user's chat turn through a safety-gated
// two-stage pipeline and maintains durable per-user conversation state.
//
// Each turn flows through a fixed graph: a safety classifier that may
// short-circuit the turn with a canned refusal, then a domain responder
// that produces the reply, optionally streamed back incrementally. A
// rejected turn never reaches the responder, and exactly one assistant
// message is appended per turn regardless of path.
//
// Construct a Service explicitly with its dependencies (thread store,
// model client, audit recorder) and close the resources you opened when
// done; there is no package-level singleton.
package chatguard
