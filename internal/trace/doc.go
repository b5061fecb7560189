// Package trace records timing spans for hint generation.
//
// Spans cover CLI runs, engine stages (canonicalize, diff, search, individualize),
// individual submissions of a batch and, at the finest level, single canonical passes
// and search candidates.
//
//	hintgen hint --trace=- --trace-level=detail --problem sum code.py
//
// # Tracers
//
//   - Nop: no-op tracer used when tracing is disabled
//   - StreamTracer: writes every event immediately
//   - RingTracer: keeps the last N events for dumping after a failure
//   - MultiTracer: fan-out
//
// # Levels
//
//   - LevelOff: nothing
//   - LevelError: ring only, dumped on failure
//   - LevelPhase: runs and stages
//   - LevelDetail: plus submissions
//   - LevelDebug: plus passes and candidates
//
// Tracers travel through the engine in the context:
//
//	ctx = trace.WithTracer(ctx, tr)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeStage, "canonicalize", 0)
//	defer span.End("")
package trace
