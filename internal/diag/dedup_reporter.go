package diag

import "sync"

type dedupKey struct {
	code Code
	sev  Severity
	at   Loc
	msg  string
}

// DedupReporter wraps another Reporter and suppresses repeats of the same
// code, severity, location and message. The fixed-point canonicalizer revisits
// the same node many times, so repeats are common.
type DedupReporter struct {
	mu   sync.Mutex
	next Reporter
	seen map[dedupKey]struct{}
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[dedupKey]struct{})}
}

func (r *DedupReporter) Report(code Code, sev Severity, primary Loc, msg string, notes []Note) {
	if r == nil {
		return
	}
	key := dedupKey{code: code, sev: sev, at: primary, msg: msg}
	r.mu.Lock()
	if _, ok := r.seen[key]; ok {
		r.mu.Unlock()
		return
	}
	r.seen[key] = struct{}{}
	r.mu.Unlock()
	if r.next != nil {
		r.next.Report(code, sev, primary, msg, notes)
	}
}
