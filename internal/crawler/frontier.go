package crawler

import "sync"

// Frontier is the shared crawl state: the double-ended URL queue, the
// write-once visited set, and the append-only flag list. One mutex
// guards all three, so every mutation a worker can make is atomic with
// respect to the others. Workers never touch the containers directly.
//
// Ordering: normal discovery appends to the tail and PopForVisit also
// takes from the tail, so newly found links are served LIFO. Redirect
// targets and retries insert at the head and therefore drain only after
// the discovery tail empties. That asymmetry is deliberate and tested.
type Frontier struct {
	mu sync.Mutex

	// queue index 0 is the head; the last element is the tail.
	queue   []string
	visited map[string]bool

	flags      []string
	flagSeen   map[string]bool
	flagTarget int

	// onFlag is invoked for each newly recorded flag, in discovery
	// order, with the running flag count. It runs while the frontier
	// lock is held so emission order matches storage order; callbacks
	// must not call back into the Frontier. May be nil.
	onFlag func(flag string, total int)
}

// NewFrontier creates a Frontier that stops accepting flags once
// flagTarget have been recorded. onFlag, if non-nil, is called for each
// new flag as it is found.
func NewFrontier(flagTarget int, onFlag func(flag string, total int)) *Frontier {
	return &Frontier{
		queue:      make([]string, 0),
		visited:    make(map[string]bool),
		flags:      make([]string, 0),
		flagSeen:   make(map[string]bool),
		flagTarget: flagTarget,
		onFlag:     onFlag,
	}
}

// PushBack appends url at the tail unless it was already visited or is
// already queued. This is the normal-discovery insert; the dedup keeps
// the queue bounded by the number of distinct in-scope links.
func (f *Frontier) PushBack(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.visited[url] || f.queuedLocked(url) {
		return
	}
	f.queue = append(f.queue, url)
}

// PushFront inserts url at the head unconditionally. Only redirect
// targets and 503 re-attempts use it: both must bypass the visited
// dedup, since a visited URL that redirected must be re-fetchable at
// its new address and a transient failure must be retryable.
func (f *Frontier) PushFront(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queue = append([]string{url}, f.queue...)
}

// PopForVisit removes and returns one URL from the tail. The second
// return is false when the queue is empty.
func (f *Frontier) PopForVisit() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return "", false
	}
	url := f.queue[len(f.queue)-1]
	f.queue = f.queue[:len(f.queue)-1]
	return url, true
}

// MarkVisited adds url to the visited set. Idempotent. If the URL is
// still queued it is removed, so nothing sits in both containers.
func (f *Frontier) MarkVisited(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.visited[url] = true
	for i, queued := range f.queue {
		if queued == url {
			f.queue = append(f.queue[:i], f.queue[i+1:]...)
			break
		}
	}
}

// Visited reports whether url has been marked visited.
func (f *Frontier) Visited(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited[url]
}

// AddFlag records a newly discovered flag. Duplicates and flags found
// after the target was met are dropped. Returns true when the flag was
// recorded; the onFlag callback fires exactly then.
func (f *Frontier) AddFlag(flag string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.flagSeen[flag] || len(f.flags) >= f.flagTarget {
		return false
	}
	f.flagSeen[flag] = true
	f.flags = append(f.flags, flag)
	if f.onFlag != nil {
		f.onFlag(flag, len(f.flags))
	}
	return true
}

// TargetMet reports whether the flag target has been reached.
func (f *Frontier) TargetMet() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.flags) >= f.flagTarget
}

// Flags returns a copy of the collected flags in discovery order.
func (f *Frontier) Flags() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.flags))
	copy(out, f.flags)
	return out
}

// Stats is a consistent snapshot of the frontier counters.
type Stats struct {
	Flags   int
	Visited int
	Queued  int
}

// Snapshot returns all three counters under one lock acquisition, so a
// progress line cannot mix values from different moments.
func (f *Frontier) Snapshot() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Stats{
		Flags:   len(f.flags),
		Visited: len(f.visited),
		Queued:  len(f.queue),
	}
}

// queuedLocked reports queue membership. Caller holds f.mu. The linear
// scan is fine: the queue is bounded by the site's distinct in-scope
// links, which is small.
func (f *Frontier) queuedLocked(url string) bool {
	for _, queued := range f.queue {
		if queued == url {
			return true
		}
	}
	return false
}
