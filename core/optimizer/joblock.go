package optimizer

import "sync"

// jobLocks serializes engine mutations per job: data-parallel workers
// of one job reporting near-simultaneously queue up on the same lock,
// while unrelated jobs proceed without contention. Entries are created
// lazily on first access and reclaimed once a job reaches a terminal
// state and its last waiter leaves.
type jobLocks struct {
	mu    sync.Mutex
	locks map[string]*jobLock
}

type jobLock struct {
	mu       sync.Mutex
	refs     int
	terminal bool
}

func newJobLocks() *jobLocks {
	return &jobLocks{locks: make(map[string]*jobLock)}
}

// acquire blocks until the caller holds the per-job lock
func (l *jobLocks) acquire(jobID string) *jobLock {
	l.mu.Lock()
	lk, ok := l.locks[jobID]
	if !ok {
		lk = &jobLock{}
		l.locks[jobID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return lk
}

// release drops the per-job lock. terminal marks the job as done so
// the entry can be removed once no goroutine still holds a reference.
func (l *jobLocks) release(jobID string, lk *jobLock, terminal bool) {
	lk.mu.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if terminal {
		lk.terminal = true
	}
	lk.refs--
	if lk.refs == 0 && lk.terminal {
		delete(l.locks, jobID)
	}
}
