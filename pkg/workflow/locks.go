package workflow

import "sync"

// jobLocks serializes commit attempts per job. Preview calls never take a
// lock; the optimistic version stamp in the repository is the second line of
// defense across processes.
type jobLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newJobLocks() *jobLocks {
	return &jobLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the given job and returns the release function.
func (l *jobLocks) acquire(jobID string) func() {
	l.mu.Lock()

	lock, ok := l.locks[jobID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[jobID] = lock
	}

	l.mu.Unlock()
	lock.Lock()

	return lock.Unlock
}
