// Package worker runs the single background job (crawl, scrape or build) and
// rate limits requests per host.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"
)

var (
	// ErrJobInFlight is returned when a job is started while another one runs
	ErrJobInFlight = errors.New("a job is already running")
	// ErrLocked is returned when another process holds the job lock
	ErrLocked = errors.New("job lock held by another process")
	// ErrNoJob is returned by Wait when nothing was started
	ErrNoJob = errors.New("no job started")
)

// Job is a unit of background work. It must return promptly once ctx is done.
type Job func(ctx context.Context) error

// Runner executes at most one job at a time. With a lock path it also holds an
// advisory file lock for the duration of the job, so two processes cannot work
// on the same data directory.
type Runner struct {
	lockPath string

	mu     sync.Mutex
	name   string
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewRunner creates a runner; an empty lockPath disables the cross-process lock
func NewRunner(lockPath string) *Runner {
	return &Runner{lockPath: lockPath}
}

// Start launches job in the background
func (r *Runner) Start(parent context.Context, name string, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running() {
		return fmt.Errorf("start %s: %w (%s)", name, ErrJobInFlight, r.name)
	}

	fileLock, err := r.acquire()
	if err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	r.name, r.cancel, r.done, r.err = name, cancel, done, nil

	go func() {
		defer close(done)
		defer cancel()

		err := job(ctx)
		if fileLock != nil {
			if uerr := fileLock.Unlock(); uerr != nil {
				log.Warn().Err(uerr).Str("lock", r.lockPath).Msg("Failed to release job lock")
			}
		}

		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
	}()

	log.Debug().Str("job", name).Msg("Job started")
	return nil
}

func (r *Runner) acquire() (*flock.Flock, error) {
	if r.lockPath == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(r.lockPath), 0755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	fileLock := flock.New(r.lockPath)
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", r.lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", r.lockPath, ErrLocked)
	}
	return fileLock, nil
}

// running reports whether a job is in flight; callers hold r.mu
func (r *Runner) running() bool {
	if r.done == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

// Running returns the name of the job in flight
func (r *Runner) Running() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running() {
		return "", false
	}
	return r.name, true
}

// Stop requests cancellation of the current job. The job stops at its next
// checkpoint; Stop does not wait for it.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// Wait blocks until the current (or last) job finishes and returns its error
func (r *Runner) Wait() error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()

	if done == nil {
		return ErrNoJob
	}
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Run starts job and waits for it
func (r *Runner) Run(ctx context.Context, name string, job Job) error {
	if err := r.Start(ctx, name, job); err != nil {
		return err
	}
	return r.Wait()
}
