package sign

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what a job renders on the sign.
type Kind string

const (
	// KindJT plays a stored .jt animation payload.
	KindJT Kind = "jt"
	// KindText renders a text message.
	KindText Kind = "text"
)

// TextSpec describes a text message and its rendering options. Zero values
// defer to the sign's own defaults.
type TextSpec struct {
	Text       string
	Color      string
	Background string
	Speed      int
	Brightness int
}

// Result is the outcome of one dispatched job. Exactly one Result is
// produced per job, whether the send succeeded, failed, or the worker was
// stopped with the job still queued.
type Result struct {
	OK      bool
	Kind    Kind
	Name    string
	Path    string
	Output  string
	Error   string
	Elapsed time.Duration
}

// Job is one queued command with a write-once result slot.
type Job struct {
	ID         string
	Kind       Kind
	Name       string
	Path       string
	Text       TextSpec
	EnqueuedAt time.Time

	once sync.Once
	done chan Result
}

func newJob(kind Kind, name string) *Job {
	return &Job{
		ID:         uuid.NewString(),
		Kind:       kind,
		Name:       name,
		EnqueuedAt: time.Now(),
		done:       make(chan Result, 1),
	}
}

// resolve publishes the job result. Only the first call wins, so a job can
// never resolve twice.
func (j *Job) resolve(res Result) {
	j.once.Do(func() {
		j.done <- res
	})
}

// wait blocks until the job resolves or ctx ends. An abandoned job still
// resolves later; its result is simply dropped.
func (j *Job) wait(ctx context.Context) (Result, error) {
	select {
	case res := <-j.done:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (j *Job) failedResult(reason error) Result {
	return Result{
		OK:    false,
		Kind:  j.Kind,
		Name:  j.Name,
		Path:  j.Path,
		Error: reason.Error(),
	}
}
