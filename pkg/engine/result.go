package engine

import (
	"time"

	"github.com/google/uuid"
)

// Op identifies the kind of mutation attempted against a mirror volume.
type Op int

const (
	OpCopyFile Op = iota
	OpCopyDir
	OpMkdir
	OpDelete
	OpRename
)

func (o Op) String() string {
	switch o {
	case OpCopyFile:
		return "copy"
	case OpCopyDir:
		return "copy-dir"
	case OpMkdir:
		return "mkdir"
	case OpDelete:
		return "delete"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// OpStatus is the outcome of a single attempted operation.
type OpStatus int

const (
	// StatusSucceeded means the operation completed.
	StatusSucceeded OpStatus = iota
	// StatusFailed means the operation raised an I/O error; the pass
	// continued with the next item.
	StatusFailed
	// StatusSkippedNoSpace means the space guard denied admission and the
	// item was skipped entirely.
	StatusSkippedNoSpace
)

func (s OpStatus) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkippedNoSpace:
		return "skipped-no-space"
	default:
		return "unknown"
	}
}

// OpResult is the typed outcome of one attempted copy/delete/rename against
// one volume. Results are collected into the enclosing PassResult so callers
// and tests can assert on structured outcomes instead of parsing log text.
type OpResult struct {
	Op      Op
	Volume  string
	RelPath string
	Status  OpStatus
	Bytes   uint64
	Err     error
}

// PassResult collects the outcomes of one reconciliation or update pass over
// a single volume.
type PassResult struct {
	ID       uuid.UUID
	Volume   string
	Started  time.Time
	Finished time.Time
	Results  []OpResult
}

func newPass(volume string) *PassResult {
	return &PassResult{
		ID:      uuid.New(),
		Volume:  volume,
		Started: time.Now(),
	}
}

func (p *PassResult) finish() {
	p.Finished = time.Now()
}

// Mutations returns the number of operations that actually changed the
// mirror (succeeded copies, deletes, renames, and directory creations).
// A fully converged pass reports zero mutations.
func (p *PassResult) Mutations() int {
	n := 0
	for _, r := range p.Results {
		if r.Status == StatusSucceeded {
			n++
		}
	}
	return n
}

// Failures returns the per-item I/O failures recorded during the pass.
func (p *PassResult) Failures() []OpResult {
	var out []OpResult
	for _, r := range p.Results {
		if r.Status == StatusFailed {
			out = append(out, r)
		}
	}
	return out
}

// Skipped returns the items denied by the space guard during the pass.
func (p *PassResult) Skipped() []OpResult {
	var out []OpResult
	for _, r := range p.Results {
		if r.Status == StatusSkippedNoSpace {
			out = append(out, r)
		}
	}
	return out
}
