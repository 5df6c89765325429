package engine

import (
	"os"
	"path/filepath"

	"github.com/marmos91/mirrord/internal/logger"
	"github.com/marmos91/mirrord/pkg/checksum"
)

// applyEventLocked applies a single change event to one volume. Caller holds
// e.mu and has already resolved rel (and relNew for moves) under the source
// tree.
func (e *Engine) applyEventLocked(volume string, ev ChangeEvent, rel, relNew string, pass *PassResult) {
	switch ev.Kind {
	case Created, Modified:
		e.applyUpsert(volume, rel, pass)
	case Deleted:
		e.applyDelete(volume, rel, pass)
	case Moved:
		e.applyMove(volume, rel, relNew, pass)
	}
}

// applyUpsert handles created/modified paths. The source is re-stated at
// apply time rather than trusting the event kind: bursty notification
// sources deliver events late and out of order, so the filesystem is the
// authority on what the path currently is.
func (e *Engine) applyUpsert(volume, rel string, pass *PassResult) {
	src := filepath.Join(e.source, rel)

	info, err := os.Stat(src)
	if err != nil {
		// The path is already gone again. Treat it as a delete so the
		// mirror does not keep content the source has dropped.
		e.applyDelete(volume, rel, pass)
		return
	}

	dst := e.destPath(volume, rel)

	if info.IsDir() {
		if _, statErr := os.Stat(dst); statErr != nil {
			// Whole directory is new to this mirror: constrained copy of
			// the entire subtree, admitted whole or skipped whole.
			e.copyDirConstrained(volume, rel, pass)
			return
		}
		// Directory already mirrored: apply copy-phase semantics to it.
		e.copySubtreePhase(volume, rel, pass)
		return
	}

	if parentErr := os.MkdirAll(filepath.Dir(dst), 0755); parentErr != nil {
		e.record(pass, OpResult{Op: OpMkdir, Volume: volume, RelPath: rel, Status: StatusFailed, Err: parentErr})
		return
	}

	if checksum.ContentEqual(src, dst) {
		logger.Debug("content unchanged: %s on %s", rel, volume)
		return
	}
	e.copyFileOp(volume, rel, pass)
}

// applyDelete removes the mirror counterpart of rel, if present. Files are
// removed directly, directories recursively.
func (e *Engine) applyDelete(volume, rel string, pass *PassResult) {
	dst := e.destPath(volume, rel)

	if _, err := os.Stat(dst); err != nil {
		return // nothing mirrored for this path
	}

	if err := os.RemoveAll(dst); err != nil {
		e.record(pass, OpResult{Op: OpDelete, Volume: volume, RelPath: rel, Status: StatusFailed, Err: err})
		return
	}
	e.record(pass, OpResult{Op: OpDelete, Volume: volume, RelPath: rel, Status: StatusSucceeded})
}

// applyMove renames the mirrored old path to the new relative path on the
// same volume - no data re-copy and no space check beyond creating the
// destination's parent directory. If the old path was never mirrored, the
// new path is treated as a fresh creation instead.
func (e *Engine) applyMove(volume, relOld, relNew string, pass *PassResult) {
	oldDst := e.destPath(volume, relOld)
	newDst := e.destPath(volume, relNew)

	if _, err := os.Stat(oldDst); err != nil {
		e.applyUpsert(volume, relNew, pass)
		return
	}

	if err := os.MkdirAll(filepath.Dir(newDst), 0755); err != nil {
		e.record(pass, OpResult{Op: OpRename, Volume: volume, RelPath: relNew, Status: StatusFailed, Err: err})
		return
	}

	if err := os.Rename(oldDst, newDst); err != nil {
		e.record(pass, OpResult{Op: OpRename, Volume: volume, RelPath: relNew, Status: StatusFailed, Err: err})
		return
	}
	e.record(pass, OpResult{Op: OpRename, Volume: volume, RelPath: relNew, Status: StatusSucceeded})
}

// copySubtreePhase applies copy-phase semantics to one source subtree:
// every path below rel that is missing on the mirror or differs in content
// is copied, subject to space admission.
func (e *Engine) copySubtreePhase(volume, rel string, pass *PassResult) {
	srcDir := filepath.Join(e.source, rel)

	err := filepath.WalkDir(srcDir, walkUpsert(e, volume, pass))
	if err != nil {
		e.record(pass, OpResult{Op: OpCopyDir, Volume: volume, RelPath: rel, Status: StatusFailed, Err: err})
	}
}

// walkUpsert returns a WalkDir callback implementing copy-phase semantics
// rooted anywhere in the source tree.
func walkUpsert(e *Engine, volume string, pass *PassResult) func(string, os.DirEntry, error) error {
	return func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(e.source, path)
		if relErr != nil || rel == "." {
			return nil
		}
		dst := e.destPath(volume, rel)

		if d.IsDir() {
			if _, statErr := os.Stat(dst); statErr == nil {
				return nil
			}
			e.copyDirConstrained(volume, rel, pass)
			return filepath.SkipDir
		}

		if !checksum.ContentEqual(path, dst) {
			e.copyFileOp(volume, rel, pass)
		}
		return nil
	}
}
