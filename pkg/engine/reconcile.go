package engine

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/marmos91/mirrord/internal/logger"
)

// fullReconcileLocked brings one volume's managed subtree to match the
// source tree. Caller holds e.mu.
//
// If the subtree does not exist yet the volume is seeded with a constrained
// recursive copy. Otherwise a copy phase runs first and a delete phase
// second, so a crash between phases leaves stale extra content rather than
// missing content.
func (e *Engine) fullReconcileLocked(volume string) *PassResult {
	pass := newPass(volume)
	defer func() {
		pass.finish()
		e.metrics.RecordPass(volume, pass.Finished.Sub(pass.Started))
	}()

	dest := filepath.Join(volume, e.subtree)
	logger.Info("full reconciliation started: %s -> %s (pass %s)", e.source, dest, pass.ID)

	if _, err := os.Stat(dest); err != nil {
		if !os.IsNotExist(err) {
			e.record(pass, OpResult{Op: OpMkdir, Volume: volume, RelPath: ".", Status: StatusFailed, Err: err})
			return pass
		}
		if err := os.MkdirAll(dest, 0755); err != nil {
			e.record(pass, OpResult{Op: OpMkdir, Volume: volume, RelPath: ".", Status: StatusFailed, Err: err})
			return pass
		}
		e.seedVolume(volume, pass)
		return pass
	}

	e.copyPhase(volume, pass)
	e.deletePhase(volume, pass)
	return pass
}

// seedVolume performs the constrained recursive copy of the entire source
// tree onto a freshly created managed subtree.
//
// Files at a directory level are copied first; subdirectories follow in
// descending order of their most recent modification time, so that under
// space pressure the most recently touched data is preserved. Every file and
// directory is admitted whole or skipped whole.
func (e *Engine) seedVolume(volume string, pass *PassResult) {
	e.seedDir(volume, ".", pass)
}

// seedDir seeds one directory level: files first, then subdirectories by
// descending mtime. rel is the source-relative path of the directory.
func (e *Engine) seedDir(volume, rel string, pass *PassResult) {
	srcDir := filepath.Join(e.source, rel)

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		e.record(pass, OpResult{Op: OpCopyDir, Volume: volume, RelPath: rel, Status: StatusFailed, Err: err})
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		childRel := filepath.Join(rel, entry.Name())
		e.copyFileOp(volume, childRel, pass)
	}

	for _, name := range subdirsByMtime(srcDir, entries) {
		childRel := filepath.Join(rel, name)
		e.copyDirConstrained(volume, childRel, pass)
	}
}

// copyDirConstrained admits a whole directory subtree against the space
// guard and copies it recursively, or skips it entirely. The admission check
// uses the subtree's total file size; a denied directory is never partially
// copied and the pass continues with the next sibling.
func (e *Engine) copyDirConstrained(volume, rel string, pass *PassResult) {
	srcDir := filepath.Join(e.source, rel)

	size := dirSize(srcDir)
	if !e.guard.HasRoom(volume, size) {
		e.record(pass, OpResult{Op: OpCopyDir, Volume: volume, RelPath: rel, Status: StatusSkippedNoSpace, Bytes: size})
		return
	}

	logger.Debug("copy-dir started: %s on %s (%d bytes)", rel, volume, size)
	e.copyTree(volume, rel, pass)
}

// copyTree copies the directory subtree at rel onto the volume, recording a
// result per file. Per-item failures are logged and do not abort the walk.
func (e *Engine) copyTree(volume, rel string, pass *PassResult) {
	srcDir := filepath.Join(e.source, rel)

	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			e.record(pass, OpResult{Op: OpCopyDir, Volume: volume, RelPath: rel, Status: StatusFailed, Err: err})
			return fs.SkipDir
		}

		childRel, relErr := filepath.Rel(e.source, path)
		if relErr != nil {
			return fs.SkipDir
		}
		dst := e.destPath(volume, childRel)

		if d.IsDir() {
			if err := os.MkdirAll(dst, dirMode(path)); err != nil {
				e.record(pass, OpResult{Op: OpMkdir, Volume: volume, RelPath: childRel, Status: StatusFailed, Err: err})
				return fs.SkipDir
			}
			return nil
		}

		e.copyFileContent(volume, childRel, pass)
		return nil
	})
	if err != nil {
		e.record(pass, OpResult{Op: OpCopyDir, Volume: volume, RelPath: rel, Status: StatusFailed, Err: err})
	}
}

// copyPhase walks the source tree and copies every path that is missing on
// the mirror or whose content differs, subject to space admission. A whole
// directory missing on the mirror is admitted and copied as a unit. Runs
// before the delete phase.
func (e *Engine) copyPhase(volume string, pass *PassResult) {
	err := filepath.WalkDir(e.source, walkUpsert(e, volume, pass))
	if err != nil {
		e.record(pass, OpResult{Op: OpCopyDir, Volume: volume, RelPath: ".", Status: StatusFailed, Err: err})
	}
}

// deletePhase walks the managed subtree and removes every file or directory
// whose corresponding source tree path no longer exists. Directories are
// removed recursively. A directory that still exists in the source is kept
// even if it has become empty.
func (e *Engine) deletePhase(volume string, pass *PassResult) {
	destRoot := filepath.Join(volume, e.subtree)

	err := filepath.WalkDir(destRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil // removed underneath us by our own RemoveAll
			}
			e.record(pass, OpResult{Op: OpDelete, Volume: volume, RelPath: path, Status: StatusFailed, Err: err})
			return nil
		}

		rel, relErr := filepath.Rel(destRoot, path)
		if relErr != nil || rel == "." {
			return nil
		}

		if _, statErr := os.Stat(filepath.Join(e.source, rel)); statErr == nil {
			return nil
		}

		if rmErr := os.RemoveAll(path); rmErr != nil {
			e.record(pass, OpResult{Op: OpDelete, Volume: volume, RelPath: rel, Status: StatusFailed, Err: rmErr})
		} else {
			e.record(pass, OpResult{Op: OpDelete, Volume: volume, RelPath: rel, Status: StatusSucceeded})
		}
		if d.IsDir() {
			return fs.SkipDir
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		e.record(pass, OpResult{Op: OpDelete, Volume: volume, RelPath: ".", Status: StatusFailed, Err: err})
	}
}

// copyFileOp copies one source file to the volume with space admission. The
// parent directory on the mirror is created as needed.
func (e *Engine) copyFileOp(volume, rel string, pass *PassResult) {
	src := filepath.Join(e.source, rel)

	info, err := os.Stat(src)
	if err != nil {
		e.record(pass, OpResult{Op: OpCopyFile, Volume: volume, RelPath: rel, Status: StatusFailed, Err: err})
		return
	}

	if !e.guard.HasRoom(volume, uint64(info.Size())) {
		e.record(pass, OpResult{Op: OpCopyFile, Volume: volume, RelPath: rel, Status: StatusSkippedNoSpace, Bytes: uint64(info.Size())})
		return
	}

	e.copyFileContent(volume, rel, pass)
}

// copyFileContent performs the actual byte copy, preserving mode and mtime.
// No admission check: callers have already admitted the file (individually
// or as part of a whole-directory admission).
func (e *Engine) copyFileContent(volume, rel string, pass *PassResult) {
	src := filepath.Join(e.source, rel)
	dst := e.destPath(volume, rel)

	logger.Debug("copy started: %s on %s", rel, volume)

	bytes, err := copyFile(src, dst)
	if err != nil {
		e.record(pass, OpResult{Op: OpCopyFile, Volume: volume, RelPath: rel, Status: StatusFailed, Err: err})
		return
	}
	e.record(pass, OpResult{Op: OpCopyFile, Volume: volume, RelPath: rel, Status: StatusSucceeded, Bytes: bytes})
}

// copyFile copies src to dst whole-file, creating parent directories,
// preserving the source mode and modification time.
func copyFile(src, dst string) (uint64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %q: %w", src, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("failed to create parent of %q: %w", dst, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open %q: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, fmt.Errorf("failed to create %q: %w", dst, err)
	}

	written, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return uint64(written), fmt.Errorf("failed to copy %q: %w", dst, err)
	}

	// Mirror the source timestamp for operator convenience. Equality stays
	// content-based either way.
	_ = os.Chtimes(dst, time.Now(), info.ModTime())

	return uint64(written), nil
}

// dirSize sums the sizes of all regular files under path. Unreadable
// entries are ignored, matching the best-effort admission estimate.
func dirSize(path string) uint64 {
	var total uint64
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, infoErr := d.Info(); infoErr == nil {
			total += uint64(info.Size())
		}
		return nil
	})
	return total
}

// dirMode returns the permission bits of the directory at path, defaulting
// to 0755 when it cannot be read.
func dirMode(path string) os.FileMode {
	if info, err := os.Stat(path); err == nil {
		return info.Mode().Perm()
	}
	return 0755
}

// subdirsByMtime returns the names of the directory entries that are
// directories, ordered by modification time descending (most recently
// touched first).
func subdirsByMtime(dir string, entries []os.DirEntry) []string {
	type dirInfo struct {
		name  string
		mtime time.Time
	}

	var dirs []dirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		mtime := time.Time{}
		if info, err := entry.Info(); err == nil {
			mtime = info.ModTime()
		}
		dirs = append(dirs, dirInfo{name: entry.Name(), mtime: mtime})
	}

	sort.Slice(dirs, func(i, j int) bool {
		return dirs[i].mtime.After(dirs[j].mtime)
	})

	names := make([]string, len(dirs))
	for i, d := range dirs {
		names[i] = d.name
	}
	return names
}
