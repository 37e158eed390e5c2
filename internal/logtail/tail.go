// Package logtail reads newly appended content from a set of candidate log
// files, tracking a byte offset per file so already-seen bytes are never
// returned twice.
package logtail

import (
	"io"
	"os"
	"strings"
)

// FileSet tracks read offsets for an ordered list of candidate log files.
// SteamCMD installations differ in which log files they actually write, so
// callers pass every plausible path and the set reads whichever exist.
//
// A FileSet is owned by a single monitoring session and is not safe for
// concurrent use.
type FileSet struct {
	paths   []string
	offsets map[string]int64
}

// Open creates a FileSet for the given candidate paths. Offsets for files
// that already exist are initialized to the file's current size, so content
// written by a previous session is never reclassified as a new event. Files
// that do not exist yet are skipped and re-probed on every ReadNew call;
// once such a file appears, it is read from the beginning, since everything
// in it was written after monitoring began.
func Open(paths []string) *FileSet {
	fs := &FileSet{
		paths:   paths,
		offsets: make(map[string]int64, len(paths)),
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		fs.offsets[p] = info.Size()
	}
	return fs
}

// Paths returns the candidate paths in evaluation order.
func (fs *FileSet) Paths() []string {
	return fs.paths
}

// ReadNew reads from each file's stored offset to its current end, in path
// order, and returns the concatenated new content. Offsets advance even for
// files whose content yields no classifiable match, so a later call never
// re-reads already-seen bytes. Unreadable files and files that still do not
// exist contribute nothing; if no file contributes anything the result is
// the empty string, which is a valid state (callers fall back to window
// probing).
func (fs *FileSet) ReadNew() string {
	var b strings.Builder
	for _, p := range fs.paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		offset := fs.offsets[p]
		if info.Size() < offset {
			// File was truncated or rotated. Resync to the new end
			// rather than replaying content from an older session.
			fs.offsets[p] = info.Size()
			continue
		}
		if info.Size() == offset {
			continue
		}
		chunk, n := readFrom(p, offset)
		if n > 0 {
			fs.offsets[p] = offset + n
			b.WriteString(chunk)
		}
	}
	return b.String()
}

// readFrom reads from offset to EOF, dropping undecodable bytes. Returns
// the decoded text and the number of raw bytes consumed.
func readFrom(path string, offset int64) (string, int64) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return "", 0
	}
	data, err := io.ReadAll(f)
	if err != nil && len(data) == 0 {
		return "", 0
	}
	return strings.ToValidUTF8(string(data), ""), int64(len(data))
}
