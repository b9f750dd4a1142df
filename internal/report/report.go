// Package report writes the plain-text comparison of two indexed trees.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dbsmedya/goreconcile/internal/index"
)

// DefaultPath returns the report location next to the running executable,
// falling back to the working directory.
func DefaultPath(fileName string) string {
	exe, err := os.Executable()
	if err != nil {
		return fileName
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), fileName)
}

// Write renders the duplicates of each tree and the identities missing from
// the other tree. It works from the raw indexes, before any resolution.
//
//	== /path/to/a ==
//	Duplicate: photo.jpg (100 bytes)
//	  /path/to/a/photo.jpg
//	  /path/to/a/old/photo.jpg
//	MISSING from /path/to/b: report.txt (50 bytes)
//	  /path/to/a/report.txt
func Write(w io.Writer, idxA, idxB *index.DirectoryIndex) error {
	bw := bufio.NewWriter(w)

	writeSide(bw, idxA, idxB)
	fmt.Fprintln(bw)
	writeSide(bw, idxB, idxA)

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func writeSide(w io.Writer, idx, other *index.DirectoryIndex) {
	fmt.Fprintf(w, "== %s ==\n", idx.Root)

	dups, missing := 0, 0
	idx.Each(func(id index.Identity, recs []*index.FileRecord) {
		if len(recs) > 1 {
			dups++
			fmt.Fprintf(w, "Duplicate: %s\n", id)
			writePaths(w, recs)
		}
		if !other.Has(id) {
			missing++
			fmt.Fprintf(w, "MISSING from %s: %s\n", other.Root, id)
			writePaths(w, recs)
		}
	})

	fmt.Fprintf(w, "-- %d files, %d duplicate groups, %d missing from %s, %d skipped\n",
		idx.FileCount(), dups, missing, other.Root, idx.Stats.Skipped)
}

func writePaths(w io.Writer, recs []*index.FileRecord) {
	for _, rec := range recs {
		fmt.Fprintf(w, "  %s\n", rec.Path)
	}
}
