package ingest

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Entry is one regular file extracted from a capture archive.
// Path is the cleaned, slash-separated path as recorded in the tar.
type Entry struct {
	Path    string
	Content []byte
	Size    int64
}

// Limits bounds the work a single archive may cause. All three ceilings
// are enforced while streaming, before decompressed data accumulates.
type Limits struct {
	MaxArchiveBytes int64 // total decompressed bytes across all entries
	MaxEntryBytes   int64 // decompressed bytes of a single entry
	MaxEntries      int   // number of regular file entries
}

// DefaultLimits returns the ceilings used when configuration does not
// override them. Fleet diagnostic bundles run to a few megabytes, so
// these are generous.
func DefaultLimits() Limits {
	return Limits{
		MaxArchiveBytes: 256 << 20, // 256 MiB decompressed
		MaxEntryBytes:   64 << 20,  // 64 MiB per entry
		MaxEntries:      10000,
	}
}

// Unpack extracts every regular file from a gzip-compressed tar stream
// into memory.
//
// The extraction is atomic: it returns either the complete listing or an
// error, never a partial listing. Directories and other non-regular
// entries are skipped; links are skipped but their targets are still
// checked against the extraction root.
//
// Returns:
//   - ErrCorruptArchive for unreadable gzip or tar framing
//   - ErrArchiveTooLarge when a Limits ceiling is exceeded
//   - ErrPathTraversal when any entry or link target escapes the root
func Unpack(ctx context.Context, r io.Reader, limits Limits) ([]Entry, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)

	var (
		entries []Entry
		total   int64
	)
	for {
		// Cancellation is checked between entries; a single entry read
		// is bounded by MaxEntryBytes.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
		}

		if escapesRoot(hdr.Name) {
			return nil, fmt.Errorf("%w: %q", ErrPathTraversal, hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeReg:
		case tar.TypeSymlink, tar.TypeLink:
			if linkEscapesRoot(hdr.Name, hdr.Linkname) {
				return nil, fmt.Errorf("%w: %q -> %q", ErrPathTraversal, hdr.Name, hdr.Linkname)
			}
			continue
		default:
			// Directories, fifos, devices.
			continue
		}

		if len(entries) >= limits.MaxEntries {
			return nil, fmt.Errorf("%w: more than %d entries", ErrArchiveTooLarge, limits.MaxEntries)
		}
		if hdr.Size > limits.MaxEntryBytes {
			return nil, fmt.Errorf("%w: entry %q declares %d bytes", ErrArchiveTooLarge, hdr.Name, hdr.Size)
		}

		// Read one byte past the ceiling so entries that outgrow their
		// header are caught without buffering the overrun.
		data, err := io.ReadAll(io.LimitReader(tr, limits.MaxEntryBytes+1))
		if err != nil {
			return nil, fmt.Errorf("%w: reading %q: %v", ErrCorruptArchive, hdr.Name, err)
		}
		if int64(len(data)) > limits.MaxEntryBytes {
			return nil, fmt.Errorf("%w: entry %q exceeds %d bytes", ErrArchiveTooLarge, hdr.Name, limits.MaxEntryBytes)
		}

		total += int64(len(data))
		if total > limits.MaxArchiveBytes {
			return nil, fmt.Errorf("%w: decompressed size exceeds %d bytes", ErrArchiveTooLarge, limits.MaxArchiveBytes)
		}

		entries = append(entries, Entry{
			Path:    path.Clean(hdr.Name),
			Content: data,
			Size:    int64(len(data)),
		})
	}

	return entries, nil
}

// escapesRoot reports whether a tar entry name resolves outside the
// extraction root (absolute, or climbing above the root with "..").
func escapesRoot(name string) bool {
	if name == "" {
		return true
	}
	if strings.HasPrefix(name, "/") {
		return true
	}
	clean := path.Clean(name)
	return clean == ".." || strings.HasPrefix(clean, "../")
}

// linkEscapesRoot reports whether a link target, resolved relative to the
// link's own directory, lands outside the extraction root.
func linkEscapesRoot(name, target string) bool {
	if strings.HasPrefix(target, "/") {
		return true
	}
	resolved := path.Join(path.Dir(path.Clean(name)), target)
	return resolved == ".." || strings.HasPrefix(resolved, "../")
}
