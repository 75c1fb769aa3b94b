package source

import (
	"io"
	"os"

	"github.com/pingcap/errors"
	"github.com/tysontate/gommap"
	"go.uber.org/multierr"
)

// File is a read-only log file. Reads are positioned, never cursor based,
// so a File can serve concurrent readers.
type File struct {
	file *os.File
	mmap gommap.MMap
	size int64
}

// Open opens path for reading. With useMmap the file is memory mapped and
// reads are served from the mapping; empty files are never mapped.
func Open(path string, useMmap bool) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}

	fi, statErr := f.Stat()
	if statErr != nil {
		return nil, multierr.Append(errors.Annotatef(statErr, "stat %s", path), f.Close())
	}
	if fi.IsDir() {
		return nil, multierr.Append(errors.Errorf("%s is a directory", path), f.Close())
	}

	s := &File{file: f, size: fi.Size()}
	if !useMmap || s.size == 0 {
		return s, nil
	}

	m, mapErr := gommap.Map(f.Fd(), gommap.PROT_READ, gommap.MAP_SHARED)
	if mapErr != nil {
		return nil, multierr.Append(errors.Annotatef(mapErr, "mmap %s", path), f.Close())
	}
	s.mmap = m
	return s, nil
}

// Name returns the path the file was opened with.
func (s *File) Name() string {
	return s.file.Name()
}

// Size returns the file size at open time.
func (s *File) Size() int64 {
	return s.size
}

// Mapped reports whether reads are served from a memory mapping.
func (s *File) Mapped() bool {
	return s.mmap != nil
}

// ReadAt implements io.ReaderAt.
func (s *File) ReadAt(p []byte, off int64) (int, error) {
	if s.mmap == nil {
		return s.file.ReadAt(p, off)
	}
	if off < 0 {
		return 0, errors.Errorf("negative offset %d", off)
	}
	if off >= int64(len(s.mmap)) {
		return 0, io.EOF
	}
	n := copy(p, s.mmap[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close unmaps the file, if mapped, and closes it.
func (s *File) Close() error {
	var err error
	if s.mmap != nil {
		err = s.mmap.UnsafeUnmap()
		s.mmap = nil
	}
	return multierr.Append(err, s.file.Close())
}
