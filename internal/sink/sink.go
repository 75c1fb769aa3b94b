package sink

import (
	"bufio"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pingcap/errors"
	"go.uber.org/multierr"
)

// Compression selects the encoding applied to the output.
type Compression string

const (
	None Compression = "none"
	Gzip Compression = "gzip"
	Zstd Compression = "zstd"
)

// Stdout is the path that selects standard output.
const Stdout = "-"

// ParseCompression maps a config value to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(s); c {
	case "":
		return None, nil
	case None, Gzip, Zstd:
		return c, nil
	default:
		return "", errors.Errorf("unknown compression %q", s)
	}
}

// Writer is an output sink. Close flushes every layer and closes the file,
// but never closes standard output.
type Writer struct {
	buf    *bufio.Writer
	enc    io.WriteCloser
	closer io.Closer
}

// Open returns a sink writing to path, or to os.Stdout when path is "" or "-".
func Open(path string, c Compression) (*Writer, error) {
	if path == "" || path == Stdout {
		return wrap(os.Stdout, nil, c)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Trace(err)
	}
	w, err := wrap(f, f, c)
	if err != nil {
		return nil, multierr.Append(err, f.Close())
	}
	return w, nil
}

// NewWriter wraps an already open writer without taking ownership of it.
func NewWriter(dst io.Writer, c Compression) (*Writer, error) {
	return wrap(dst, nil, c)
}

func wrap(dst io.Writer, closer io.Closer, c Compression) (*Writer, error) {
	w := &Writer{closer: closer}
	w.buf = bufio.NewWriterSize(dst, 64*1024)

	switch c {
	case "", None:
	case Gzip:
		w.enc = gzip.NewWriter(w.buf)
	case Zstd:
		enc, err := zstd.NewWriter(w.buf)
		if err != nil {
			return nil, errors.Annotate(err, "zstd encoder")
		}
		w.enc = enc
	default:
		return nil, errors.Errorf("unknown compression %q", c)
	}
	return w, nil
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	if w.enc != nil {
		return w.enc.Write(p)
	}
	return w.buf.Write(p)
}

// Close finishes the compressed stream, flushes buffered bytes and closes
// the file if the sink owns it.
func (w *Writer) Close() error {
	var err error
	if w.enc != nil {
		err = multierr.Append(err, w.enc.Close())
	}
	err = multierr.Append(err, w.buf.Flush())
	if w.closer != nil {
		err = multierr.Append(err, w.closer.Close())
	}
	return err
}
