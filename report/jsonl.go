package report

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/graphcheck/blobstore"
)

// Compression selects the codec of a JSON lines report.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return "none"
	}
}

// CompressionForName picks the compression from a file suffix (.zst or .lz4).
func CompressionForName(name string) Compression {
	switch {
	case strings.HasSuffix(name, ".zst"), strings.HasSuffix(name, ".zstd"):
		return CompressionZstd
	case strings.HasSuffix(name, ".lz4"):
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// JSONLSink writes one JSON object per line.
type JSONLSink struct {
	mu     sync.Mutex
	dst    io.WriteCloser
	comp   io.WriteCloser
	buf    *bufio.Writer
	enc    *json.Encoder
	closed bool
}

// NewJSONLSink writes to dst with compression c. Close closes dst.
func NewJSONLSink(dst io.WriteCloser, c Compression) (*JSONLSink, error) {
	s := &JSONLSink{dst: dst}
	var w io.Writer = dst
	switch c {
	case CompressionZstd:
		enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		s.comp, w = enc, enc
	case CompressionLZ4:
		lw := lz4.NewWriter(dst)
		s.comp, w = lw, lw
	}
	s.buf = bufio.NewWriter(w)
	s.enc = json.NewEncoder(s.buf)
	return s, nil
}

// CreateJSONLSink creates blob name in bs and writes the report to it.
// The compression follows the name suffix.
func CreateJSONLSink(ctx context.Context, bs blobstore.BlobStore, name string) (*JSONLSink, error) {
	w, err := bs.Create(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create report %s: %w", name, err)
	}
	s, err := NewJSONLSink(w, CompressionForName(name))
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	return s, nil
}

func (s *JSONLSink) Record(in Inconsistency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return io.ErrClosedPipe
	}
	return s.enc.Encode(in)
}

// Close flushes the encoder and closes the destination.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.buf.Flush()
	if s.comp != nil {
		err = errors.Join(err, s.comp.Close())
	}
	return errors.Join(err, s.dst.Close())
}

// ReadJSONL decodes a JSON lines report written with compression c.
func ReadJSONL(r io.Reader, c Compression) ([]Inconsistency, error) {
	switch c {
	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		r = dec
	case CompressionLZ4:
		r = lz4.NewReader(r)
	}
	var out []Inconsistency
	dec := json.NewDecoder(r)
	for {
		var in Inconsistency
		if err := dec.Decode(&in); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		out = append(out, in)
	}
}
