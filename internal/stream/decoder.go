// Package stream decodes newline-delimited JSON from a chunked byte source.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/kailas-cloud/smartsearch/internal/domain"
)

const (
	defaultChunkSize     = 32 << 10
	defaultMaxRecordSize = 1 << 20
)

// ErrRecordTooLarge is returned when an unterminated line outgrows the record limit.
var ErrRecordTooLarge = errors.New("stream: record exceeds max size")

// Stats counts what the decoder has seen so far.
type Stats struct {
	Records        int
	ParseErrors    int
	BlankLines     int
	DiscardedBytes int
}

// Decoder yields one value of T per complete line. It is not restartable.
type Decoder[T any] struct {
	src    io.Reader
	closer io.Closer

	buf   []byte
	off   int
	chunk []byte
	eof   bool
	done  bool
	err   error
	line  int
	stats Stats

	maxRecord    int
	onParseError func(*domain.ParseError)
	logger       *zap.Logger
	records      *prometheus.CounterVec
}

// Option configures a Decoder.
type Option func(*options)

type options struct {
	charset      string
	maxRecord    int
	chunkSize    int
	onParseError func(*domain.ParseError)
	logger       *zap.Logger
	records      *prometheus.CounterVec
}

// WithCharset decodes the byte stream from the named charset (IANA or WHATWG label).
// Empty and UTF-8 labels are passed through as is.
func WithCharset(name string) Option {
	return func(o *options) { o.charset = name }
}

// WithMaxRecordSize bounds the buffered trailing fragment.
func WithMaxRecordSize(n int) Option {
	return func(o *options) { o.maxRecord = n }
}

// WithChunkSize sets the read size per underlying Read call.
func WithChunkSize(n int) Option {
	return func(o *options) { o.chunkSize = n }
}

// WithParseErrorHandler is called for every malformed line.
func WithParseErrorHandler(fn func(*domain.ParseError)) Option {
	return func(o *options) { o.onParseError = fn }
}

// WithLogger sets the logger for soft errors and truncation.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics counts records by label "result" ("ok", "parse_error", "truncated").
func WithMetrics(c *prometheus.CounterVec) Option {
	return func(o *options) { o.records = c }
}

// NewDecoder wraps r. If r is an io.Closer it is closed when the stream ends or is cancelled.
func NewDecoder[T any](r io.Reader, opts ...Option) (*Decoder[T], error) {
	o := options{
		maxRecord: defaultMaxRecordSize,
		chunkSize: defaultChunkSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.chunkSize <= 0 {
		o.chunkSize = defaultChunkSize
	}
	if o.maxRecord <= 0 {
		o.maxRecord = defaultMaxRecordSize
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	d := &Decoder[T]{
		src:          r,
		chunk:        make([]byte, o.chunkSize),
		maxRecord:    o.maxRecord,
		onParseError: o.onParseError,
		logger:       o.logger,
		records:      o.records,
	}
	if c, ok := r.(io.Closer); ok {
		d.closer = c
	}

	if !isUTF8(o.charset) {
		enc, err := htmlindex.Get(o.charset)
		if err != nil {
			d.close()
			return nil, fmt.Errorf("stream: unsupported charset %q: %w", o.charset, err)
		}
		d.src = enc.NewDecoder().Reader(r)
	}
	return d, nil
}

func isUTF8(charset string) bool {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}

// Next returns the next decoded value, or io.EOF once the source is exhausted.
func (d *Decoder[T]) Next(ctx context.Context) (T, error) {
	var zero T
	for {
		if d.done {
			if d.err != nil {
				return zero, d.err
			}
			return zero, io.EOF
		}
		if err := ctx.Err(); err != nil {
			d.finish(err)
			return zero, err
		}

		if i := bytes.IndexByte(d.buf[d.off:], '\n'); i >= 0 {
			raw := d.buf[d.off : d.off+i]
			d.off += i + 1
			d.line++
			if v, ok := d.decodeLine(raw); ok {
				return v, nil
			}
			continue
		}

		if d.eof {
			d.discardTail()
			d.finish(nil)
			return zero, io.EOF
		}

		if err := d.fill(); err != nil {
			d.finish(err)
			return zero, err
		}
	}
}

// Records iterates over the remaining values. Check Err after the loop.
func (d *Decoder[T]) Records(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, err := d.Next(ctx)
			if err != nil {
				return
			}
			if !yield(v) {
				d.finish(nil)
				return
			}
		}
	}
}

// Err returns the terminal error, if any. io.EOF is not an error.
func (d *Decoder[T]) Err() error { return d.err }

// Stats returns counters for the lines seen so far.
func (d *Decoder[T]) Stats() Stats { return d.stats }

// Close stops the stream and releases the underlying reader.
func (d *Decoder[T]) Close() error {
	d.finish(nil)
	return nil
}

func (d *Decoder[T]) decodeLine(raw []byte) (T, bool) {
	var v T
	line := bytes.TrimSpace(raw)
	if len(line) == 0 {
		d.stats.BlankLines++
		return v, false
	}
	if err := json.Unmarshal(line, &v); err != nil {
		perr := &domain.ParseError{Line: d.line, Err: err}
		d.stats.ParseErrors++
		d.inc("parse_error")
		d.logger.Warn("Skipping malformed stream record", zap.Int("line", d.line), zap.Error(err))
		if d.onParseError != nil {
			d.onParseError(perr)
		}
		return v, false
	}
	d.stats.Records++
	d.inc("ok")
	return v, true
}

// fill compacts the buffer and reads one more chunk.
func (d *Decoder[T]) fill() error {
	if d.off > 0 {
		n := copy(d.buf, d.buf[d.off:])
		d.buf = d.buf[:n]
		d.off = 0
	}
	if len(d.buf) > d.maxRecord {
		return fmt.Errorf("%w: %d bytes without newline", ErrRecordTooLarge, len(d.buf))
	}

	n, err := d.src.Read(d.chunk)
	if n > 0 {
		d.buf = append(d.buf, d.chunk[:n]...)
	}
	switch {
	case errors.Is(err, io.EOF):
		d.eof = true
	case err != nil:
		return fmt.Errorf("stream read: %w", err)
	}
	return nil
}

// discardTail drops an unterminated trailing fragment. Producers terminate every record,
// so a leftover means the stream was cut short.
func (d *Decoder[T]) discardTail() {
	tail := bytes.TrimSpace(d.buf[d.off:])
	if len(tail) == 0 {
		return
	}
	d.stats.DiscardedBytes += len(tail)
	d.inc("truncated")
	d.logger.Debug("Discarding partial trailing record", zap.Int("bytes", len(tail)))
	d.buf = d.buf[:0]
	d.off = 0
}

func (d *Decoder[T]) finish(err error) {
	if d.done {
		return
	}
	d.done = true
	d.err = err
	d.buf = nil
	d.off = 0
	d.close()
}

func (d *Decoder[T]) close() {
	if d.closer != nil {
		if err := d.closer.Close(); err != nil {
			d.logger.Debug("Failed to close stream source", zap.Error(err))
		}
		d.closer = nil
	}
}

func (d *Decoder[T]) inc(result string) {
	if d.records != nil {
		d.records.WithLabelValues(result).Inc()
	}
}
