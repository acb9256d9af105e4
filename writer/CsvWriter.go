package writer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Netcracker/qubership-data-exporter/crypto"
	"github.com/Netcracker/qubership-data-exporter/view"
	"github.com/iancoleman/orderedmap"
)

const (
	DefaultDelimiter  = ';'
	DefaultEnclosure  = '"'
	DefaultFlushEvery = 1000
	closedFileMode    = 0400
	openFileMode      = 0600
)

type Options struct {
	Delimiter  rune
	Enclosure  rune
	Bom        bool
	FlushEvery int
	// Anonymizer is nil when anonymization is off.
	Anonymizer *Anonymizer
}

// WithDefaults fills unset fields so that writing and reading back use the same dialect.
func (o Options) WithDefaults() Options {
	if o.Delimiter == 0 {
		o.Delimiter = DefaultDelimiter
	}
	if o.Enclosure == 0 {
		o.Enclosure = DefaultEnclosure
	}
	if o.FlushEvery <= 0 {
		o.FlushEvery = DefaultFlushEvery
	}
	return o
}

func (o Options) ReadOptions() ReadOptions {
	o = o.WithDefaults()
	return ReadOptions{Delimiter: o.Delimiter, Enclosure: o.Enclosure}
}

// CsvWriter appends rows of one entity to one delimited file.
type CsvWriter struct {
	opts          Options
	path          string
	file          *os.File
	buf           *bufio.Writer
	counter       *countingWriter
	columns       []string
	headerWritten bool
	rows          int64
	sinceFlush    int
	closed        bool
	checksum      string
	size          int64
	line          strings.Builder
}

func NewCsvWriter(opts Options) *CsvWriter {
	return &CsvWriter{opts: opts.WithDefaults()}
}

// Open creates (or truncates) the file and writes the byte order mark.
func (w *CsvWriter) Open(path string) error {
	if w.file != nil {
		return fmt.Errorf("writer is already open for %s", w.path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := makeWritable(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, openFileMode)
	if err != nil {
		return fmt.Errorf("failed to open export file %s: %w", path, err)
	}
	w.attach(path, f, 0)
	if w.opts.Bom {
		if _, err := w.buf.Write(utf8Bom); err != nil {
			return fmt.Errorf("failed to write to %s: %w", path, err)
		}
	}
	return nil
}

// Resume reopens a partially written file, cutting everything written after the checkpoint.
// A zero checkpoint is the same as Open.
func (w *CsvWriter) Resume(path string, checkpoint view.FileCheckpoint, columns []string) error {
	if checkpoint.Offset == 0 {
		if err := w.Open(path); err != nil {
			return err
		}
		w.columns = columns
		return nil
	}
	if w.file != nil {
		return fmt.Errorf("writer is already open for %s", w.path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checkpointed export file %s is not accessible: %w", path, err)
	}
	if info.Size() < checkpoint.Offset {
		return fmt.Errorf("export file %s is shorter (%d) than its checkpoint (%d)", path, info.Size(), checkpoint.Offset)
	}
	if len(columns) == 0 {
		header, err := ReadHeader(path, w.opts.ReadOptions())
		if err != nil {
			return err
		}
		columns = header
	}
	if err := makeWritable(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY, openFileMode)
	if err != nil {
		return fmt.Errorf("failed to reopen export file %s: %w", path, err)
	}
	if err := f.Truncate(checkpoint.Offset); err != nil {
		f.Close()
		return fmt.Errorf("failed to truncate %s to checkpoint: %w", path, err)
	}
	if _, err := f.Seek(checkpoint.Offset, io.SeekStart); err != nil {
		f.Close()
		return fmt.Errorf("failed to seek %s: %w", path, err)
	}
	w.attach(path, f, checkpoint.Offset)
	w.columns = columns
	w.headerWritten = true
	w.rows = checkpoint.Rows
	return nil
}

func (w *CsvWriter) attach(path string, f *os.File, offset int64) {
	w.path = path
	w.file = f
	w.counter = &countingWriter{w: f, n: offset}
	w.buf = bufio.NewWriterSize(w.counter, 64*1024)
	w.closed = false
	w.checksum = ""
	w.size = 0
}

func (w *CsvWriter) WriteHeader(columns []string) error {
	if err := w.ensureOpen(); err != nil {
		return err
	}
	if w.headerWritten {
		return nil
	}
	if len(columns) > 0 {
		w.columns = columns
	}
	w.line.Reset()
	encodeRecord(&w.line, sanitizeHeaders(w.columns), w.opts.Delimiter, w.opts.Enclosure)
	if _, err := w.buf.WriteString(w.line.String()); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", w.path, err)
	}
	w.headerWritten = true
	return nil
}

func (w *CsvWriter) WriteRow(row *orderedmap.OrderedMap) error {
	if err := w.ensureOpen(); err != nil {
		return err
	}
	if !w.headerWritten {
		if len(w.columns) == 0 {
			w.columns = row.Keys()
		}
		if err := w.WriteHeader(nil); err != nil {
			return err
		}
	}
	values := make([]string, len(w.columns))
	for i, column := range w.columns {
		raw, _ := row.Get(column)
		value := FormatValue(raw)
		if w.opts.Anonymizer != nil {
			value = w.opts.Anonymizer.Anonymize(column, value)
		}
		values[i] = SanitizeCell(value)
	}
	w.line.Reset()
	encodeRecord(&w.line, values, w.opts.Delimiter, w.opts.Enclosure)
	if _, err := w.buf.WriteString(w.line.String()); err != nil {
		return fmt.Errorf("failed to write row to %s: %w", w.path, err)
	}
	w.rows++
	w.sinceFlush++
	if w.sinceFlush >= w.opts.FlushEvery {
		return w.Flush()
	}
	return nil
}

func (w *CsvWriter) Flush() error {
	if w.buf == nil {
		return nil
	}
	w.sinceFlush = 0
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", w.path, err)
	}
	return nil
}

// Checkpoint flushes buffered rows and reports the durable file position.
func (w *CsvWriter) Checkpoint() (view.FileCheckpoint, error) {
	if err := w.ensureOpen(); err != nil {
		return view.FileCheckpoint{}, err
	}
	if !w.headerWritten && len(w.columns) > 0 {
		if err := w.WriteHeader(nil); err != nil {
			return view.FileCheckpoint{}, err
		}
	}
	if err := w.Flush(); err != nil {
		return view.FileCheckpoint{}, err
	}
	return view.FileCheckpoint{Offset: w.counter.n, Rows: w.rows}, nil
}

// Close finalizes the file: read-only permissions and checksum.
func (w *CsvWriter) Close() error {
	if w.closed {
		return nil
	}
	if err := w.ensureOpen(); err != nil {
		return err
	}
	if !w.headerWritten && len(w.columns) > 0 {
		if err := w.WriteHeader(nil); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", w.path, err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", w.path, err)
	}
	w.file = nil
	w.closed = true
	if err := os.Chmod(w.path, closedFileMode); err != nil {
		return fmt.Errorf("failed to protect %s: %w", w.path, err)
	}
	info, err := os.Stat(w.path)
	if err != nil {
		return err
	}
	w.size = info.Size()
	checksum, err := crypto.CreateFileSHA256Hash(w.path)
	if err != nil {
		return err
	}
	w.checksum = checksum
	return nil
}

// Abort releases the file handle without finalizing it; partial content stays on disk.
func (w *CsvWriter) Abort() error {
	if w.file == nil {
		return nil
	}
	flushErr := w.buf.Flush()
	closeErr := w.file.Close()
	w.file = nil
	return errors.Join(flushErr, closeErr)
}

func (w *CsvWriter) RowCount() int64 {
	return w.rows
}

// Checksum is the sha256 of the whole file, empty until Close.
func (w *CsvWriter) Checksum() string {
	return w.checksum
}

func (w *CsvWriter) Size() int64 {
	return w.size
}

func (w *CsvWriter) Path() string {
	return w.path
}

func (w *CsvWriter) ensureOpen() error {
	if w.file == nil {
		if w.closed {
			return fmt.Errorf("writer for %s is closed", w.path)
		}
		return errors.New("writer is not open")
	}
	return nil
}

func makeWritable(path string) error {
	if _, err := os.Stat(path); err == nil {
		if err := os.Chmod(path, openFileMode); err != nil {
			return fmt.Errorf("failed to make %s writable: %w", path, err)
		}
	}
	return nil
}

// FormatValue renders a database value the same way on every run.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		if val {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case *time.Time:
		if val == nil {
			return ""
		}
		return val.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(val)
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
