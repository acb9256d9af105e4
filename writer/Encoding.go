package writer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

var utf8Bom = []byte{0xEF, 0xBB, 0xBF}

// encodeRecord formats one line. A field is enclosed when it holds the delimiter,
// the enclosure, whitespace or a backslash; enclosures inside are doubled.
func encodeRecord(b *strings.Builder, fields []string, delimiter, enclosure rune) {
	for i, f := range fields {
		if i > 0 {
			b.WriteRune(delimiter)
		}
		if strings.ContainsRune(f, delimiter) || strings.ContainsRune(f, enclosure) || strings.ContainsAny(f, "\n\r\t \\") {
			b.WriteRune(enclosure)
			b.WriteString(strings.ReplaceAll(f, string(enclosure), string(enclosure)+string(enclosure)))
			b.WriteRune(enclosure)
		} else {
			b.WriteString(f)
		}
	}
	b.WriteByte('\n')
}

type recordReader struct {
	r         *bufio.Reader
	delimiter rune
	enclosure rune
}

func newRecordReader(r io.Reader, delimiter, enclosure rune) (*recordReader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(utf8Bom))
	if err == nil && string(head) == string(utf8Bom) {
		if _, err := br.Discard(len(utf8Bom)); err != nil {
			return nil, err
		}
	}
	return &recordReader{r: br, delimiter: delimiter, enclosure: enclosure}, nil
}

// next returns io.EOF once no complete record is left. An unterminated trailing record is dropped.
func (rr *recordReader) next() ([]string, error) {
	var fields []string
	var field strings.Builder
	inQuotes := false
	for {
		ch, _, err := rr.r.ReadRune()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		if inQuotes {
			if ch != rr.enclosure {
				field.WriteRune(ch)
				continue
			}
			next, _, err := rr.r.ReadRune()
			if err == io.EOF {
				return nil, io.EOF
			}
			if err != nil {
				return nil, err
			}
			if next == rr.enclosure {
				field.WriteRune(ch)
				continue
			}
			inQuotes = false
			if err := rr.r.UnreadRune(); err != nil {
				return nil, err
			}
			continue
		}
		switch ch {
		case rr.enclosure:
			inQuotes = true
		case rr.delimiter:
			fields = append(fields, field.String())
			field.Reset()
		case '\r':
		case '\n':
			return append(fields, field.String()), nil
		default:
			field.WriteRune(ch)
		}
	}
}

type ReadOptions struct {
	Delimiter rune
	Enclosure rune
}

// ReadHeader returns the header line of a written file.
func ReadHeader(path string, opts ReadOptions) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rr, err := newRecordReader(f, opts.Delimiter, opts.Enclosure)
	if err != nil {
		return nil, err
	}
	header, err := rr.next()
	if err == io.EOF {
		return nil, fmt.Errorf("file %s has no complete header line", path)
	}
	return header, err
}

// ReadColumn collects the non-empty values of the first candidate column present in the header.
// It returns the matched column name, or "" when none of the candidates is present.
func ReadColumn(path string, opts ReadOptions, candidates ...string) ([]string, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	rr, err := newRecordReader(f, opts.Delimiter, opts.Enclosure)
	if err != nil {
		return nil, "", err
	}
	header, err := rr.next()
	if err == io.EOF {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	idx, column := -1, ""
	for _, c := range candidates {
		if c == "" {
			continue
		}
		for i, h := range header {
			if h == SanitizeHeader(c) {
				idx, column = i, c
				break
			}
		}
		if idx >= 0 {
			break
		}
	}
	if idx < 0 {
		return nil, "", nil
	}
	values := make([]string, 0)
	for {
		record, err := rr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, "", err
		}
		if idx >= len(record) {
			continue
		}
		if v := restoreCell(record[idx]); v != "" {
			values = append(values, v)
		}
	}
	return values, column, nil
}
