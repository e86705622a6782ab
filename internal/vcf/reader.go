package vcf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Reader streams records from a VCF input. Not safe for concurrent use; the
// pipeline reads sequentially and fans out after parsing.
type Reader struct {
	scan   *bufio.Scanner
	header *Header
	closer io.Closer
	line   int
}

// Open opens a plain or gzip-compressed VCF file and parses its header.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vcf: open: %w", err)
	}
	var src io.Reader = f
	if strings.HasSuffix(path, ".gz") || strings.HasSuffix(path, ".bgz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("vcf: gzip: %w", err)
		}
		src = zr
	}
	r, err := NewReader(src)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader wraps an already-open VCF stream and parses its header.
func NewReader(src io.Reader) (*Reader, error) {
	scan := bufio.NewScanner(src)
	// Long INFO/annotation lines blow past the default token size.
	scan.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		raw  strings.Builder
		line int
	)
	for scan.Scan() {
		line++
		text := scan.Text()
		raw.WriteString(text)
		raw.WriteByte('\n')
		if strings.HasPrefix(text, "#CHROM") {
			h, err := ParseHeader(raw.String())
			if err != nil {
				return nil, err
			}
			return &Reader{scan: scan, header: h, line: line}, nil
		}
		if !strings.HasPrefix(text, "#") {
			return nil, fmt.Errorf("vcf: line %d: data before #CHROM header line", line)
		}
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("vcf: read header: %w", err)
	}
	return nil, fmt.Errorf("vcf: no #CHROM header line")
}

// Header returns the parsed header. The raw text is available exactly once
// per run via Header().Raw.
func (r *Reader) Header() *Header { return r.header }

// Close closes the underlying file, when the reader owns one.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Next returns the next record, or io.EOF when the source is exhausted.
// Malformed lines are returned as errors carrying the line number; callers
// may skip them and continue.
func (r *Reader) Next() (*Record, error) {
	for r.scan.Scan() {
		r.line++
		text := r.scan.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		rec, err := r.parseLine(text)
		if err != nil {
			return nil, fmt.Errorf("vcf: line %d: %w", r.line, err)
		}
		return rec, nil
	}
	if err := r.scan.Err(); err != nil {
		return nil, fmt.Errorf("vcf: read: %w", err)
	}
	return nil, io.EOF
}

func (r *Reader) parseLine(text string) (*Record, error) {
	cols := strings.Split(text, "\t")
	if len(cols) < 8 {
		return nil, fmt.Errorf("only %d columns", len(cols))
	}
	pos, err := strconv.Atoi(cols[1])
	if err != nil {
		return nil, fmt.Errorf("bad POS %q", cols[1])
	}

	rec := &Record{
		Chrom:  cols[0],
		Pos:    pos,
		Ref:    cols[3],
		Line:   r.line,
		header: r.header,
		info:   map[string]string{},
	}
	if cols[2] != "." {
		rec.ID = cols[2]
	}
	if cols[4] != "." && cols[4] != "" {
		rec.Alts = strings.Split(cols[4], ",")
	}
	if cols[5] != "." {
		if q, err := strconv.ParseFloat(cols[5], 64); err == nil {
			rec.Qual = &q
		}
	}
	// PASS and '.' mean no failing filter; store empty, as cyvcf2-style
	// sources report it.
	if cols[6] != "." && cols[6] != "PASS" {
		rec.Filter = cols[6]
	}

	if cols[7] != "." {
		for _, kv := range strings.Split(cols[7], ";") {
			if kv == "" {
				continue
			}
			k, v, _ := strings.Cut(kv, "=")
			rec.info[k] = v
		}
	}

	if len(cols) > 9 {
		rec.format = strings.Split(cols[8], ":")
		rec.samples = make([][]string, len(cols)-9)
		for i, s := range cols[9:] {
			rec.samples[i] = strings.Split(s, ":")
		}
	}
	return rec, nil
}
