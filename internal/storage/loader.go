package storage

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"vcfdb/internal/schema"
	"vcfdb/internal/transform"
)

// Batch sizing. A batch flushes at BatchSize rows; a flush larger than
// MaxDirectRows is split into SubChunkSize groups so one poison row degrades
// as little work as possible.
const (
	DefaultBatchSize = 10000
	DefaultSubChunk  = 5000
	DefaultMaxDirect = 6000
)

// State is the loader's position in its flush cycle. Transitions:
// Accumulating -> Flushing -> Committed (or DegradedRetry) -> Accumulating,
// and Drained once the input is exhausted.
type State uint8

const (
	StateAccumulating State = iota
	StateFlushing
	StateCommitted
	StateDegradedRetry
	StateDrained
)

func (s State) String() string {
	switch s {
	case StateAccumulating:
		return "accumulating"
	case StateFlushing:
		return "flushing"
	case StateCommitted:
		return "committed"
	case StateDegradedRetry:
		return "degraded_retry"
	case StateDrained:
		return "drained"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Observer receives load progress callbacks. Implementations must be cheap;
// they run on the single writer goroutine.
type Observer interface {
	BatchFlushed(table string, rows int64, elapsed time.Duration)
	RowsDegraded(table string, failed int)
}

type nopObserver struct{}

func (nopObserver) BatchFlushed(string, int64, time.Duration) {}
func (nopObserver) RowsDegraded(string, int)                  {}

// LoaderConfig tunes a Loader. Zero values take the defaults above.
type LoaderConfig struct {
	BatchSize    int
	SubChunkSize int
	MaxDirect    int

	// Expansions maps an expanded genotype attribute to its wide table
	// definition.
	Expansions map[string]*schema.Definition

	Observer Observer
}

// Loader is the single writer: it accumulates transformed rows, performs any
// width alters the pending batch requires, and inserts primary rows strictly
// before their impact and expansion rows. Not safe for concurrent use.
type Loader struct {
	repo     Repository
	variants *schema.Definition
	impacts  *schema.Definition
	cfg      LoaderConfig

	pending []*transform.Row
	state   State

	totalVariants int64
	totalImpacts  int64
	batches       int64
	start         time.Time
	lastFlush     time.Time
	lastTotal     int64
}

func NewLoader(repo Repository, variants, impacts *schema.Definition, cfg LoaderConfig) *Loader {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.SubChunkSize <= 0 {
		cfg.SubChunkSize = DefaultSubChunk
	}
	if cfg.MaxDirect <= 0 {
		cfg.MaxDirect = DefaultMaxDirect
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	now := time.Now()
	return &Loader{
		repo:      repo,
		variants:  variants,
		impacts:   impacts,
		cfg:       cfg,
		pending:   make([]*transform.Row, 0, cfg.BatchSize),
		start:     now,
		lastFlush: now,
	}
}

// State returns the loader state after the most recent operation.
func (l *Loader) State() State { return l.state }

// Totals returns the primary and impact row counts inserted so far.
func (l *Loader) Totals() (variants, impacts int64) {
	return l.totalVariants, l.totalImpacts
}

// Add appends one transformed row, flushing when the batch is full.
func (l *Loader) Add(ctx context.Context, row *transform.Row) error {
	if l.state == StateDrained {
		return fmt.Errorf("storage: loader already drained")
	}
	l.pending = append(l.pending, row)
	if len(l.pending) >= l.cfg.BatchSize {
		return l.flush(ctx)
	}
	l.state = StateAccumulating
	return nil
}

// Drain flushes the remainder and finishes the loader.
func (l *Loader) Drain(ctx context.Context) error {
	if err := l.flush(ctx); err != nil {
		return err
	}
	l.state = StateDrained
	log.Printf("loader: input exhausted, total_variants=%d total_impacts=%d elapsed=%s",
		l.totalVariants, l.totalImpacts, time.Since(l.start).Truncate(time.Millisecond))
	return nil
}

func (l *Loader) flush(ctx context.Context) error {
	if len(l.pending) == 0 {
		return nil
	}
	l.state = StateFlushing
	t0 := time.Now()

	variantRows := make([]map[string]any, len(l.pending))
	var impactRows []map[string]any
	expansionRows := map[string][]map[string]any{}
	for i, row := range l.pending {
		variantRows[i] = row.Variant
		impactRows = append(impactRows, row.Impacts...)
		for field, wide := range row.Expansions {
			expansionRows[field] = append(expansionRows[field], wide)
		}
	}

	if l.repo.TracksWidths() {
		if err := l.widen(ctx, l.variants, variantRows); err != nil {
			return err
		}
		if err := l.widen(ctx, l.impacts, impactRows); err != nil {
			return err
		}
	}

	nv, err := l.insertTable(ctx, l.variants, variantRows)
	l.totalVariants += nv
	if err != nil {
		return err
	}

	ni, err := l.insertTable(ctx, l.impacts, impactRows)
	l.totalImpacts += ni
	if err != nil {
		return err
	}

	for _, field := range sortedKeys(expansionRows) {
		def := l.cfg.Expansions[field]
		if def == nil {
			return fmt.Errorf("storage: no table for expanded attribute %q", field)
		}
		if _, err := l.insertTable(ctx, def, expansionRows[field]); err != nil {
			return err
		}
	}

	l.pending = l.pending[:0]
	l.state = StateCommitted
	l.batches++

	now := time.Now()
	sinceLast := now.Sub(l.lastFlush)
	rps := float64(0)
	if sinceLast > 0 {
		rps = float64(l.totalVariants-l.lastTotal) / sinceLast.Seconds()
	}
	log.Printf("batch #%d: rps=%.0f variants=%d impacts=%d total_variants=%d elapsed=%s since_last=%s",
		l.batches, rps, nv, ni, l.totalVariants,
		now.Sub(l.start).Truncate(time.Millisecond), sinceLast.Truncate(time.Millisecond))
	l.lastFlush = now
	l.lastTotal = l.totalVariants
	l.cfg.Observer.BatchFlushed(l.variants.Table, nv, time.Since(t0))
	return nil
}

// widen applies the width alters the pending rows require, before any row is
// inserted. Growth past the cap converts the column to unbounded text.
func (l *Loader) widen(ctx context.Context, def *schema.Definition, rows []map[string]any) error {
	need := def.CheckWidths(rows)
	for _, col := range sortedKeys(need) {
		maxLen := need[col]
		if maxLen > schema.WidthCap {
			log.Printf("loader: %s.%s exceeds width cap (%d chars), converting to text", def.Table, col, maxLen)
			if err := l.repo.AlterColumnText(ctx, def.Table, col); err != nil {
				return fmt.Errorf("storage: alter %s.%s to text: %w", def.Table, col, err)
			}
			def.SetText(col)
			continue
		}
		log.Printf("loader: widening %s.%s to %d chars", def.Table, col, maxLen)
		if err := l.repo.AlterColumnWidth(ctx, def.Table, col, maxLen); err != nil {
			return fmt.Errorf("storage: widen %s.%s: %w", def.Table, col, err)
		}
		def.Widen(col, maxLen)
	}
	return nil
}

// insertTable bulk-inserts rows, splitting oversized flushes into sub-chunks.
// A failed chunk degrades to row-by-row inserts so the rows around a poison
// row still land; the original bulk error is returned regardless.
func (l *Loader) insertTable(ctx context.Context, def *schema.Definition, rows []map[string]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	cols := def.Names()
	vals := make([][]any, len(rows))
	for i, r := range rows {
		vals[i] = def.RowValues(r)
	}

	chunk := len(vals)
	if chunk > l.cfg.MaxDirect {
		chunk = l.cfg.SubChunkSize
	}

	var total int64
	for off := 0; off < len(vals); off += chunk {
		end := off + chunk
		if end > len(vals) {
			end = len(vals)
		}
		group := vals[off:end]
		n, err := l.repo.BulkInsert(ctx, def.Table, cols, group)
		if err != nil {
			l.state = StateDegradedRetry
			log.Printf("loader: bulk insert into %s failed (%v), retrying %d rows individually", def.Table, err, len(group))
			ins, rowErrs := l.repo.InsertEach(ctx, def.Table, cols, group)
			total += ins
			for _, re := range rowErrs {
				log.Printf("loader: %s row %d rejected: %v", def.Table, off+re.Offset, re.Err)
			}
			l.cfg.Observer.RowsDegraded(def.Table, len(rowErrs))
			return total, fmt.Errorf("storage: bulk insert into %s: %w", def.Table, err)
		}
		total += n
	}
	return total, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
