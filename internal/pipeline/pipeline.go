// Package pipeline drives a whole load run: header parsing, pedigree
// reconciliation, prefix sampling, schema inference, table provisioning,
// parallel transform, batched load and final indexing.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"runtime"
	"sort"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"vcfdb/internal/annotation"
	"vcfdb/internal/blob"
	"vcfdb/internal/config"
	"vcfdb/internal/metrics"
	"vcfdb/internal/ped"
	"vcfdb/internal/schema"
	"vcfdb/internal/storage"
	"vcfdb/internal/transform"
	"vcfdb/internal/vcf"
)

// DefaultPrefixSize is the number of leading records sampled before the
// schema is frozen and any table is created.
const (
	DefaultPrefixSize    = 10000
	DefaultChannelBuffer = 64
)

// Pipeline runs one load into an open repository.
type Pipeline struct {
	cfg  config.Config
	repo storage.Repository

	variantID int64
	faults    int64
}

func New(cfg config.Config, repo storage.Repository) *Pipeline {
	return &Pipeline{cfg: cfg, repo: repo}
}

// Run executes the load end to end. The repository is provisioned
// destructively: existing run tables are dropped first.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()

	r, err := vcf.Open(p.cfg.VCF)
	if err != nil {
		return err
	}
	defer r.Close()
	return p.run(ctx, r, start)
}

// RunFrom is Run against an already-open reader; the entry point for tests
// and for callers that stream from something other than a file.
func (p *Pipeline) RunFrom(ctx context.Context, r *vcf.Reader) error {
	return p.run(ctx, r, time.Now())
}

func (p *Pipeline) run(ctx context.Context, r *vcf.Reader, start time.Time) error {
	hdr := r.Header()

	var pedigree *ped.Pedigree
	if p.cfg.Ped != "" {
		var err error
		pedigree, err = ped.Load(p.cfg.Ped)
		if err != nil {
			return err
		}
	}
	cohort, err := ped.Reconcile(pedigree, hdr.Samples)
	if err != nil {
		return err
	}

	reg := annotation.NewRegistry()
	variants, err := schema.Variants(hdr, reg, p.cfg.Exclude)
	if err != nil {
		return err
	}
	impacts := schema.Impacts()
	expansions := expansionDefs(p.cfg.Expand, cohort.Names)

	var codec blob.Codec = blob.Snappy{}
	if p.cfg.LegacyCompression {
		codec = blob.Zlib{}
	}

	tr := &transform.Transformer{
		Header:      hdr,
		Registry:    reg,
		Codec:       codec,
		SampleIdxs:  cohort.Idxs,
		SampleNames: cohort.Names,
		Expand:      p.cfg.Expand,
	}

	log.Printf("pipeline: %d samples, %d info attributes, %d variant columns",
		len(cohort.Names), len(hdr.Infos), len(variants.Columns))

	// sample the prefix before any table exists; string widths freeze on
	// what it shows
	prefix, err := p.samplePrefix(r, tr)
	if err != nil {
		return err
	}
	growFromPrefix(variants, impacts, prefix)

	samplesDef, sampleRows := samplesDefinition(cohort)

	if err := p.provision(ctx, variants, impacts, samplesDef, expansions); err != nil {
		return err
	}
	if err := p.loadMetadata(ctx, hdr, samplesDef, sampleRows, codec); err != nil {
		return err
	}

	loader := storage.NewLoader(p.repo, variants, impacts, storage.LoaderConfig{
		BatchSize:    p.cfg.Runtime.BatchSize,
		SubChunkSize: p.cfg.Runtime.SubChunkSize,
		MaxDirect:    p.cfg.Runtime.MaxDirectRows,
		Expansions:   expansions,
		Observer:     metrics.LoadObserver{},
	})
	for _, row := range prefix {
		if err := loader.Add(ctx, row); err != nil {
			return err
		}
	}

	if err := p.streamRemainder(ctx, r, tr, loader); err != nil {
		return err
	}
	if err := loader.Drain(ctx); err != nil {
		return err
	}

	if err := p.createIndexes(ctx, expansions); err != nil {
		return err
	}

	nv, ni := loader.Totals()
	log.Printf("pipeline: done, variants=%d impacts=%d decode_faults=%d elapsed=%s",
		nv, ni, p.faults, time.Since(start).Truncate(time.Millisecond))
	return nil
}

// samplePrefix transforms the leading records sequentially; ids are assigned
// here and never reused.
func (p *Pipeline) samplePrefix(r *vcf.Reader, tr *transform.Transformer) ([]*transform.Row, error) {
	size := p.cfg.Runtime.PrefixSize
	if size <= 0 {
		size = DefaultPrefixSize
	}
	prefix := make([]*transform.Row, 0, size)
	for len(prefix) < size {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("pipeline: skipping malformed input line: %v", err)
			continue
		}
		p.variantID++
		row, err := tr.Transform(rec, p.variantID)
		if err != nil {
			return nil, err
		}
		p.noteFaults(row)
		prefix = append(prefix, row)
	}
	log.Printf("pipeline: sampled %d-record prefix, schema frozen", len(prefix))
	return prefix, nil
}

// growFromPrefix widens the inferred string widths over everything the
// sampled rows carry.
func growFromPrefix(variants, impacts *schema.Definition, prefix []*transform.Row) {
	variantRows := make([]map[string]any, len(prefix))
	var impactRows []map[string]any
	for i, row := range prefix {
		variantRows[i] = row.Variant
		impactRows = append(impactRows, row.Impacts...)
	}
	schema.GrowWidths(variants, variantRows)
	schema.GrowWidths(impacts, impactRows)
}

// provision drops and recreates every run table, children before parents.
func (p *Pipeline) provision(ctx context.Context, variants, impacts, samples *schema.Definition, expansions map[string]*schema.Definition) error {
	drop := []string{}
	for _, d := range expansions {
		drop = append(drop, d.Table)
	}
	drop = append(drop, "variant_impacts", "variants", "samples", "vcf_header", "features")
	for _, t := range drop {
		if err := p.repo.DropTable(ctx, t); err != nil {
			return fmt.Errorf("pipeline: drop %s: %w", t, err)
		}
	}

	create := []*schema.Definition{variants, impacts, samples, vcfHeaderDefinition(), featuresDefinition()}
	for _, d := range expansions {
		create = append(create, d)
	}
	for _, d := range create {
		if err := p.repo.CreateTable(ctx, d); err != nil {
			return fmt.Errorf("pipeline: create %s: %w", d.Table, err)
		}
	}
	return nil
}

// loadMetadata writes the one-off tables: the cohort, the raw input header
// with its checksum, and the blob scheme marker future readers need to decode
// the genotype columns.
func (p *Pipeline) loadMetadata(ctx context.Context, hdr *vcf.Header, samplesDef *schema.Definition, sampleRows []map[string]any, codec blob.Codec) error {
	vals := make([][]any, len(sampleRows))
	for i, row := range sampleRows {
		vals[i] = samplesDef.RowValues(row)
	}
	if _, err := p.repo.BulkInsert(ctx, samplesDef.Table, samplesDef.Names(), vals); err != nil {
		return err
	}

	hd := vcfHeaderDefinition()
	sum := fmt.Sprintf("%016x", xxh3.HashString(hdr.Raw))
	if _, err := p.repo.BulkInsert(ctx, hd.Table, hd.Names(), [][]any{{hdr.Raw, sum}}); err != nil {
		return err
	}

	fd := featuresDefinition()
	if _, err := p.repo.BulkInsert(ctx, fd.Table, fd.Names(), [][]any{{codec.Scheme()}}); err != nil {
		return err
	}
	return nil
}

// streamRemainder pushes the rest of the input through the parallel
// transform, feeding the loader in input order.
func (p *Pipeline) streamRemainder(ctx context.Context, r *vcf.Reader, tr *transform.Transformer, loader *storage.Loader) error {
	workers := p.cfg.Runtime.TransformWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	buffer := p.cfg.Runtime.ChannelBuffer
	if buffer <= 0 {
		buffer = DefaultChannelBuffer
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan transform.Job, buffer)
	out, wait := tr.Stream(gctx, workers, jobs)

	g.Go(func() error {
		defer close(jobs)
		for {
			rec, err := r.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				log.Printf("pipeline: skipping malformed input line: %v", err)
				continue
			}
			p.variantID++
			select {
			case jobs <- transform.Job{Rec: rec, ID: p.variantID}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	g.Go(func() error {
		for row := range out {
			p.noteFaults(row)
			if err := loader.Add(gctx, row); err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return wait()
}

func (p *Pipeline) noteFaults(row *transform.Row) {
	for _, f := range row.Faults {
		log.Printf("pipeline: variant %d: %v", row.VariantID, f)
	}
	p.faults += int64(len(row.Faults))
	metrics.RecordDecodeFaults(int64(len(row.Faults)))
}

// createIndexes runs after the load so inserts never pay index maintenance.
// Expansion tables exist for genotype-based querying, so every per-sample
// column gets its own index.
func (p *Pipeline) createIndexes(ctx context.Context, expansions map[string]*schema.Definition) error {
	indexes := []struct {
		name, table string
		columns     []string
	}{
		{"idx_variants_chrom_start", "variants", []string{"chrom", "start"}},
		{"idx_variants_exonic", "variants", []string{"is_exonic"}},
		{"idx_variants_coding", "variants", []string{"is_coding"}},
		{"idx_variants_impact", "variants", []string{"impact"}},
		{"idx_variants_impact_severity", "variants", []string{"impact_severity"}},
		{"idx_variant_impacts_variant_id", "variant_impacts", []string{"variant_id"}},
	}
	fields := make([]string, 0, len(expansions))
	for f := range expansions {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		d := expansions[f]
		for _, c := range d.Columns {
			if c.Name == "variant_id" {
				continue
			}
			indexes = append(indexes, struct {
				name, table string
				columns     []string
			}{"idx_" + d.Table + "_" + c.Name, d.Table, []string{c.Name}})
		}
	}
	for _, ix := range indexes {
		if err := p.repo.CreateIndex(ctx, ix.name, ix.table, ix.columns...); err != nil {
			return fmt.Errorf("pipeline: index %s: %w", ix.name, err)
		}
	}
	return nil
}

// samplesDefinition builds the cohort table and its rows, widths grown over
// the actual cohort.
func samplesDefinition(c *ped.Cohort) (*schema.Definition, []map[string]any) {
	d := schema.New("samples",
		schema.Column{Name: "sample_id", Type: schema.TypeInteger, PrimaryKey: true},
	)
	for _, name := range ped.BaseCols[1:] {
		d.Add(schema.Column{Name: name, Type: schema.TypeString, Width: schema.DefaultStringWidth})
	}
	extras := make([]string, len(c.ExtraCols))
	for i, x := range c.ExtraCols {
		extras[i] = schema.Clean(x)
		d.Add(schema.Column{Name: extras[i], Type: schema.TypeString, Width: schema.DefaultStringWidth})
	}

	rows := make([]map[string]any, len(c.Rows))
	for i, s := range c.Rows {
		m := map[string]any{
			"sample_id":   s.SampleID,
			"family_id":   s.FamilyID,
			"name":        s.Name,
			"paternal_id": s.PaternalID,
			"maternal_id": s.MaternalID,
			"sex":         s.Sex,
			"phenotype":   s.Phenotype,
		}
		for j, x := range extras {
			if j < len(s.Attrs) {
				m[x] = s.Attrs[j]
			}
		}
		rows[i] = m
	}
	schema.GrowWidths(d, rows)
	return d, rows
}

// expansionDefs builds one wide per-sample table per expanded attribute.
func expansionDefs(expand []string, names []string) map[string]*schema.Definition {
	defs := make(map[string]*schema.Definition, len(expand))
	for _, field := range expand {
		d := schema.New("sample_"+field,
			schema.Column{Name: "variant_id", Type: schema.TypeInteger, NotNull: true, References: "variants.variant_id"},
		)
		typ := schema.TypeInteger
		switch field {
		case "gt_quals":
			typ = schema.TypeFloat
		case "gt_types":
			typ = schema.TypeSmallInt
		}
		for _, n := range names {
			d.Add(schema.Column{Name: "sample_" + n, Type: typ})
		}
		defs[field] = d
	}
	return defs
}

func vcfHeaderDefinition() *schema.Definition {
	return schema.New("vcf_header",
		schema.Column{Name: "header", Type: schema.TypeText},
		schema.Column{Name: "checksum", Type: schema.TypeString, Width: 16},
	)
}

func featuresDefinition() *schema.Definition {
	return schema.New("features",
		schema.Column{Name: "feature", Type: schema.TypeString, Width: 32},
	)
}
