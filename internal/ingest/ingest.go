// Package ingest runs bill documents end to end: PDF text extraction,
// record assembly, optional filing of the PDF, and optional persistence.
package ingest

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/billscan/internal/assemble"
	"github.com/sells-group/billscan/internal/metrics"
	"github.com/sells-group/billscan/internal/model"
	"github.com/sells-group/billscan/internal/ocr"
	"github.com/sells-group/billscan/internal/provider"
	"github.com/sells-group/billscan/internal/storage"
	"github.com/sells-group/billscan/internal/store"
)

var (
	// ErrFileNotFound is returned when the input path does not exist.
	ErrFileNotFound = eris.New("ingest: file not found")
	// ErrNotPDF is returned when the input is not a PDF.
	ErrNotPDF = eris.New("ingest: not a PDF")
)

// Options are per-document settings.
type Options struct {
	// Account is portal-discovered identity, if any.
	Account *model.AccountInfo
	// ReferenceYear overrides the year for dates printed without one.
	ReferenceYear int
	// File copies the PDF into Storage.
	File bool
	// Save persists the record in Store.
	Save bool
	// SourcePath, when set, is recorded instead of the path that was read.
	SourcePath string
}

// Result is one parsed document.
type Result struct {
	assemble.Result
	// ID is the store id when the record was saved.
	ID string `json:"id,omitempty"`
}

// Pipeline wires the collaborators. Registry is required; Extractor is
// required for ParseFile. Storage, Store and Metrics may be nil.
type Pipeline struct {
	Registry  *provider.Registry
	Extractor ocr.Extractor
	Storage   storage.Storage
	Store     store.Store
	Metrics   *metrics.Metrics
	// Now fixes the clock for ExtractedAt and date plausibility.
	Now func() time.Time
}

// ParseFile extracts, assembles and optionally files and saves the PDF at
// path. A missing file or non-PDF input is an error; unreadable text is not,
// the record carries the no-text attention reason instead.
func (p *Pipeline) ParseFile(ctx context.Context, providerName, path string, opts Options) (*Result, error) {
	prov, err := p.Registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, eris.Wrapf(ErrFileNotFound, "ingest: %s", path)
		}
		return nil, eris.Wrapf(err, "ingest: stat %s", path)
	}
	if info.IsDir() {
		return nil, eris.Errorf("ingest: %s is a directory", path)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: detect type of %s", path)
	}
	if !mt.Is("application/pdf") {
		return nil, eris.Wrapf(ErrNotPDF, "ingest: %s is %s", path, mt.String())
	}

	text := p.extract(ctx, path)
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "ingest: cancelled")
	}
	return p.finish(ctx, prov, text, path, opts)
}

// ParseText assembles already-extracted text. Filing is skipped since there is
// no PDF; Save is honored.
func (p *Pipeline) ParseText(ctx context.Context, providerName, text, sourcePath string, opts Options) (*Result, error) {
	prov, err := p.Registry.Get(providerName)
	if err != nil {
		return nil, err
	}
	opts.File = false
	return p.finish(ctx, prov, text, sourcePath, opts)
}

// extract runs OCR. Failures are logged and yield empty text.
func (p *Pipeline) extract(ctx context.Context, path string) string {
	if p.Extractor == nil {
		zap.L().Warn("ingest: no text extractor configured", zap.String("path", path))
		return ""
	}
	start := time.Now()
	text, err := p.Extractor.ExtractText(ctx, path)
	p.Metrics.ObserveOCR(p.Extractor.Name(), time.Since(start))
	if err != nil {
		zap.L().Warn("ingest: text extraction failed",
			zap.String("path", path),
			zap.String("extractor", p.Extractor.Name()),
			zap.Error(err),
		)
		return ""
	}
	return text
}

func (p *Pipeline) finish(ctx context.Context, prov *provider.Provider, text, path string, opts Options) (*Result, error) {
	a := assemble.New(prov)
	if p.Now != nil {
		a = a.WithNow(p.Now())
	}
	recorded := path
	if opts.SourcePath != "" {
		recorded = opts.SourcePath
	}
	out := &Result{Result: a.Run(text, recorded, assemble.Options{
		Account:       opts.Account,
		ReferenceYear: opts.ReferenceYear,
	})}
	p.Metrics.ObserveRecord(out.Record, out.Resolution)

	if opts.File && p.Storage != nil {
		if err := p.file(ctx, out, path); err != nil {
			return nil, err
		}
	}

	if opts.Save && p.Store != nil {
		id, err := p.Store.SaveRecord(ctx, out.Record)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: save record for %s", path)
		}
		out.ID = id
	}

	rec := out.Record
	zap.L().Info("ingest: parsed document",
		zap.String("provider", rec.Provider),
		zap.String("path", recorded),
		zap.String("document_type", string(rec.DocumentType)),
		zap.String("account_number", rec.AccountNumber),
		zap.Float64("amount_due", rec.AmountDue),
		zap.Bool("requires_attention", rec.RequiresAttention),
	)
	return out, nil
}

func (p *Pipeline) file(ctx context.Context, out *Result, path string) error {
	key, err := storage.KeyFor(out.Record)
	if errors.Is(err, storage.ErrNotFileable) {
		zap.L().Info("ingest: not filing bill without address or date", zap.String("path", path))
		return nil
	}
	if err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "ingest: read %s", path)
	}
	loc, err := p.Storage.Save(ctx, key, content)
	if err != nil {
		return eris.Wrapf(err, "ingest: file %s", path)
	}
	out.Record = out.Record.WithStoragePath(loc)
	return nil
}
