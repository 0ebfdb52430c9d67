package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/billscan/internal/model"
)

// FileError is a per-file failure inside a batch.
type FileError struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// Error implements error.
func (e FileError) Error() string { return e.Path + ": " + e.Err.Error() }

// BatchResult holds every outcome of ParseDir, ordered by file name.
type BatchResult struct {
	Results []*Result
	Errors  []FileError
}

// Records returns the parsed records in file order.
func (b *BatchResult) Records() []model.BillRecord {
	out := make([]model.BillRecord, len(b.Results))
	for i, r := range b.Results {
		out[i] = r.Record
	}
	return out
}

// Attention counts records flagged for review.
func (b *BatchResult) Attention() int {
	n := 0
	for _, r := range b.Results {
		if r.Record.RequiresAttention {
			n++
		}
	}
	return n
}

// Progress is called once per file as it completes. It may be called from
// several goroutines at once.
type Progress func(path string, res *Result, err error)

// ListPDFs returns the *.pdf files directly inside dir, sorted.
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, eris.Wrapf(ErrFileNotFound, "ingest: %s", dir)
		}
		return nil, eris.Wrapf(err, "ingest: read dir %s", dir)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// ParseDir runs ParseFile over every PDF in dir with at most concurrency
// files in flight. A failing file is recorded and does not stop the batch;
// cancelling ctx does.
func (p *Pipeline) ParseDir(ctx context.Context, providerName, dir string, concurrency int, opts Options, progress Progress) (*BatchResult, error) {
	if _, err := p.Registry.Get(providerName); err != nil {
		return nil, err
	}
	paths, err := ListPDFs(dir)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("ingest: processing directory",
		zap.String("dir", dir),
		zap.Int("files", len(paths)),
		zap.Int("concurrency", concurrency),
	)

	results := make([]*Result, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := p.ParseFile(gctx, providerName, path, opts)
			results[i], errs[i] = res, err
			if progress != nil {
				progress(path, res, err)
			}
			if err != nil && gctx.Err() == nil {
				zap.L().Warn("ingest: file failed", zap.String("path", path), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "ingest: batch cancelled")
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "ingest: batch cancelled")
	}

	out := &BatchResult{}
	for i, path := range paths {
		if errs[i] != nil {
			out.Errors = append(out.Errors, FileError{Path: path, Err: errs[i]})
			continue
		}
		out.Results = append(out.Results, results[i])
	}

	zap.L().Info("ingest: batch complete",
		zap.Int("parsed", len(out.Results)),
		zap.Int("failed", len(out.Errors)),
		zap.Int("attention", out.Attention()),
	)
	return out, nil
}
