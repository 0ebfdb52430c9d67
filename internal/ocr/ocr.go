// Package ocr turns bill PDFs into plain text.
package ocr

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/billscan/internal/config"
	"github.com/sells-group/billscan/internal/resilience"
)

// Extractor extracts text content from PDF files.
type Extractor interface {
	// Name identifies the extractor in logs and metrics.
	Name() string
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires mistral_api_key")
		}
		opts := []MistralOption{
			WithRetry(resilience.DefaultRetryConfig().WithMaxAttempts(cfg.MaxRetries)),
		}
		if cfg.RateLimit > 0 {
			opts = append(opts, WithRateLimit(rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)))
		}
		if cfg.TimeoutSecs > 0 {
			opts = append(opts, WithTimeout(time.Duration(cfg.TimeoutSecs)*time.Second))
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel, opts...), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}
