package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/billscan/internal/config"
	"github.com/sells-group/billscan/internal/resilience"
)

func writePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bill.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test content"), 0o644))
	return path
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestNewExtractor(t *testing.T) {
	t.Parallel()
	ext, err := NewExtractor(config.OCRConfig{Provider: "local", PdfToTextPath: "/usr/bin/pdftotext"})
	require.NoError(t, err)
	assert.IsType(t, &PdfToText{}, ext)
	assert.Equal(t, "pdftotext", ext.Name())

	ext, err = NewExtractor(config.OCRConfig{})
	require.NoError(t, err)
	assert.IsType(t, &PdfToText{}, ext)

	ext, err = NewExtractor(config.OCRConfig{Provider: "mistral", MistralKey: "k", RateLimit: 2, MaxRetries: 5, TimeoutSecs: 10})
	require.NoError(t, err)
	m, ok := ext.(*MistralOCR)
	require.True(t, ok)
	assert.Equal(t, "mistral", m.Name())
	assert.Equal(t, 5, m.retry.MaxAttempts)
	require.NotNil(t, m.limiter)
	assert.Equal(t, 10*time.Second, m.client.Timeout)
}

func TestNewExtractor_Errors(t *testing.T) {
	t.Parallel()
	_, err := NewExtractor(config.OCRConfig{Provider: "mistral"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mistral provider requires mistral_api_key")

	_, err = NewExtractor(config.OCRConfig{Provider: "tesseract"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "tesseract"`)
}

func TestPdfToText_BinPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "pdftotext", NewPdfToText("").binPath)
	assert.Equal(t, "/custom/pdftotext", NewPdfToText("/custom/pdftotext").binPath)
}

func TestPdfToText_ExtractText(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	fakeBin := filepath.Join(dir, "pdftotext")
	// Echo the arguments so the test can check -layout and stdout output.
	script := "#!/bin/sh\necho \"Your Energy Bill\"\necho \"args: $@\"\n"
	require.NoError(t, os.WriteFile(fakeBin, []byte(script), 0o755))

	text, err := NewPdfToText(fakeBin).ExtractText(context.Background(), "/tmp/duke.pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "Your Energy Bill")
	assert.Contains(t, text, "args: -layout /tmp/duke.pdf -")
}

func TestPdfToText_Failure(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	fakeBin := filepath.Join(dir, "pdftotext")
	script := "#!/bin/sh\necho 'Syntax Error: May not be a PDF file' >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(fakeBin, []byte(script), 0o755))

	_, err := NewPdfToText(fakeBin).ExtractText(context.Background(), "/tmp/not.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
	assert.Contains(t, err.Error(), "May not be a PDF file")

	_, err = NewPdfToText("/nonexistent/pdftotext").ExtractText(context.Background(), "/tmp/test.pdf")
	require.Error(t, err)
}

func TestMistralOCR_Defaults(t *testing.T) {
	t.Parallel()
	m := NewMistralOCR("key", "")
	assert.Equal(t, defaultMistralModel, m.model)
	assert.Equal(t, mistralOCREndpoint, m.endpoint)
	assert.Nil(t, m.limiter)
	assert.NotNil(t, m.retry.OnRetry)

	assert.Equal(t, "custom-model", NewMistralOCR("key", "custom-model").model)
}

func TestMistralOCR_ExtractText(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req mistralOCRRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, "document_url", req.Document.Type)
		assert.Contains(t, req.Document.DocumentURL, "data:application/pdf;base64,")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mistralOCRResponse{ //nolint:errcheck
			Pages: []mistralOCRPage{
				{Index: 0, Markdown: "Account number 9101 7650 0588"},
				{Index: 1, Markdown: "Total Amount Due Jan 26 $140.14"},
			},
		})
	}))
	defer srv.Close()

	m := NewMistralOCR("test-key", "test-model", WithEndpoint(srv.URL))
	text, err := m.ExtractText(context.Background(), writePDF(t))
	require.NoError(t, err)
	assert.Equal(t, "Account number 9101 7650 0588\n\nTotal Amount Due Jan 26 $140.14", text)
}

func TestMistralOCR_RetriesTransientStatus(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(mistralOCRResponse{Pages: []mistralOCRPage{{Markdown: "ok"}}}) //nolint:errcheck
	}))
	defer srv.Close()

	m := NewMistralOCR("k", "", WithEndpoint(srv.URL), WithRetry(fastRetry()))
	text, err := m.ExtractText(context.Background(), writePDF(t))
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestMistralOCR_PermanentStatusNotRetried(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer srv.Close()

	m := NewMistralOCR("bad-key", "", WithEndpoint(srv.URL), WithRetry(fastRetry()))
	_, err := m.ExtractText(context.Background(), writePDF(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mistral API returned 401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestMistralOCR_RateLimitHonorsContext(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(mistralOCRResponse{}) //nolint:errcheck
	}))
	defer srv.Close()

	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	require.True(t, limiter.Allow()) // drain the only token

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	m := NewMistralOCR("k", "", WithEndpoint(srv.URL), WithRateLimit(limiter), WithRetry(fastRetry()))
	_, err := m.ExtractText(ctx, writePDF(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
}

func TestMistralOCR_MalformedResponse(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{invalid json`))
	}))
	defer srv.Close()

	m := NewMistralOCR("k", "", WithEndpoint(srv.URL), WithRetry(fastRetry()))
	_, err := m.ExtractText(context.Background(), writePDF(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal mistral response")
}

func TestMistralOCR_EmptyPages(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(mistralOCRResponse{Pages: []mistralOCRPage{}}) //nolint:errcheck
	}))
	defer srv.Close()

	m := NewMistralOCR("k", "", WithEndpoint(srv.URL))
	text, err := m.ExtractText(context.Background(), writePDF(t))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestMistralOCR_FileNotFound(t *testing.T) {
	t.Parallel()
	_, err := NewMistralOCR("key", "").ExtractText(context.Background(), "/nonexistent/file.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read PDF")
}
