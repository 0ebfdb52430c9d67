// Package storage files bill PDFs under a stable per-property layout:
//
//	bills/{address-slug}/{provider-slug}_{YYYY-MM}.pdf
//
// Re-filing identical bytes is a no-op; different bytes under an existing
// name are written beside it with a _YYYYMMDD_HHMMSS suffix.
package storage

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/billscan/internal/config"
	"github.com/sells-group/billscan/internal/model"
	"github.com/sells-group/billscan/internal/normalize"
)

// Root is the top-level directory (or key prefix) for filed bills.
const Root = "bills"

// timestampLayout formats the collision suffix.
const timestampLayout = "20060102_150405"

// ErrNotFileable is returned when a record lacks the address or date needed
// to build a key.
var ErrNotFileable = eris.New("storage: record has no service location or filing date")

// Key identifies one filed bill.
type Key struct {
	Address     string
	Provider    string
	BillingDate model.Date
}

// Path returns the slash-separated relative path for key.
func Path(key Key) string {
	name := normalize.ProviderToSlug(key.Provider) + "_" + key.BillingDate.Format("2006-01") + ".pdf"
	return path.Join(Root, normalize.AddressToSlug(key.Address), name)
}

// KeyFor builds the key for rec, filing by bill date, then billing period
// end, then due date.
func KeyFor(rec model.BillRecord) (Key, error) {
	date, ok := rec.FilingDate()
	if !ok || rec.ServiceLocation == "" || rec.ServiceLocation == model.Sentinel {
		return Key{}, ErrNotFileable
	}
	if normalize.AddressToSlug(rec.ServiceLocation) == "" {
		return Key{}, ErrNotFileable
	}
	return Key{Address: rec.ServiceLocation, Provider: rec.Provider, BillingDate: date}, nil
}

// Storage files bill PDFs.
type Storage interface {
	// Save files content under key and returns where it landed.
	Save(ctx context.Context, key Key, content []byte) (string, error)
}

// withTimestamp inserts the collision suffix before the extension.
func withTimestamp(p string, now time.Time) string {
	ext := path.Ext(p)
	return strings.TrimSuffix(p, ext) + "_" + now.Format(timestampLayout) + ext
}

// New returns the backend named by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Backend {
	case "local", "":
		return NewLocal(cfg.Root), nil
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, eris.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}
