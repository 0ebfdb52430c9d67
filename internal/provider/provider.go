// Package provider loads declarative per-provider extraction configs and
// compiles them into classifiers and field sets for the cascade engine.
package provider

import (
	"os"
	"slices"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/billscan/internal/cascade"
	"github.com/sells-group/billscan/internal/classify"
	"github.com/sells-group/billscan/internal/model"
	"github.com/sells-group/billscan/internal/normalize"
)

// Service is the kind of utility a provider bills for.
type Service string

// Services.
const (
	ServiceElectric Service = "electric"
	ServiceWater    Service = "water"
	ServiceGas      Service = "gas"
	ServiceInternet Service = "internet"
)

func (s Service) valid() bool {
	switch s {
	case ServiceElectric, ServiceWater, ServiceGas, ServiceInternet:
		return true
	}
	return false
}

// Config is the YAML form of a provider.
type Config struct {
	Name        string          `yaml:"name"`
	DisplayName string          `yaml:"display_name"`
	Service     Service         `yaml:"service"`
	Classifier  classify.Config `yaml:"classifier"`
	Required    []string        `yaml:"required"`

	// Identity fields are extracted for every document type.
	Identity []cascade.FieldConfig `yaml:"identity"`
	Bill     []cascade.FieldConfig `yaml:"bill"`
	Notice   []cascade.FieldConfig `yaml:"notice"`
}

// Provider is a compiled Config. It is immutable after construction and safe
// for concurrent use.
type Provider struct {
	Name        string
	Slug        string
	DisplayName string
	Service     Service
	Required    []string

	classifier *classify.Classifier
	bill       []*cascade.Field
	notice     []*cascade.Field
}

// Parse decodes and compiles a provider from YAML.
func Parse(data []byte) (*Provider, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, eris.Wrap(err, "provider: decode config")
	}
	return New(cfg)
}

// LoadConfig reads and compiles the provider at path.
func LoadConfig(path string) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "provider: read %s", path)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, eris.Wrapf(err, "provider: load %s", path)
	}
	return p, nil
}

// New validates cfg and compiles its patterns.
func New(cfg Config) (*Provider, error) {
	if cfg.Name == "" {
		return nil, eris.New("provider: name is required")
	}
	if !cfg.Service.valid() {
		return nil, eris.Errorf("provider: %s: unknown service %q", cfg.Name, cfg.Service)
	}
	if len(cfg.Classifier.BillIndicators) == 0 && len(cfg.Classifier.BillMarkers) == 0 {
		return nil, eris.Errorf("provider: %s: classifier has no bill indicators", cfg.Name)
	}
	if cfg.Classifier.NoticeThreshold > classify.MaxNoticeThreshold {
		return nil, eris.Errorf("provider: %s: notice_threshold must not exceed %d", cfg.Name, classify.MaxNoticeThreshold)
	}

	bill, err := cascade.CompileAll(concat(cfg.Identity, cfg.Bill))
	if err != nil {
		return nil, eris.Wrapf(err, "provider: %s: bill fields", cfg.Name)
	}
	notice, err := cascade.CompileAll(concat(cfg.Identity, cfg.Notice))
	if err != nil {
		return nil, eris.Wrapf(err, "provider: %s: notice fields", cfg.Name)
	}
	for _, name := range cfg.Required {
		if !slices.ContainsFunc(bill, func(f *cascade.Field) bool { return f.Name == name }) {
			return nil, eris.Errorf("provider: %s: required field %s is not declared", cfg.Name, name)
		}
	}

	display := cfg.DisplayName
	if display == "" {
		display = cfg.Name
	}
	return &Provider{
		Name:        cfg.Name,
		Slug:        normalize.ProviderToSlug(cfg.Name),
		DisplayName: display,
		Service:     cfg.Service,
		Required:    slices.Clone(cfg.Required),
		classifier:  classify.New(cfg.Classifier),
		bill:        bill,
		notice:      notice,
	}, nil
}

// Classifier returns the provider's document classifier.
func (p *Provider) Classifier() *classify.Classifier {
	return p.classifier
}

// Fields returns the field set for a document type. Unknown documents use the
// bill set so whatever is recoverable still reaches the reviewer.
func (p *Provider) Fields(dt model.DocumentType) []*cascade.Field {
	if dt == model.DocumentAttentionNotice {
		return p.notice
	}
	return p.bill
}

// FieldNames lists the field names for a document type in evaluation order.
func (p *Provider) FieldNames(dt model.DocumentType) []string {
	fields := p.Fields(dt)
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

func concat(a, b []cascade.FieldConfig) []cascade.FieldConfig {
	out := make([]cascade.FieldConfig, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
