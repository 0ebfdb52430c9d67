// Package classify assigns a document type by keyword-indicator voting.
package classify

import (
	"strings"

	"github.com/sells-group/billscan/internal/model"
)

// MaxNoticeThreshold is the notice vote count that always makes a document an
// attention notice. Providers may lower the threshold but never raise it.
const MaxNoticeThreshold = 2

const (
	defaultBillThreshold = 2

	// contextWindow is how far before a notice indicator an informational
	// phrase may sit and still discount it.
	contextWindow = 120
)

// Config is a provider's classification vocabulary.
type Config struct {
	NoticeIndicators []string `yaml:"notice_indicators"`
	BillIndicators   []string `yaml:"bill_indicators"`
	NoticeThreshold  int      `yaml:"notice_threshold"`
	BillThreshold    int      `yaml:"bill_threshold"`

	// BillMarkers, when all present, classify a non-notice document as a
	// bill regardless of the bill score ("bill type" + "normal").
	BillMarkers []string `yaml:"bill_markers"`

	// InformationalContext phrases discount a notice indicator that follows
	// them closely, e.g. "if your bill shows a disconnect notice".
	InformationalContext []string `yaml:"informational_context"`
}

// Scores is the raw vote behind a classification.
type Scores struct {
	Notice  int  `json:"notice"`
	Bill    int  `json:"bill"`
	Markers bool `json:"markers"`
}

// Classifier scores text against one provider's indicators. It is immutable
// and safe for concurrent use.
type Classifier struct {
	notice          []string
	bill            []string
	markers         []string
	context         []string
	noticeThreshold int
	billThreshold   int
}

// New builds a Classifier, applying default thresholds of 2. A notice
// threshold above MaxNoticeThreshold is capped.
func New(cfg Config) *Classifier {
	c := &Classifier{
		notice:          lowerAll(cfg.NoticeIndicators),
		bill:            lowerAll(cfg.BillIndicators),
		markers:         lowerAll(cfg.BillMarkers),
		context:         lowerAll(cfg.InformationalContext),
		noticeThreshold: cfg.NoticeThreshold,
		billThreshold:   cfg.BillThreshold,
	}
	if c.noticeThreshold <= 0 || c.noticeThreshold > MaxNoticeThreshold {
		c.noticeThreshold = MaxNoticeThreshold
	}
	if c.billThreshold <= 0 {
		c.billThreshold = defaultBillThreshold
	}
	return c
}

// Score counts the indicators present in text.
func (c *Classifier) Score(text string) Scores {
	lower := strings.ToLower(text)

	var s Scores
	for _, ind := range c.notice {
		if c.noticePresent(lower, ind) {
			s.Notice++
		}
	}
	for _, ind := range c.bill {
		if strings.Contains(lower, ind) {
			s.Bill++
		}
	}
	if len(c.markers) > 0 {
		s.Markers = true
		for _, m := range c.markers {
			if !strings.Contains(lower, m) {
				s.Markers = false
				break
			}
		}
	}
	return s
}

// Classify returns AttentionNotice when enough notice indicators are present,
// otherwise Bill when the bill score (or marker set) qualifies, otherwise
// Unknown. Notices always win over bill boilerplate.
func (c *Classifier) Classify(text string) model.DocumentType {
	return c.Decide(c.Score(text))
}

// Decide applies the decision rule to precomputed scores.
func (c *Classifier) Decide(s Scores) model.DocumentType {
	switch {
	case s.Notice >= c.noticeThreshold:
		return model.DocumentAttentionNotice
	case s.Markers || s.Bill >= c.billThreshold:
		return model.DocumentBill
	default:
		return model.DocumentUnknown
	}
}

// noticePresent reports whether ind occurs at least once outside an
// informational context.
func (c *Classifier) noticePresent(lower, ind string) bool {
	offset := 0
	for {
		idx := strings.Index(lower[offset:], ind)
		if idx < 0 {
			return false
		}
		if !c.informational(lower, offset+idx) {
			return true
		}
		offset += idx + len(ind)
	}
}

func (c *Classifier) informational(lower string, idx int) bool {
	from := max(0, idx-contextWindow)
	window := lower[from:idx]
	for _, phrase := range c.context {
		if strings.Contains(window, phrase) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
