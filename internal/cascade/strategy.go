package cascade

import (
	"regexp"
	"strings"

	"github.com/sells-group/billscan/internal/normalize"
	"github.com/sells-group/billscan/internal/scan"
)

const defaultScanLines = 40

// streetSuffixes are the line_scan defaults. Long forms come first so
// " ST" does not cut "STREET" short.
var streetSuffixes = []string{
	" STREET", " AVENUE", " DRIVE", " COURT", " ROAD", " LANE", " CIRCLE",
	" PLACE", " TERRACE", " PARKWAY", " BOULEVARD",
	" ST", " AVE", " DR", " CT", " RD", " LN", " WAY", " BLVD", " CIR",
	" PL", " TER", " PKWY",
}

// strategy locates a raw candidate string. Implementations never fail; a
// miss is reported as ok == false.
type strategy interface {
	find(text string) (raw string, ok bool)
}

type patternStrategy struct {
	re     *regexp.Regexp
	groups []int
	join   string
}

func (s *patternStrategy) find(text string) (string, bool) {
	m := s.re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	parts := make([]string, 0, len(s.groups))
	for _, g := range s.groups {
		if p := strings.TrimSpace(m[g]); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, s.join), true
}

type labelStrategy struct {
	labels []string
	stops  string
	before bool
}

func (s *labelStrategy) find(text string) (string, bool) {
	if !s.before {
		return scan.ValueAfterLabel(text, s.labels, s.stops)
	}
	for _, label := range s.labels {
		if v, ok := scan.NumberBefore(text, label); ok {
			return v, true
		}
	}
	return "", false
}

// lineScanStrategy walks the head of the document for a line that starts
// with a house number and contains a street suffix, skipping garbled lines.
type lineScanStrategy struct {
	lines    int
	contains []string
}

func (s *lineScanStrategy) find(text string) (string, bool) {
	for _, line := range scan.Lines(text, s.lines) {
		if line[0] < '0' || line[0] > '9' || normalize.IsGarbled(line) {
			continue
		}
		upper := asciiUpper(line)
		for _, token := range s.contains {
			idx := strings.Index(upper, asciiUpper(token))
			if idx < 0 {
				continue
			}
			candidate := normalize.CollapseSpaces(line[:idx+len(token)])
			if len(candidate) > 5 {
				return asciiUpper(candidate), true
			}
		}
	}
	return "", false
}

type digitRunStrategy struct {
	n int
}

func (s *digitRunStrategy) find(text string) (string, bool) {
	return scan.DigitRun(text, s.n)
}

type firstAmountStrategy struct{}

func (firstAmountStrategy) find(text string) (string, bool) {
	return scan.FirstAmount(text)
}

// asciiUpper keeps byte offsets stable, unlike strings.ToUpper.
func asciiUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
