package cascade

import (
	"regexp"

	"github.com/rotisserie/eris"

	"github.com/sells-group/billscan/internal/normalize"
)

// FieldConfig declares one field and its ordered strategies.
type FieldConfig struct {
	Name        string             `yaml:"name"`
	Kind        ValueKind          `yaml:"kind"`
	Anchor      string             `yaml:"anchor,omitempty"`
	Rollover    normalize.Rollover `yaml:"rollover,omitempty"`
	Transforms  []string           `yaml:"transform,omitempty"`
	MinDigits   int                `yaml:"min_digits,omitempty"`
	MaxDigits   int                `yaml:"max_digits,omitempty"`
	Combine     string             `yaml:"combine,omitempty"` // "first" (default) or "sum"
	DefaultFrom string             `yaml:"default_from,omitempty"`
	Strategies  []StrategyConfig   `yaml:"strategies"`
}

// StrategyConfig configures a single strategy. Which keys apply depends on
// Kind.
type StrategyConfig struct {
	Kind StrategyKind `yaml:"kind"`

	// anchored, positional
	Pattern       string `yaml:"pattern,omitempty"`
	Group         int    `yaml:"group,omitempty"`
	Groups        []int  `yaml:"groups,omitempty"`
	Join          string `yaml:"join,omitempty"`
	CaseSensitive bool   `yaml:"case_sensitive,omitempty"`

	// label
	Labels    []string `yaml:"labels,omitempty"`
	Stops     string   `yaml:"stops,omitempty"`
	Direction string   `yaml:"direction,omitempty"` // "after" (default) or "before"

	// line_scan
	Lines    int      `yaml:"lines,omitempty"`
	Contains []string `yaml:"contains,omitempty"`

	// digit_run
	Digits int `yaml:"digits,omitempty"`

	// LowConfidence flags a non-fallback strategy's result as weak.
	LowConfidence bool `yaml:"low_confidence,omitempty"`
}

// Field is a compiled FieldConfig.
type Field struct {
	Name        string
	Kind        ValueKind
	Anchor      string
	Rollover    normalize.Rollover
	MinDigits   int
	MaxDigits   int
	Sum         bool
	DefaultFrom string

	transforms []transform
	strategies []compiledStrategy
}

type compiledStrategy struct {
	kind StrategyKind
	low  bool
	impl strategy
}

var validKinds = map[ValueKind]bool{
	ValueText: true, ValueIdentifier: true, ValueAddress: true, ValueDate: true,
	ValueAmount: true, ValueMagnitude: true, ValueNumber: true, ValueCount: true,
}

// Compile validates fc and compiles its patterns.
func Compile(fc FieldConfig) (*Field, error) {
	if fc.Name == "" {
		return nil, eris.New("cascade: field name is required")
	}
	if !validKinds[fc.Kind] {
		return nil, eris.Errorf("cascade: field %s: unknown kind %q", fc.Name, fc.Kind)
	}
	if len(fc.Strategies) == 0 {
		return nil, eris.Errorf("cascade: field %s: no strategies", fc.Name)
	}
	switch fc.Rollover {
	case normalize.RolloverNone, normalize.RolloverForward, normalize.RolloverBackward:
	default:
		return nil, eris.Errorf("cascade: field %s: unknown rollover %q", fc.Name, fc.Rollover)
	}
	if fc.Rollover != normalize.RolloverNone && fc.Anchor == "" {
		return nil, eris.Errorf("cascade: field %s: rollover requires an anchor", fc.Name)
	}
	if fc.Combine != "" && fc.Combine != "first" && fc.Combine != "sum" {
		return nil, eris.Errorf("cascade: field %s: unknown combine %q", fc.Name, fc.Combine)
	}

	f := &Field{
		Name:        fc.Name,
		Kind:        fc.Kind,
		Anchor:      fc.Anchor,
		Rollover:    fc.Rollover,
		MinDigits:   fc.MinDigits,
		MaxDigits:   fc.MaxDigits,
		Sum:         fc.Combine == "sum",
		DefaultFrom: fc.DefaultFrom,
	}

	for _, name := range fc.Transforms {
		tr, ok := transforms[name]
		if !ok {
			return nil, eris.Errorf("cascade: field %s: unknown transform %q", fc.Name, name)
		}
		f.transforms = append(f.transforms, tr)
	}

	seenFallback := false
	for i, sc := range fc.Strategies {
		impl, err := compileStrategy(sc)
		if err != nil {
			return nil, eris.Wrapf(err, "cascade: field %s: strategy %d", fc.Name, i)
		}
		if sc.Kind.IsFallback() {
			seenFallback = true
		} else if seenFallback {
			return nil, eris.Errorf("cascade: field %s: %s strategy after a fallback", fc.Name, sc.Kind)
		}
		f.strategies = append(f.strategies, compiledStrategy{
			kind: sc.Kind,
			low:  sc.LowConfidence || sc.Kind.IsFallback(),
			impl: impl,
		})
	}
	return f, nil
}

// CompileAll compiles a field set. Anchors and default_from must name a
// field declared earlier in the set.
func CompileAll(fcs []FieldConfig) ([]*Field, error) {
	out := make([]*Field, 0, len(fcs))
	seen := make(map[string]bool, len(fcs))
	for _, fc := range fcs {
		if seen[fc.Name] {
			return nil, eris.Errorf("cascade: duplicate field %s", fc.Name)
		}
		if fc.Anchor != "" && !seen[fc.Anchor] {
			return nil, eris.Errorf("cascade: field %s: anchor %s must be declared first", fc.Name, fc.Anchor)
		}
		if fc.DefaultFrom != "" && !seen[fc.DefaultFrom] {
			return nil, eris.Errorf("cascade: field %s: default_from %s must be declared first", fc.Name, fc.DefaultFrom)
		}
		f, err := Compile(fc)
		if err != nil {
			return nil, err
		}
		seen[fc.Name] = true
		out = append(out, f)
	}
	return out, nil
}

// StrategyKinds lists the kinds of f's strategies in evaluation order.
func (f *Field) StrategyKinds() []StrategyKind {
	out := make([]StrategyKind, len(f.strategies))
	for i, s := range f.strategies {
		out[i] = s.kind
	}
	return out
}

func compileStrategy(sc StrategyConfig) (strategy, error) {
	switch sc.Kind {
	case KindAnchored, KindPositional:
		if sc.Pattern == "" {
			return nil, eris.New("pattern is required")
		}
		expr := sc.Pattern
		if !sc.CaseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, eris.Wrapf(err, "compile %q", sc.Pattern)
		}
		groups := sc.Groups
		if len(groups) == 0 {
			g := sc.Group
			if g == 0 && re.NumSubexp() > 0 {
				g = 1
			}
			groups = []int{g}
		}
		for _, g := range groups {
			if g < 0 || g > re.NumSubexp() {
				return nil, eris.Errorf("group %d out of range for %q", g, sc.Pattern)
			}
		}
		join := sc.Join
		if join == "" {
			join = " "
		}
		return &patternStrategy{re: re, groups: groups, join: join}, nil

	case KindLabel:
		if len(sc.Labels) == 0 {
			return nil, eris.New("labels are required")
		}
		switch sc.Direction {
		case "", "after":
			return &labelStrategy{labels: sc.Labels, stops: sc.Stops}, nil
		case "before":
			return &labelStrategy{labels: sc.Labels, before: true}, nil
		default:
			return nil, eris.Errorf("unknown direction %q", sc.Direction)
		}

	case KindLineScan:
		lines := sc.Lines
		if lines <= 0 {
			lines = defaultScanLines
		}
		contains := sc.Contains
		if len(contains) == 0 {
			contains = streetSuffixes
		}
		return &lineScanStrategy{lines: lines, contains: contains}, nil

	case KindDigitRun:
		if sc.Digits <= 0 {
			return nil, eris.New("digits must be positive")
		}
		return &digitRunStrategy{n: sc.Digits}, nil

	case KindFirstAmount:
		return firstAmountStrategy{}, nil

	default:
		return nil, eris.Errorf("unknown strategy kind %q", sc.Kind)
	}
}
