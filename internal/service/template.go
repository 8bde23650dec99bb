package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/everkeep/backend/internal/model"
)

// SegmentKind discriminates how a segment spec resolves its text.
type SegmentKind string

const (
	SegText   SegmentKind = "TEXT"
	SegField  SegmentKind = "FIELD"
	SegMoney  SegmentKind = "MONEY"
	SegDate   SegmentKind = "DATE"
	SegNumber SegmentKind = "NUMBER"
)

// SegmentSpec is one slot of a statement template. Path-ish fields are dotted
// paths into the payload.
type SegmentSpec struct {
	Kind           SegmentKind
	Text           string // TEXT literal
	Path           string // FIELD/MONEY amount/DATE/NUMBER value
	Fallback       string // FIELD only; "" means drop on absence
	CurrencyPath   string // MONEY only; resolves the ISO code
	SourceIDPath   string // optional deep-link id
	SourceIDPrefix string // kind part of "{kind}:{id}"
}

// Template is the fixed rendering recipe for one statement type.
type Template struct {
	RequiredPaths []string
	Segments      []SegmentSpec
}

// Renderer turns typed event payloads into display segments. Pure: output
// depends only on the template registry, the payload and the locale.
type Renderer struct {
	templates map[model.StatementType]Template
}

// NewRenderer builds a renderer over the default template registry.
func NewRenderer() *Renderer {
	return &Renderer{templates: defaultTemplates()}
}

// Render resolves the template for t against payload. Missing required paths
// fail fast with a ValidationError naming every absent path; an unknown type
// fails with ErrTemplateNotFound. locale defaults to English when undefined.
func (r *Renderer) Render(t model.StatementType, payload map[string]any, locale language.Tag) ([]model.Segment, error) {
	tpl, ok := r.templates[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, t)
	}

	var missing []string
	for _, p := range tpl.RequiredPaths {
		if _, ok := resolvePath(payload, p); !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{StatementType: t, MissingPaths: missing}
	}

	if locale == language.Und {
		locale = language.English
	}
	printer := message.NewPrinter(locale)

	segments := make([]model.Segment, 0, len(tpl.Segments))
	for _, spec := range tpl.Segments {
		seg, ok := renderSegment(spec, payload, locale, printer)
		if !ok {
			continue
		}
		segments = append(segments, seg)
	}
	if len(segments) == 0 {
		return nil, &ValidationError{StatementType: t, Reason: "template produced no segments"}
	}
	return segments, nil
}

func renderSegment(spec SegmentSpec, payload map[string]any, locale language.Tag, printer *message.Printer) (model.Segment, bool) {
	switch spec.Kind {
	case SegText:
		return model.Segment{Text: spec.Text}, true

	case SegField:
		v, ok := resolvePath(payload, spec.Path)
		text := ""
		if ok {
			text, ok = displayString(v)
		}
		if !ok || text == "" {
			if spec.Fallback == "" {
				return model.Segment{}, false
			}
			text = spec.Fallback
		}
		return derived(spec, payload, text), true

	case SegMoney:
		amount, ok := resolveInt(payload, spec.Path)
		if !ok {
			return model.Segment{}, false
		}
		code, ok := resolvePath(payload, spec.CurrencyPath)
		codeStr, _ := code.(string)
		if !ok || codeStr == "" {
			return model.Segment{}, false
		}
		unit, err := currency.ParseISO(codeStr)
		if err != nil {
			return model.Segment{}, false
		}
		sym := fmt.Sprint(currency.NarrowSymbol(unit))
		text := printer.Sprintf("%s%.2f", sym, float64(amount)/100)
		return derived(spec, payload, text), true

	case SegDate:
		v, ok := resolvePath(payload, spec.Path)
		if !ok {
			return model.Segment{}, false
		}
		ts, ok := parseTimestamp(v)
		if !ok {
			return model.Segment{}, false
		}
		return derived(spec, payload, ts.Format("Jan 2, 2006 3:04 PM")), true

	case SegNumber:
		v, ok := resolvePath(payload, spec.Path)
		if !ok {
			return model.Segment{}, false
		}
		f, ok := toFloat(v)
		if !ok {
			return model.Segment{}, false
		}
		return derived(spec, payload, printer.Sprint(number.Decimal(f))), true
	}
	return model.Segment{}, false
}

// derived builds a non-literal segment, attaching the deep-link ref when the
// spec declares a source id path and it resolves.
func derived(spec SegmentSpec, payload map[string]any, text string) model.Segment {
	seg := model.Segment{Text: text, Derived: true}
	if spec.SourceIDPath != "" {
		if v, ok := resolvePath(payload, spec.SourceIDPath); ok {
			if id, ok := displayString(v); ok && id != "" {
				if spec.SourceIDPrefix != "" {
					seg.SourceRef = spec.SourceIDPrefix + ":" + id
				} else {
					seg.SourceRef = id
				}
			}
		}
	}
	return seg
}

// resolvePath walks a dotted path through nested string-keyed maps.
func resolvePath(payload map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var cur any = payload
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

func resolveInt(payload map[string]any, path string) (int64, bool) {
	v, ok := resolvePath(payload, path)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func displayString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10), true
		}
		return strconv.FormatFloat(s, 'f', -1, 64), true
	}
	return "", false
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}
