package normalize

// fieldvalue.go models the cell values that come back from the various
// sources as one tagged variant, so cell coercion lives in a single total
// function instead of per-source shape sniffing.
//
// Coercion precedence (first match wins):
//  1. null/absent            -> ""
//  2. lookup object          -> its LookupValue
//  3. person/group object    -> its Email
//  4. multi-valued sequence  -> elements joined with "; "
//  5. ISO-8601 date-time     -> display format ("Jan 2, 2006 3:04 PM")
//  6. anything else          -> stringified raw value

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind discriminates the FieldValue variants.
type Kind int

const (
	KindNull Kind = iota
	KindScalar
	KindLookup
	KindPerson
	KindMulti
	KindDateTime
)

// MultiSeparator joins the elements of a multi-valued field.
const MultiSeparator = "; "

// displayTimeLayout is the human-readable rendering of ISO date-time cells.
const displayTimeLayout = "Jan 2, 2006 3:04 PM"

// FieldValue is one cell value of known kind. Construct with Null, Scalar,
// Lookup, Person, Multi, or DateTime; convert with Cell.
type FieldValue struct {
	kind   Kind
	scalar string
	multi  []string
}

// Null is an absent or null cell.
func Null() FieldValue { return FieldValue{kind: KindNull} }

// Scalar is a plain single value already rendered as a string.
func Scalar(s string) FieldValue { return FieldValue{kind: KindScalar, scalar: s} }

// Lookup is a cross-referenced lookup field carrying its display value.
func Lookup(v string) FieldValue { return FieldValue{kind: KindLookup, scalar: v} }

// Person is a person/group field carrying the principal's email.
func Person(email string) FieldValue { return FieldValue{kind: KindPerson, scalar: email} }

// Multi is a multi-valued field.
func Multi(values []string) FieldValue { return FieldValue{kind: KindMulti, multi: values} }

// DateTime is an ISO-8601 date-time string.
func DateTime(iso string) FieldValue { return FieldValue{kind: KindDateTime, scalar: iso} }

// Kind reports the variant.
func (f FieldValue) Kind() Kind { return f.kind }

// Cell renders the value as the canonical table cell string.
func (f FieldValue) Cell() string {
	switch f.kind {
	case KindNull:
		return ""
	case KindLookup, KindPerson, KindScalar:
		return f.scalar
	case KindMulti:
		return strings.Join(f.multi, MultiSeparator)
	case KindDateTime:
		return formatISO(f.scalar)
	default:
		return ""
	}
}

// Classify converts a decoded JSON value into a FieldValue by shape.
// It is the extractor building block for sources that hand us loosely
// typed item maps (Graph list items in particular).
func Classify(raw any) FieldValue {
	switch v := raw.(type) {
	case nil:
		return Null()
	case map[string]any:
		if lv, ok := v["LookupValue"]; ok {
			return Lookup(Stringify(lv))
		}
		if email, ok := v["Email"]; ok {
			return Person(Stringify(email))
		}
		// Unrecognized object shape: render something stable rather
		// than dropping the value.
		return Scalar(Stringify(v))
	case []any:
		parts := make([]string, 0, len(v))
		for _, el := range v {
			parts = append(parts, Classify(el).Cell())
		}
		return Multi(parts)
	case string:
		if isISODateTime(v) {
			return DateTime(v)
		}
		return Scalar(v)
	default:
		return Scalar(Stringify(v))
	}
}

// Stringify renders a raw decoded value as a string. JSON numbers arrive as
// float64, so integers are rendered without a trailing fraction.
func Stringify(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// isISODateTime reports whether s starts with the YYYY-MM-DDTHH prefix of an
// ISO-8601 date-time. Bare dates without a time component are left alone.
func isISODateTime(s string) bool {
	if len(s) < 13 {
		return false
	}
	for i, c := range s[:13] {
		switch i {
		case 4, 7:
			if c != '-' {
				return false
			}
		case 10:
			if c != 'T' {
				return false
			}
		default:
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}

// formatISO reformats an ISO date-time into the display layout. Values that
// fail to parse are passed through untouched.
func formatISO(s string) string {
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(displayTimeLayout)
		}
	}
	return s
}
