package query

import "strings"

// Record is a product row as seen by Matches.
type Record interface {
	Text(TextColumn) string
	Number(NumberColumn) int64
	Bool(BoolColumn) bool
	Variants() []VariantRecord
}

// VariantRecord reports ok=false for a NULL column.
type VariantRecord interface {
	VariantText(VariantColumn) (string, bool)
}

// Matches evaluates p against r with the same semantics as Compile.
func Matches(p Predicate, r Record) bool {
	switch x := p.(type) {
	case nil:
		return true
	case TextMatch:
		return textMatches(r.Text(x.Column), x.Value, x.Mode)
	case TextEquals:
		return r.Text(x.Column) == x.Value
	case BoolEquals:
		return r.Bool(x.Column) == x.Value
	case NumberRange:
		n := r.Number(x.Column)
		if x.Min != nil && n < *x.Min {
			return false
		}
		if x.Max != nil && n > *x.Max {
			return false
		}
		return true
	case AnyVariant:
		for _, v := range r.Variants() {
			if variantMatches(v, x.Where) {
				return true
			}
		}
		return false
	case allOf:
		for _, q := range x {
			if !Matches(q, r) {
				return false
			}
		}
		return true
	case anyOf:
		for _, q := range x {
			if Matches(q, r) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func variantMatches(v VariantRecord, conds []VariantMatch) bool {
	for _, c := range conds {
		val, ok := v.VariantText(c.Column)
		if !ok || !textMatches(val, c.Value, c.Mode) {
			return false
		}
	}
	return true
}

func textMatches(have, want string, mode MatchMode) bool {
	if mode == Exact {
		return strings.EqualFold(have, want)
	}
	return strings.Contains(strings.ToLower(have), strings.ToLower(want))
}
