package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnknownColumn = errors.New("query: unknown column")

// Args collects positional parameters for pgx ($1, $2, ...).
type Args struct{ vals []any }

// Add appends v and returns its placeholder.
func (a *Args) Add(v any) string {
	a.vals = append(a.vals, v)
	return "$" + strconv.Itoa(len(a.vals))
}

func (a *Args) Values() []any { return a.vals }

// Compile renders p as a SQL boolean expression over the aliases
// p (products), c (categories) and v (product_variants).
func Compile(p Predicate, args *Args) (string, error) {
	switch x := p.(type) {
	case nil:
		return "TRUE", nil
	case TextMatch:
		if x.Column.name == "" {
			return "", ErrUnknownColumn
		}
		return textMatch(x.Column.name, x.Value, x.Mode, args), nil
	case TextEquals:
		if x.Column.name == "" {
			return "", ErrUnknownColumn
		}
		return x.Column.name + " = " + args.Add(x.Value), nil
	case BoolEquals:
		if x.Column.name == "" {
			return "", ErrUnknownColumn
		}
		return x.Column.name + " = " + args.Add(x.Value), nil
	case NumberRange:
		if x.Column.name == "" {
			return "", ErrUnknownColumn
		}
		var parts []string
		if x.Min != nil {
			parts = append(parts, x.Column.name+" >= "+args.Add(*x.Min))
		}
		if x.Max != nil {
			parts = append(parts, x.Column.name+" <= "+args.Add(*x.Max))
		}
		if len(parts) == 0 {
			return "TRUE", nil
		}
		return "(" + strings.Join(parts, " AND ") + ")", nil
	case AnyVariant:
		var b strings.Builder
		b.WriteString("EXISTS (SELECT 1 FROM product_variants v WHERE v.product_id = p.id")
		for _, m := range x.Where {
			if m.Column.name == "" {
				return "", ErrUnknownColumn
			}
			b.WriteString(" AND ")
			b.WriteString(textMatch(m.Column.name, m.Value, m.Mode, args))
		}
		b.WriteString(")")
		return b.String(), nil
	case allOf:
		return join(x, " AND ", "TRUE", args)
	case anyOf:
		return join(x, " OR ", "FALSE", args)
	default:
		return "", fmt.Errorf("query: unsupported predicate %T", p)
	}
}

func join(ps []Predicate, op, empty string, args *Args) (string, error) {
	if len(ps) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(ps))
	for _, p := range ps {
		s, err := Compile(p, args)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return "(" + strings.Join(parts, op) + ")", nil
}

func textMatch(col, value string, mode MatchMode, args *Args) string {
	if mode == Exact {
		return "lower(" + col + ") = lower(" + args.Add(value) + ")"
	}
	return col + " ILIKE " + args.Add("%"+escapeLike(value)+"%") + ` ESCAPE '\'`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// CompileOrder renders an ORDER BY list. Unknown columns are skipped.
func CompileOrder(orders []Order) string {
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		if o.Column.name == "" {
			continue
		}
		dir := " ASC"
		if o.Desc {
			dir = " DESC"
		}
		parts = append(parts, o.Column.name+dir)
	}
	return strings.Join(parts, ", ")
}
