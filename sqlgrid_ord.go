package sqlgrid

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

/*
Short for "orderings". Sequence of orderings used for an SQL "order by" clause.
Empty `Ords` render nothing. Otherwise, the rendered text is "ORDER BY"
followed by comma-separated orderings. Construct `Ords` manually, or parse
client input via `ParseOrds`.
*/
type Ords []Ord

/*
Implement decoding from JSON. Accepts either one sort string such as
`"name desc, created_at asc nulls last"` or an array of such strings. Each
string is parsed by `ParseOrds`. JSON null produces empty `Ords`.
*/
func (self *Ords) UnmarshalJSON(src []byte) error {
	var str string
	if json.Unmarshal(src, &str) == nil {
		return self.ParseSlice([]string{str})
	}

	var vals []string
	err := json.Unmarshal(src, &vals)
	if err != nil {
		return errInput(`decoding orderings`, err)
	}
	return self.ParseSlice(vals)
}

/*
Convenience method for parsing string slices, which may come from URL queries,
form-encoded data, and so on. Each string may itself contain several
comma-separated orderings.
*/
func (self *Ords) ParseSlice(vals []string) error {
	var out Ords
	for _, val := range vals {
		ords, err := ParseOrds(val)
		if err != nil {
			return err
		}
		out = append(out, ords...)
	}
	*self = out
	return nil
}

// Renders "ORDER BY ..." or nothing.
func (self Ords) Append(text []byte) []byte {
	for ind, val := range self {
		if ind == 0 {
			text = append(text, `ORDER BY `...)
		} else {
			text = append(text, `, `...)
		}
		text = val.Append(text)
	}
	return text
}

// Implement the `fmt.Stringer` interface for debug purposes.
func (self Ords) String() string { return bytesToMutableString(self.Append(nil)) }

// Returns true if there are no items.
func (self Ords) IsEmpty() bool { return len(self) == 0 }

// Count of placeholders in all expressions.
func (self Ords) ParamCount() (out int) {
	for _, val := range self {
		out += val.ParamCount()
	}
	return
}

// Shortcut for `Ord{Expr: expr, Dir: DirAsc}`.
func OrdAsc(expr string) Ord { return Ord{Expr: expr, Dir: DirAsc} }

// Shortcut for `Ord{Expr: expr, Dir: DirDesc}`.
func OrdDesc(expr string) Ord { return Ord{Expr: expr, Dir: DirDesc} }

/*
Short for "ordering". Describes an SQL ordering like:

	name ASC

	t.created_at DESC NULLS LAST

`Expr` is rendered verbatim. Orderings parsed from the initial SQL may hold
arbitrary expressions. Orderings supplied through `Engine.SetOrderBy` must not
contain placeholders.
*/
type Ord struct {
	Expr  string
	Dir   Dir
	Nulls Nulls
}

func (self Ord) Append(text []byte) []byte {
	text = append(text, self.Expr...)
	text = self.Dir.Append(text)
	text = self.Nulls.Append(text)
	return text
}

// Implement `fmt.Stringer` for debug purposes.
func (self Ord) String() string { return bytesToMutableString(self.Append(nil)) }

func (self Ord) ParamCount() int { return countPlaceholders(self.Expr) }

const (
	DirNone Dir = 0
	DirAsc  Dir = 1
	DirDesc Dir = 2
)

// Short for "direction". Enum for ordering direction: none, "ASC", "DESC".
type Dir byte

// Appends the direction preceded by a space, or nothing for `DirNone`.
func (self Dir) Append(text []byte) []byte {
	str := self.String()
	if str == `` {
		return text
	}
	return append(append(text, ' '), str...)
}

// Implement `fmt.Stringer`.
func (self Dir) String() string {
	switch self {
	default:
		return ``
	case DirAsc:
		return `ASC`
	case DirDesc:
		return `DESC`
	}
}

// Parses from a string, which must be empty, "asc" or "desc", in any case.
func (self *Dir) Parse(src string) error {
	switch strings.ToLower(strings.TrimSpace(src)) {
	case ``:
		*self = DirNone
		return nil
	case `asc`:
		*self = DirAsc
		return nil
	case `desc`:
		*self = DirDesc
		return nil
	default:
		return errInput(`parsing order direction`, fmt.Errorf(`unrecognized direction %q`, src))
	}
}

// Implement `encoding.TextMarshaler`.
func (self Dir) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(self.String())), nil
}

// Implement `encoding.TextUnmarshaler`.
func (self *Dir) UnmarshalText(src []byte) error {
	return self.Parse(string(src))
}

const (
	NullsNone  Nulls = 0
	NullsFirst Nulls = 1
	NullsLast  Nulls = 2
)

// Enum for nulls handling in ordering: none, "NULLS FIRST", "NULLS LAST".
type Nulls byte

// Appends the nulls option preceded by a space, or nothing for `NullsNone`.
func (self Nulls) Append(text []byte) []byte {
	str := self.String()
	if str == `` {
		return text
	}
	return append(append(text, ' '), str...)
}

// Implement `fmt.Stringer`.
func (self Nulls) String() string {
	switch self {
	case NullsFirst:
		return `NULLS FIRST`
	case NullsLast:
		return `NULLS LAST`
	default:
		return ``
	}
}

// Parses from a string, which must be empty, "first" or "last", in any case.
func (self *Nulls) Parse(src string) error {
	switch strings.ToLower(strings.TrimSpace(src)) {
	case ``:
		*self = NullsNone
		return nil
	case `first`:
		*self = NullsFirst
		return nil
	case `last`:
		*self = NullsLast
		return nil
	default:
		return errInput(`parsing nulls order`, fmt.Errorf(`unrecognized nulls option %q`, src))
	}
}
