package sqlgrid

import (
	"fmt"
	r "reflect"
	"strings"
	"unsafe"

	"github.com/mitranim/refut"
)

const (
	placeholder        = '?'
	parenOpen          = '('
	parenClose         = ')'
	comma              = ','
	commentLinePrefix  = `--`
	commentBlockPrefix = `/*`
	commentBlockSuffix = `*/`
	quoteSingle        = '\''
	quoteDouble        = '"'
	quoteGrave         = '`'
)

var (
	charsetDigitDec   = new(charset).addStr(`0123456789`)
	charsetIdentStart = new(charset).addStr(`ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz_`)
	charsetIdent      = new(charset).addSet(charsetIdentStart).addSet(charsetDigitDec)
	charsetWord       = new(charset).addSet(charsetIdent).addStr(`.*$`).addRange(0x80, 0xff)
	charsetSpace      = new(charset).addStr(" \t\v\f")
	charsetNewline    = new(charset).addStr("\r\n")
	charsetWhitespace = new(charset).addSet(charsetSpace).addSet(charsetNewline)
	charsetPunct      = new(charset).addStr("?(),'\"`")
)

type charset [256]bool

func (self *charset) has(val byte) bool { return self[val] }

func (self *charset) addStr(vals string) *charset {
	for _, val := range vals {
		self[val] = true
	}
	return self
}

func (self *charset) addSet(vals *charset) *charset {
	for ind, val := range vals {
		if val {
			self[ind] = true
		}
	}
	return self
}

func (self *charset) addRange(min, max int) *charset {
	for ind := min; ind <= max; ind++ {
		self[ind] = true
	}
	return self
}

func leadingNewlineSize(val string) int {
	if len(val) >= 2 && val[0] == '\r' && val[1] == '\n' {
		return 2
	}
	if len(val) >= 1 && (val[0] == '\r' || val[0] == '\n') {
		return 1
	}
	return 0
}

/*
Allocation-free conversion. Reinterprets a byte slice as a string. Should not be
used when the underlying byte array is volatile.
*/
func bytesToMutableString(bytes []byte) string {
	return *(*string)(unsafe.Pointer(&bytes))
}

func try(err error) {
	if err != nil {
		panic(err)
	}
}

func try1[A any](val A, err error) A {
	try(err)
	return val
}

// Must be deferred.
func rec(ptr *error) {
	val := recover()
	if val == nil {
		return
	}

	err, _ := val.(error)
	if err != nil {
		*ptr = err
		return
	}

	panic(val)
}

// Inserts the given values at the given index, shifting the tail right. Always
// allocates, leaving the input untouched.
func insertAt(src []any, index int, vals ...any) []any {
	if index < 0 || index > len(src) {
		panic(Err{
			Code:  ErrCodeInternal,
			While: `inserting arguments`,
			Cause: fmt.Errorf(`index %v out of bounds for %v arguments`, index, len(src)),
		})
	}

	out := make([]any, 0, len(src)+len(vals))
	out = append(out, src[:index]...)
	out = append(out, vals...)
	out = append(out, src[index:]...)
	return out
}

// Removes `count` values starting at `index`. Always allocates.
func removeAt(src []any, index, count int) []any {
	if index < 0 || count < 0 || index+count > len(src) {
		panic(Err{
			Code:  ErrCodeInternal,
			While: `removing arguments`,
			Cause: fmt.Errorf(`range [%v:%v] out of bounds for %v arguments`, index, index+count, len(src)),
		})
	}

	out := make([]any, 0, len(src)-count)
	out = append(out, src[:index]...)
	out = append(out, src[index+count:]...)
	return out
}

func copyArgs(src []any) []any {
	if src == nil {
		return nil
	}
	out := make([]any, len(src))
	copy(out, src)
	return out
}

// Collapses runs of whitespace into single spaces and trims the edges.
func normSpace(val string) string {
	return strings.Join(strings.Fields(val), ` `)
}

/*
True if the value should count as "not provided" for filtering purposes: nil,
nil pointers/interfaces/slices/maps, and blank strings. Zero numbers are
considered provided.
*/
func isBlank(val any) bool {
	if val == nil || refut.IsNil(val) {
		return true
	}
	switch val := val.(type) {
	case string:
		return strings.TrimSpace(val) == ``
	case []byte:
		return len(val) == 0
	}
	return false
}

func sfieldColumnName(sfield r.StructField) string {
	return refut.TagIdent(sfield.Tag.Get(`db`))
}

/*
Calls the function for every struct field with a `db` tag, including fields of
embedded structs. Panics on non-struct inputs.
*/
func traverseStructDbFields(input any, fun func(string, any)) {
	rval := r.ValueOf(input)
	if !rval.IsValid() {
		panic(errInput(`traversing struct for DB fields`, fmt.Errorf(`expected struct, got nil`)))
	}

	rtype := refut.RtypeDeref(rval.Type())
	if rtype.Kind() != r.Struct {
		panic(errInput(`traversing struct for DB fields`, fmt.Errorf(`expected struct, got %q`, rtype)))
	}

	if refut.IsRvalNil(rval) {
		return
	}

	err := refut.TraverseStructRval(rval, func(rval r.Value, sfield r.StructField, _ []int) error {
		colName := sfieldColumnName(sfield)
		if colName == `` {
			return nil
		}
		fun(colName, rval.Interface())
		return nil
	})
	try(err)
}
