package sqlgrid

import (
	"fmt"
	"strconv"

	"github.com/mitranim/sqlp"
)

/*
Converts SQL with Postgres-style ordinal parameters into SQL with positional
"?" placeholders accepted by `Parse`, `NewEngine` and `NewSource`. Arguments are
reordered and duplicated to follow the placeholders:

	text, args, err := FromOrdinal(`select * from t where a = $2 or b = $1 or c = $2`, 10, 20)
	// `select * from t where a = ? or b = ? or c = ?`
	// []any{20, 10, 20}

Every argument must be referenced at least once, otherwise the error matches
`ErrArgCount`. Named parameters such as ":name" are rejected.
*/
func FromOrdinal(src string, args ...any) (text string, out []any, err error) {
	defer rec(&err)
	const while = `converting ordinal parameters`

	tokenizer := sqlp.Tokenizer{Source: src}
	used := make([]bool, len(args))
	var buf []byte

	for {
		node := tokenizer.Next()
		if node == nil {
			break
		}

		switch node := node.(type) {
		case sqlp.NodeOrdinalParam:
			index := node.Index()
			if index < 0 || index >= len(args) {
				panic(Err{
					Code:  ErrCodeArgCount,
					While: while,
					Cause: fmt.Errorf(`ordinal parameter %v exceeds argument count %v`, node, len(args)),
				})
			}
			used[index] = true
			buf = append(buf, placeholder)
			out = append(out, args[index])

		case sqlp.NodeNamedParam:
			panic(errInput(while, fmt.Errorf(`expected only ordinal params, got named param %q`, node)))

		default:
			node.Append(&buf)
		}
	}

	for ind, ok := range used {
		if !ok {
			panic(Err{
				Code:  ErrCodeArgCount,
				While: while,
				Cause: fmt.Errorf(`unused argument %#v at index %v`, args[ind], ind),
			})
		}
	}

	text = string(buf)
	return
}

/*
Converts positional "?" placeholders into Postgres-style ordinal parameters
"$1", "$2", and so on. Question marks inside quotes and comments are left
alone.
*/
func Rebind(src string) (out string, err error) {
	defer rec(&err)

	tokenizer := Tokenizer{Source: src}
	buf := make([]byte, 0, len(src))
	var ord int

	for {
		tok := tokenizer.Next()
		if tok.IsInvalid() {
			break
		}
		if tok.Type == TokenTypePlaceholder {
			ord++
			buf = append(buf, '$')
			buf = strconv.AppendInt(buf, int64(ord), 10)
			continue
		}
		buf = append(buf, tok.Text...)
	}

	out = string(buf)
	return
}
