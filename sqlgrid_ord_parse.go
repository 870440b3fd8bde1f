package sqlgrid

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

/*
Parses a client-supplied sort string into `Ords`. Accepts a
comma-separated list of column paths, each optionally followed by a direction
and a nulls option:

	name
	name desc
	t.created_at asc nulls last, "Quoted Col" DESC

Keywords are case-insensitive. Only identifiers are accepted, so the result is
always safe to splice into an "order by" clause. An empty or blank string
produces empty `Ords`.
*/
func ParseOrds(src string) (Ords, error) {
	if strings.TrimSpace(src) == `` {
		return nil, nil
	}

	ast, err := ordsParser.ParseString(``, src)
	if err != nil {
		return nil, errInput(`parsing orderings`, err)
	}

	out := make(Ords, 0, len(ast.Items))
	for _, item := range ast.Items {
		ord := Ord{Expr: strings.Join(item.Path, `.`)}
		err := ord.Dir.Parse(item.Dir)
		if err != nil {
			return nil, err
		}
		err = ord.Nulls.Parse(item.Nulls)
		if err != nil {
			return nil, err
		}
		out = append(out, ord)
	}
	return out, nil
}

var ordsLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: `Keyword`, Pattern: `(?i)\b(?:ASC|DESC|NULLS|FIRST|LAST)\b`},
	{Name: `Ident`, Pattern: `[A-Za-z_][A-Za-z0-9_$]*|"(?:[^"]|"")+"`},
	{Name: `Punct`, Pattern: `[.,]`},
	{Name: `Whitespace`, Pattern: `\s+`},
})

var ordsParser = participle.MustBuild[ordsAst](
	participle.Lexer(ordsLexer),
	participle.Elide(`Whitespace`),
	participle.CaseInsensitive(`Keyword`),
)

type ordsAst struct {
	Items []*ordAst `parser:"@@ ( ',' @@ )*"`
}

type ordAst struct {
	Path  []string `parser:"@Ident ( '.' @Ident )*"`
	Dir   string   `parser:"@( 'ASC' | 'DESC' )?"`
	Nulls string   `parser:"( 'NULLS' @( 'FIRST' | 'LAST' ) )?"`
}
