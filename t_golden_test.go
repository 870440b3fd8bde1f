package sqlgrid

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

/*
Rendered output of longer statements is kept in "testdata/*.golden". Run
"go test -update" to regenerate after intentional changes.
*/
func testGolden(t *testing.T, name string, text string, args []any) {
	t.Helper()

	strs := make([]string, 0, len(args))
	for _, val := range args {
		strs = append(strs, fmt.Sprintf(`%#v`, val))
	}

	out := text + "\n-- args: " + strings.Join(strs, `, `) + "\n"

	golden := goldie.New(t, goldie.WithFixtureDir(`testdata`), goldie.WithNameSuffix(`.golden`))
	golden.Assert(t, name, []byte(out))
}

func filteredBigQuery(t *testing.T) *Engine {
	t.Helper()

	eng := mustEngine(t, bigQuery, bigQueryArgs...)
	ok(t, ApplyFilter(eng, FilterText{Columns: []string{`persons.name`}, Value: `bob`}))
	ok(t, ApplyFilter(eng, FilterDateRange{Column: `persons.created_at`, From: `2024-01-01`}))
	ok(t, eng.SetOrderBy(Ords{OrdDesc(`persons.id`)}))
	ok(t, eng.SetLimit(50, 0))
	return eng
}

func TestGolden_bigQuery(t *testing.T) {
	text, args := mustEngine(t, bigQuery, bigQueryArgs...).Query()
	testGolden(t, `big_query`, text, args)
}

func TestGolden_bigQueryFiltered(t *testing.T) {
	text, args := filteredBigQuery(t).Query()
	testGolden(t, `big_query_filtered`, text, args)
}

func TestGolden_bigQueryCount(t *testing.T) {
	text, args := filteredBigQuery(t).CountQuery()
	testGolden(t, `big_query_count`, text, args)
}
