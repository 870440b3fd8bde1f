package sqlgrid

import (
	"errors"
	"fmt"
	r "reflect"
	"runtime"
	"strings"
	"testing"
)

type list = []any

type PersonKey struct {
	Team string `db:"team"`
	Skip string
}

type PersonLookup struct {
	PersonKey
	Name   string  `db:"name"`
	Status *string `db:"status"`
}

func eq(t testing.TB, exp, act any) {
	t.Helper()
	if !r.DeepEqual(exp, act) {
		t.Fatalf(`
expected (detailed):
	%#[1]v
actual (detailed):
	%#[2]v
expected (simple):
	%[1]v
actual (simple):
	%[2]v
`, exp, act)
	}
}

func notEq(t testing.TB, exp, act any) {
	t.Helper()
	if r.DeepEqual(exp, act) {
		t.Fatalf(`
unexpected equality (detailed):
	%#[1]v
unexpected equality (simple):
	%[1]v
`, exp)
	}
}

func ok(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf(`unexpected error: %+v`, err)
	}
}

/*
Asserts that the error matches the target via `errors.Is` and that its message
contains the given substring.
*/
func errs(t testing.TB, target error, msg string, err error) {
	t.Helper()

	if err == nil {
		t.Fatalf(`expected an error matching %q, found nil`, target)
	}
	if !errors.Is(err, target) {
		t.Fatalf(`expected an error matching %q, found %q`, target, err)
	}
	if !strings.Contains(err.Error(), msg) {
		t.Fatalf(`expected an error with a message containing %q, found %q`, msg, err)
	}
}

func panics(t testing.TB, msg string, fun func()) {
	t.Helper()
	val := catchAny(fun)

	if val == nil {
		t.Fatalf(`expected %v to panic, found no panic`, funcName(fun))
	}

	str := fmt.Sprint(val)
	if !strings.Contains(str, msg) {
		t.Fatalf(
			`expected %v to panic with a message containing %q, found %q`,
			funcName(fun), msg, str,
		)
	}
}

func funcName(val any) string {
	return runtime.FuncForPC(r.ValueOf(val).Pointer()).Name()
}

func catchAny(fun func()) (val any) {
	defer recAny(&val)
	fun()
	return
}

func recAny(ptr *any) { *ptr = recover() }

func mustEngine(t testing.TB, src string, args ...any) *Engine {
	t.Helper()
	eng, err := NewEngine(src, args...)
	ok(t, err)
	return eng
}

// Short for "query": rendered text with arguments.
type Q struct {
	Text string
	Args list
}

func query(text string, args ...any) Q { return Q{text, args} }

func engineQuery(eng *Engine) Q {
	text, args := eng.Query()
	return Q{text, args}
}

func countQuery(eng *Engine) Q {
	text, args := eng.CountQuery()
	return Q{text, args}
}

// Empty and nil arg lists are interchangeable for these tests.
func (self Q) norm() Q {
	if len(self.Args) == 0 {
		self.Args = nil
	}
	return self
}

func testQuery(t testing.TB, exp Q, act Q) {
	t.Helper()
	eq(t, exp.norm(), act.norm())
}

const bigQuery = `
	select
		persons.id,
		persons.name,
		? as label,
		coalesce(stats.total, 0) as total
	from
		persons
		left join (
			select person_id, count(*) as total
			from orders
			where orders.created_at > ?
			group by person_id
		) as stats on stats.person_id = persons.id
		inner join teams on teams.id = persons.team_id and teams.kind = ?
	where
		persons.deleted_at is null
		and persons.name <> 'a ? in quotes'
		-- trailing comment with ?
		and persons.age between ? and ?
		and (persons.status = ? or persons.status is null)
		and persons.team_id = ?
	order by
		persons.name desc nulls last,
		case when persons.id = ? then 0 else 1 end
	limit 20
	offset 40;
`

var bigQueryArgs = list{`label`, `2024-01-01`, `core`, 18, 65, `active`, 7, 123}
