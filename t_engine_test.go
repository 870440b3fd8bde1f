package sqlgrid

import (
	"testing"
)

func TestNewEngine(t *testing.T) {
	t.Run(`valid`, func(t *testing.T) {
		eng := mustEngine(t, `select * from t where a = ? and b = ?`, 10, 20)
		testQuery(t, query(`SELECT * FROM t WHERE a = ? AND b = ?`, 10, 20), engineQuery(eng))
	})

	t.Run(`too few arguments`, func(t *testing.T) {
		_, err := NewEngine(`select * from t where a = ? and b = ?`, 10)
		errs(t, ErrArgCount, `found 2 placeholders and 1 arguments`, err)
	})

	t.Run(`too many arguments`, func(t *testing.T) {
		_, err := NewEngine(`select * from t`, 10)
		errs(t, ErrArgCount, `found 0 placeholders and 1 arguments`, err)
	})

	t.Run(`syntax error`, func(t *testing.T) {
		_, err := NewEngine(`delete from t`)
		errs(t, ErrSyntax, `expected statement to begin with SELECT`, err)
	})

	t.Run(`big query`, func(t *testing.T) {
		eng := mustEngine(t, bigQuery, bigQueryArgs...)
		eq(t, bigQueryArgs, eng.Args())
	})
}

func TestEngine_Query_copies(t *testing.T) {
	eng := mustEngine(t, `select * from t where a = ?`, 10)

	_, args := eng.Query()
	args[0] = 20
	eq(t, list{10}, eng.Args())

	args = eng.Args()
	args[0] = 30
	eq(t, list{10}, eng.Args())

	stmt := eng.Stmt()
	stmt.Where[0] = Col(`b`)
	eq(t, `SELECT * FROM t WHERE a = ?`, eng.Stmt().String())
}

func TestEngine_AddPredicate(t *testing.T) {
	t.Run(`append to where`, func(t *testing.T) {
		eng := mustEngine(t, `SELECT * FROM t WHERE a = ?`, 1)
		ok(t, eng.AddPredicate(`b`, `=`, 2))
		testQuery(t, query(`SELECT * FROM t WHERE a = ? AND b = ?`, 1, 2), engineQuery(eng))
	})

	t.Run(`create where`, func(t *testing.T) {
		eng := mustEngine(t, `SELECT * FROM t`)
		ok(t, eng.AddPredicate(`a`, `=`, 5))
		testQuery(t, query(`SELECT * FROM t WHERE a = ?`, 5), engineQuery(eng))
	})

	t.Run(`placeholders in select, join, having`, func(t *testing.T) {
		eng := mustEngine(
			t,
			`SELECT ? AS x FROM t JOIN u ON u.k = ? WHERE a = ? GROUP BY g HAVING COUNT(*) > ?`,
			`s`, `j`, `w`, `h`,
		)
		ok(t, eng.AddPredicate(`b`, `=`, `n`))

		testQuery(
			t,
			query(
				`SELECT ? AS x FROM t JOIN u ON u.k = ? WHERE a = ? AND b = ? GROUP BY g HAVING COUNT(*) > ?`,
				`s`, `j`, `w`, `n`, `h`,
			),
			engineQuery(eng),
		)
	})

	t.Run(`placeholders in order`, func(t *testing.T) {
		eng := mustEngine(t, `select * from t where a = ? order by case when b = ? then 0 else 1 end`, 1, 2)
		ok(t, eng.AddPredicate(`c`, `=`, 3))

		testQuery(
			t,
			query(`SELECT * FROM t WHERE a = ? AND c = ? ORDER BY case when b = ? then 0 else 1 end`, 1, 3, 2),
			engineQuery(eng),
		)
	})

	t.Run(`top-level OR stays grouped`, func(t *testing.T) {
		eng := mustEngine(t, `select * from t where a = ? or b = ?`, 1, 2)
		ok(t, eng.AddPredicate(`c`, `=`, 3))
		testQuery(t, query(`SELECT * FROM t WHERE (a = ? or b = ?) AND c = ?`, 1, 2, 3), engineQuery(eng))
	})

	t.Run(`quoted question marks`, func(t *testing.T) {
		eng := mustEngine(t, `select '?' as q from t where a <> '?' and b = ?`, 1)
		ok(t, eng.AddPredicate(`c`, `=`, 2))
		testQuery(t, query(`SELECT '?' as q FROM t WHERE a <> '?' AND b = ? AND c = ?`, 1, 2), engineQuery(eng))
	})

	t.Run(`expression column`, func(t *testing.T) {
		eng := mustEngine(t, `select * from t`)
		ok(t, eng.AddPredicate(`DATE(created_at)`, `>=`, `2024-01-01`))
		testQuery(t, query(`SELECT * FROM t WHERE DATE(created_at) >= ?`, `2024-01-01`), engineQuery(eng))
	})

	t.Run(`operator normalization`, func(t *testing.T) {
		eng := mustEngine(t, `select * from t`)
		ok(t, eng.AddPredicate(`name`, ` not   like `, `%a%`))
		testQuery(t, query(`SELECT * FROM t WHERE name NOT LIKE ?`, `%a%`), engineQuery(eng))
	})

	t.Run(`nil value`, func(t *testing.T) {
		eng := mustEngine(t, `select * from t`)
		ok(t, eng.AddPredicate(`a`, `=`, nil))
		testQuery(t, query(`SELECT * FROM t WHERE a = ?`, nil), engineQuery(eng))
	})

	t.Run(`sequence`, func(t *testing.T) {
		eng := mustEngine(t, bigQuery, bigQueryArgs...)
		ok(t, eng.AddPredicate(`persons.name`, `LIKE`, `%bob%`))
		ok(t, eng.AddPredicate(`persons.age`, `<`, 30))

		text, args := eng.Query()
		eq(t, list{`label`, `2024-01-01`, `core`, 18, 65, `active`, 7, `%bob%`, 30, 123}, args)

		count, err := CountPlaceholders(text)
		ok(t, err)
		eq(t, len(args), count)
	})

	t.Run(`rejected input leaves state unchanged`, func(t *testing.T) {
		eng := mustEngine(t, `select * from t where a = ?`, 1)
		before := engineQuery(eng)

		errs(t, ErrInvalidInput, `empty column`, eng.AddPredicate(` `, `=`, 1))
		errs(t, ErrInvalidInput, `must not contain placeholders`, eng.AddPredicate(`coalesce(b, ?)`, `=`, 1))
		errs(t, ErrInvalidInput, `unsupported operator`, eng.AddPredicate(`b`, `= 1; drop table t; --`, 1))
		errs(t, ErrInvalidInput, `unsupported operator`, eng.AddPredicate(`b`, `in`, 1))

		testQuery(t, before, engineQuery(eng))
	})
}

func TestEngine_AddRawPredicate(t *testing.T) {
	t.Run(`single predicate`, func(t *testing.T) {
		eng := mustEngine(t, `select * from t where a = ?`, 1)
		ok(t, eng.AddRawPredicate(`b in (?, ?)`, 2, 3))
		testQuery(t, query(`SELECT * FROM t WHERE a = ? AND b in (?, ?)`, 1, 2, 3), engineQuery(eng))
	})

	t.Run(`disjunction is bracketed`, func(t *testing.T) {
		eng := mustEngine(t, `select * from t where a = ?`, 1)
		ok(t, eng.AddRawPredicate(`x > ? or y < ?`, 2, 3))
		testQuery(t, query(`SELECT * FROM t WHERE a = ? AND (x > ? or y < ?)`, 1, 2, 3), engineQuery(eng))
	})

	t.Run(`conjunction is bracketed`, func(t *testing.T) {
		eng := mustEngine(t, `select * from t`)
		ok(t, eng.AddRawPredicate(`a = ? and b = ?`, 1, 2))
		testQuery(t, query(`SELECT * FROM t WHERE (a = ? AND b = ?)`, 1, 2), engineQuery(eng))
	})

	t.Run(`before tail`, func(t *testing.T) {
		eng := mustEngine(t, `select a from t group by a having count(*) > ?`, 10)
		ok(t, eng.AddRawPredicate(`b = ?`, 1))
		testQuery(t, query(`SELECT a FROM t WHERE b = ? group by a having count(*) > ?`, 1, 10), engineQuery(eng))
	})

	t.Run(`without placeholders`, func(t *testing.T) {
		eng := mustEngine(t, `select * from t where a = ?`, 1)
		ok(t, eng.AddRawPredicate(`deleted_at is null`))
		testQuery(t, query(`SELECT * FROM t WHERE a = ? AND deleted_at is null`, 1), engineQuery(eng))
	})

	t.Run(`errors leave state unchanged`, func(t *testing.T) {
		eng := mustEngine(t, `select * from t where a = ?`, 1)
		before := engineQuery(eng)

		errs(t, ErrArgCount, `found 2 placeholders and 1 arguments`, eng.AddRawPredicate(`b = ? or c = ?`, 2))
		errs(t, ErrSyntax, `empty predicate`, eng.AddRawPredicate(`  `))
		errs(t, ErrSyntax, `unbalanced parentheses`, eng.AddRawPredicate(`b = (?`, 2))
		errs(t, ErrSyntax, `not a boolean expression`, eng.AddRawPredicate(`b = ? order by c`, 2))
		errs(t, ErrSyntax, `not a boolean expression`, eng.AddRawPredicate(`b = ? group by c`, 2))
		errs(t, ErrSyntax, `unterminated quote`, eng.AddRawPredicate(`b = 'x`))
		errs(t, ErrSyntax, `clauses are out of order`, eng.AddRawPredicate(`b = ? from x`, 2))
		errs(t, ErrSyntax, `multiple statements are not supported`, eng.AddRawPredicate(`b = ?; delete from x`, 2))

		testQuery(t, before, engineQuery(eng))
	})
}

func TestEngine_SetOrderBy(t *testing.T) {
	t.Run(`replace`, func(t *testing.T) {
		eng := mustEngine(t, `select * from t where a = ? order by a`, 1)
		ok(t, eng.SetOrderBy(Ords{OrdDesc(`b`), {Expr: `c`, Nulls: NullsFirst}}))
		testQuery(t, query(`SELECT * FROM t WHERE a = ? ORDER BY b DESC, c NULLS FIRST`, 1), engineQuery(eng))
	})

	t.Run(`drops arguments of previous ordering`, func(t *testing.T) {
		eng := mustEngine(t, `select * from t where a = ? order by case when b = ? then 0 else 1 end limit 5`, 1, 2)
		ok(t, eng.SetOrderBy(Ords{OrdAsc(`c`)}))
		testQuery(t, query(`SELECT * FROM t WHERE a = ? ORDER BY c ASC LIMIT 5`, 1), engineQuery(eng))
	})

	t.Run(`empty removes clause`, func(t *testing.T) {
		eng := mustEngine(t, `select * from t order by a`)
		ok(t, eng.SetOrderBy(nil))
		testQuery(t, query(`SELECT * FROM t`), engineQuery(eng))
	})

	t.Run(`input is copied`, func(t *testing.T) {
		eng := mustEngine(t, `select * from t`)
		ords := Ords{OrdAsc(`a`)}
		ok(t, eng.SetOrderBy(ords))
		ords[0].Expr = `b`
		testQuery(t, query(`SELECT * FROM t ORDER BY a ASC`), engineQuery(eng))
	})

	t.Run(`invalid`, func(t *testing.T) {
		eng := mustEngine(t, `select * from t order by a`)
		before := engineQuery(eng)

		errs(t, ErrInvalidInput, `empty ordering expression`, eng.SetOrderBy(Ords{{Expr: ` `}}))
		errs(t, ErrInvalidInput, `must not contain placeholders`, eng.SetOrderBy(Ords{{Expr: `coalesce(a, ?)`}}))

		testQuery(t, before, engineQuery(eng))
	})
}

func TestEngine_SetLimit(t *testing.T) {
	eng := mustEngine(t, `select * from t where a = ? limit 10`, 1)

	ok(t, eng.SetLimit(20, 40))
	testQuery(t, query(`SELECT * FROM t WHERE a = ? LIMIT 20 OFFSET 40`, 1), engineQuery(eng))

	ok(t, eng.SetLimit(5, 0))
	testQuery(t, query(`SELECT * FROM t WHERE a = ? LIMIT 5`, 1), engineQuery(eng))

	errs(t, ErrInvalidInput, `non-negative`, eng.SetLimit(-1, 0))
	errs(t, ErrInvalidInput, `non-negative`, eng.SetLimit(1, -1))
	testQuery(t, query(`SELECT * FROM t WHERE a = ? LIMIT 5`, 1), engineQuery(eng))

	eng.ClearLimit()
	testQuery(t, query(`SELECT * FROM t WHERE a = ?`, 1), engineQuery(eng))
}

func TestEngine_Replace(t *testing.T) {
	eng := mustEngine(t, `select * from t where a = ?`, 1)

	ok(t, eng.Replace(`select * from u where b = ? and c = ?`, list{2, 3}))
	testQuery(t, query(`SELECT * FROM u WHERE b = ? AND c = ?`, 2, 3), engineQuery(eng))

	errs(t, ErrArgCount, `found 1 placeholders and 0 arguments`, eng.Replace(`select * from v where d = ?`, nil))
	errs(t, ErrSyntax, `missing FROM clause`, eng.Replace(`select 1`, nil))
	testQuery(t, query(`SELECT * FROM u WHERE b = ? AND c = ?`, 2, 3), engineQuery(eng))
}

func TestEngine_CountQuery(t *testing.T) {
	t.Run(`plain`, func(t *testing.T) {
		eng := mustEngine(t, `select a, b from t where c = ? order by a limit 10 offset 20`, 1)
		testQuery(t, query(`SELECT COUNT(*) AS count FROM t WHERE c = ?`, 1), countQuery(eng))
	})

	t.Run(`drops select and order arguments`, func(t *testing.T) {
		eng := mustEngine(
			t,
			`select ? as label from t where a = ? order by case when b = ? then 0 else 1 end`,
			`label`, 1, 2,
		)
		testQuery(t, query(`SELECT COUNT(*) AS count FROM t WHERE a = ?`, 1), countQuery(eng))
	})

	t.Run(`grouped keeps select arguments`, func(t *testing.T) {
		eng := mustEngine(
			t,
			`select a, ? as label from t where b = ? group by a having count(*) > ? order by a limit 5`,
			`label`, 1, 2,
		)
		testQuery(
			t,
			query(
				`SELECT COUNT(*) AS count FROM (SELECT a, ? as label FROM t WHERE b = ? group by a having count(*) > ?) AS _`,
				`label`, 1, 2,
			),
			countQuery(eng),
		)
	})

	t.Run(`distinct and aggregate selects are wrapped`, func(t *testing.T) {
		test := func(src string) {
			t.Helper()
			eng := mustEngine(t, src, 1)
			inner, _ := eng.Query()
			testQuery(
				t,
				query(`SELECT COUNT(*) AS count FROM (`+inner+`) AS _`, 1),
				countQuery(eng),
			)
		}

		test(`select distinct a from t where b = ?`)
		test(`select DISTINCT(a) from t where b = ?`)
		test(`select distinct on (a) a, b from t where b = ?`)
		test(`select count(*) as n from t where b = ?`)
		test(`select max(a) + 1 from t where b = ?`)
		test(`select coalesce(sum(a), 0) as total from t where b = ?`)
		test(`select a, array_agg(b) filter (where c) from t where b = ?`)
	})

	t.Run(`non-aggregate calls are not wrapped`, func(t *testing.T) {
		test := func(src string) {
			t.Helper()
			eng := mustEngine(t, src, 1)
			testQuery(t, query(`SELECT COUNT(*) AS count FROM t WHERE b = ?`, 1), countQuery(eng))
		}

		test(`select a, count(*) over (partition by c) as n from t where b = ?`)
		test(`select a, (select max(x) from u where u.id = t.id) as m from t where b = ?`)
		test(`select a, lower(b) as distinct_b, t.count from t where b = ?`)
		test(`select a from t where b = ?`)
	})

	t.Run(`after mutations`, func(t *testing.T) {
		eng := mustEngine(t, bigQuery, bigQueryArgs...)
		ok(t, eng.AddPredicate(`persons.age`, `<`, 30))

		text, args := eng.CountQuery()
		eq(t, list{`2024-01-01`, `core`, 18, 65, `active`, 7, 30}, args)

		count, err := CountPlaceholders(text)
		ok(t, err)
		eq(t, len(args), count)
	})

	t.Run(`state untouched`, func(t *testing.T) {
		eng := mustEngine(t, `select ? as x from t order by a limit 5`, 1)
		before := engineQuery(eng)
		_, _ = eng.CountQuery()
		testQuery(t, before, engineQuery(eng))
	})
}
