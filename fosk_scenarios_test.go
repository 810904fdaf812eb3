package fosk

import "testing"

// The following tests are the literal seeded scenarios S1-S6 of
// spec.md §8, grounded on
// _examples/KartikBazzad-bunbase/bundoc/database_test.go's plain
// testing-package style.

func mustSeedPeople(t *testing.T, db *Database) *Collection {
	t.Helper()
	people, err := db.CreateCollection("People")
	if err != nil {
		t.Fatalf("create People: %v", err)
	}
	docs := []map[string]any{
		{"id": 1, "city": "Porto", "age": 29},
		{"id": 2, "city": "Lisboa", "age": 34},
		{"id": 3, "city": "Braga", "age": 41},
	}
	for _, d := range docs {
		if _, err := people.Insert(d); err != nil {
			t.Fatalf("insert %v: %v", d, err)
		}
	}
	return people
}

func mustSeedOrders(t *testing.T, db *Database) *Collection {
	t.Helper()
	orders, err := db.CreateCollection("Orders")
	if err != nil {
		t.Fatalf("create Orders: %v", err)
	}
	docs := []map[string]any{
		{"id": 10, "person_id": 1},
		{"id": 11, "person_id": 2},
		{"id": 12, "person_id": 99},
	}
	for _, d := range docs {
		if _, err := orders.Insert(d); err != nil {
			t.Fatalf("insert %v: %v", d, err)
		}
	}
	return orders
}

func asFloat(t *testing.T, v any) float64 {
	t.Helper()
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		t.Fatalf("expected numeric value, got %T (%v)", v, v)
		return 0
	}
}

// S1 - simple select with predicate.
func TestScenarioS1SelectWithPredicate(t *testing.T) {
	db := New(DefaultConfig())
	mustSeedPeople(t, db)

	rows, err := db.Query("SELECT id, city FROM People WHERE age > 30 ORDER BY id")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %v", len(rows), rows)
	}
	if asFloat(t, rows[0]["id"]) != 2 || rows[0]["city"] != "Lisboa" {
		t.Errorf("row 0 = %v, want {id:2,city:Lisboa}", rows[0])
	}
	if asFloat(t, rows[1]["id"]) != 3 || rows[1]["city"] != "Braga" {
		t.Errorf("row 1 = %v, want {id:3,city:Braga}", rows[1])
	}
}

// S2 - inner join with output column disambiguation.
func TestScenarioS2InnerJoin(t *testing.T) {
	db := New(DefaultConfig())
	mustSeedOrders(t, db)
	mustSeedPeople(t, db)

	rows, err := db.Query("SELECT o.id, p.city FROM Orders o JOIN People p ON p.id = o.person_id ORDER BY o.id")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %v", len(rows), rows)
	}
	if _, ok := rows[0]["o.id"]; !ok {
		t.Fatalf("row 0 missing disambiguated key %q: %v", "o.id", rows[0])
	}
	if asFloat(t, rows[0]["o.id"]) != 10 || rows[0]["city"] != "Porto" {
		t.Errorf("row 0 = %v, want {o.id:10,city:Porto}", rows[0])
	}
	if asFloat(t, rows[1]["o.id"]) != 11 || rows[1]["city"] != "Lisboa" {
		t.Errorf("row 1 = %v, want {o.id:11,city:Lisboa}", rows[1])
	}
}

// S3 - left join preserves unmatched rows, null-extended.
func TestScenarioS3LeftJoin(t *testing.T) {
	db := New(DefaultConfig())
	mustSeedOrders(t, db)
	mustSeedPeople(t, db)

	rows, err := db.Query("SELECT o.id, p.city FROM Orders o LEFT JOIN People p ON p.id = o.person_id ORDER BY o.id")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %v", len(rows), rows)
	}
	if rows[2]["city"] != nil {
		t.Errorf("row 2 city = %v, want null", rows[2]["city"])
	}
}

// S4 - group with DISTINCT aggregate.
func TestScenarioS4GroupDistinctAggregate(t *testing.T) {
	db := New(DefaultConfig())
	items, err := db.CreateCollection("OrderItems")
	if err != nil {
		t.Fatalf("create OrderItems: %v", err)
	}
	for _, d := range []map[string]any{
		{"order_id": 10, "qty": 2},
		{"order_id": 10, "qty": 3},
		{"order_id": 11, "qty": 1},
	} {
		if _, err := items.Insert(d); err != nil {
			t.Fatalf("insert %v: %v", d, err)
		}
	}

	rows, err := db.Query("SELECT COUNT(DISTINCT order_id) AS n, SUM(qty) AS t FROM OrderItems")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d: %v", len(rows), rows)
	}
	if asFloat(t, rows[0]["n"]) != 2 || asFloat(t, rows[0]["t"]) != 6 {
		t.Errorf("row 0 = %v, want {n:2,t:6}", rows[0])
	}
}

// S5 - HAVING filters groups.
func TestScenarioS5HavingFiltersGroups(t *testing.T) {
	db := New(DefaultConfig())
	mustSeedOrders(t, db)

	rows, err := db.Query(
		"SELECT person_id, COUNT(*) AS c FROM Orders GROUP BY person_id HAVING COUNT(*) >= 1 ORDER BY person_id")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %v", len(rows), rows)
	}
	want := []float64{1, 2, 99}
	for i, w := range want {
		if asFloat(t, rows[i]["person_id"]) != w || asFloat(t, rows[i]["c"]) != 1 {
			t.Errorf("row %d = %v, want {person_id:%v,c:1}", i, rows[i], w)
		}
	}
}

// S6 - parameterized IN with array binding.
func TestScenarioS6ParameterizedIn(t *testing.T) {
	db := New(DefaultConfig())
	mustSeedPeople(t, db)

	rows, err := db.QueryWithArgs(
		"SELECT id FROM People WHERE city IN (?) ORDER BY id",
		[]any{"Porto", "Lisboa"},
	)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %v", len(rows), rows)
	}
	if asFloat(t, rows[0]["id"]) != 1 || asFloat(t, rows[1]["id"]) != 2 {
		t.Errorf("rows = %v, want [{id:1},{id:2}]", rows)
	}
}
