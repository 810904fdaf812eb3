package fosk

import (
	"errors"
	"testing"
)

func TestDatabaseCreateCollectionRejectsDuplicateName(t *testing.T) {
	db := New(DefaultConfig())
	if _, err := db.CreateCollection("Things"); err != nil {
		t.Fatalf("create collection: %v", err)
	}
	_, err := db.CreateCollection("Things")
	if !errors.Is(err, ErrCollectionExists) {
		t.Errorf("err = %v, want ErrCollectionExists", err)
	}
}

func TestDatabaseListAndDropCollection(t *testing.T) {
	db := New(DefaultConfig())
	db.CreateCollection("A")
	db.CreateCollection("B")

	names := db.ListCollections()
	if len(names) != 2 {
		t.Fatalf("expected 2 collections, got %d", len(names))
	}

	if !db.DropCollection("A") {
		t.Error("DropCollection should report true for an existing collection")
	}
	if db.DropCollection("A") {
		t.Error("DropCollection should report false the second time")
	}
	if _, ok := db.GetCollection("A"); ok {
		t.Error("dropped collection should no longer be gettable")
	}
}

func TestDatabaseSchemaOfIsCaseInsensitive(t *testing.T) {
	db := New(DefaultConfig())
	coll, _ := db.CreateCollection("People")
	coll.Insert(map[string]any{"id": 1, "city": "Porto"})

	schema, ok := db.SchemaOf("people")
	if !ok {
		t.Fatal("expected a case-insensitive schema lookup to succeed")
	}
	if _, has := schema["city"]; !has {
		t.Errorf("schema = %v, want a 'city' field", schema)
	}
}

func TestDatabaseQueryCountStarMatchesCollectionCount(t *testing.T) {
	db := New(DefaultConfig())
	coll, _ := db.CreateCollection("People")
	for i := 0; i < 4; i++ {
		coll.Insert(map[string]any{"id": i})
	}

	rows, err := db.Query("SELECT COUNT(*) AS n FROM People")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	n, ok := rows[0]["n"].(int64)
	if !ok || int(n) != coll.Count() {
		t.Errorf("n = %v, want %d", rows[0]["n"], coll.Count())
	}
}

func TestDatabaseQueryUnknownCollectionIsBindError(t *testing.T) {
	db := New(DefaultConfig())
	_, err := db.Query("SELECT * FROM Ghosts")
	var bindErr *BindError
	if !errors.As(err, &bindErr) {
		t.Errorf("err = %v, want *BindError", err)
	}
}

func TestDatabaseQueryWithArgsParamArityMismatchIsBindError(t *testing.T) {
	db := New(DefaultConfig())
	db.CreateCollection("People")
	_, err := db.QueryWithArgs("SELECT * FROM People WHERE id = ? AND city = ?", []any{1})
	var bindErr *BindError
	if !errors.As(err, &bindErr) {
		t.Errorf("err = %v, want *BindError", err)
	}
}

func TestDatabaseQuerySyntaxErrorIsParseError(t *testing.T) {
	db := New(DefaultConfig())
	db.CreateCollection("People")
	_, err := db.Query("SELECT FROM People")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("err = %v, want *ParseError", err)
	}
}

// Repeated execution of the same SQL text with different argument
// values must not reuse a stale bound plan (regression test for the
// cache design correction: only the pre-bind AST is cached).
func TestDatabaseQueryCacheDoesNotLeakBoundArgsAcrossCalls(t *testing.T) {
	db := New(DefaultConfig())
	coll, _ := db.CreateCollection("People")
	coll.Insert(map[string]any{"id": 1, "city": "Porto"})
	coll.Insert(map[string]any{"id": 2, "city": "Lisboa"})

	const sql = "SELECT id FROM People WHERE city = ? ORDER BY id"

	rows1, err := db.QueryWithArgs(sql, "Porto")
	if err != nil {
		t.Fatalf("first query: %v", err)
	}
	rows2, err := db.QueryWithArgs(sql, "Lisboa")
	if err != nil {
		t.Fatalf("second query: %v", err)
	}

	if len(rows1) != 1 || rows1[0]["id"] != int64(1) {
		t.Errorf("rows1 = %v, want [{id:1}]", rows1)
	}
	if len(rows2) != 1 || rows2[0]["id"] != int64(2) {
		t.Errorf("rows2 = %v, want [{id:2}]", rows2)
	}
}

func TestDatabaseClearEmptiesEveryCollectionWithoutUnregistering(t *testing.T) {
	db := New(DefaultConfig())
	coll, _ := db.CreateCollection("People")
	coll.Insert(map[string]any{"id": 1})

	db.Clear()

	if coll.Count() != 0 {
		t.Errorf("Count() = %d, want 0 after Clear", coll.Count())
	}
	if _, ok := db.GetCollection("People"); !ok {
		t.Error("Clear should not unregister collections")
	}
}

// A disambiguated join output column ("o.id") must not collide with
// another disambiguated column sharing the same bare name in the same
// row (regression test for the flattenRow fix).
func TestDatabaseQueryDisambiguatedColumnsDoNotCollide(t *testing.T) {
	db := New(DefaultConfig())
	orders, _ := db.CreateCollection("Orders")
	orders.Insert(map[string]any{"id": 10, "person_id": 1})
	people, _ := db.CreateCollection("People")
	people.Insert(map[string]any{"id": 1, "city": "Porto"})
	_ = people

	rows, err := db.Query("SELECT o.id, p.id FROM Orders o JOIN People p ON p.id = o.person_id")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	oid, hasO := rows[0]["o.id"]
	pid, hasP := rows[0]["p.id"]
	if !hasO || !hasP {
		t.Fatalf("row = %v, want both o.id and p.id present", rows[0])
	}
	if oid != int64(10) || pid != int64(1) {
		t.Errorf("o.id=%v p.id=%v, want 10, 1", oid, pid)
	}
}
