package fosk

import (
	"errors"
	"testing"
)

func TestCollectionInsertAssignsIncrementingIntID(t *testing.T) {
	db := New(DefaultConfig())
	coll, err := db.CreateCollection("Things")
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}

	id1, err := coll.Insert(map[string]any{"name": "a"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	id2, err := coll.Insert(map[string]any{"name": "b"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id1 != int64(1) || id2 != int64(2) {
		t.Errorf("ids = %v, %v, want 1, 2", id1, id2)
	}
}

func TestCollectionInsertRejectsDuplicateID(t *testing.T) {
	db := New(DefaultConfig())
	coll, _ := db.CreateCollection("Things")
	if _, err := coll.Insert(map[string]any{"id": 1}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err := coll.Insert(map[string]any{"id": 1})
	if !errors.Is(err, ErrDocExists) {
		t.Errorf("err = %v, want ErrDocExists", err)
	}
}

func TestCollectionIDTypeUUIDGeneratesStrings(t *testing.T) {
	db := New(DefaultConfig())
	coll, err := db.CreateCollection("Things", WithIDType(IDTypeUUID))
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}
	id, err := coll.Insert(map[string]any{"name": "a"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	s, ok := id.(string)
	if !ok || len(s) != 36 {
		t.Errorf("id = %v (%T), want a 36-char UUID string", id, id)
	}
}

// IDTypeNone documents must each be individually storable: the
// internal synthetic storage key must not collide across inserts
// (regression test for the sequence-counter fix).
func TestCollectionIDTypeNoneAllowsManyDocuments(t *testing.T) {
	db := New(DefaultConfig())
	coll, err := db.CreateCollection("Things", WithIDType(IDTypeNone))
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}
	for i := 0; i < 5; i++ {
		id, err := coll.Insert(map[string]any{"n": i})
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		if id != nil {
			t.Errorf("insert %d: id = %v, want nil for IDTypeNone", i, id)
		}
	}
	if coll.Count() != 5 {
		t.Errorf("Count() = %d, want 5 (no collisions)", coll.Count())
	}
	docs := coll.Scan(0, -1)
	if len(docs) != 5 {
		t.Errorf("Scan returned %d documents, want 5", len(docs))
	}
	for _, d := range docs {
		if _, hasID := d["id"]; hasID {
			t.Errorf("document %v unexpectedly carries an id field", d)
		}
	}
}

func TestCollectionUpdateReplacesDocument(t *testing.T) {
	db := New(DefaultConfig())
	coll, _ := db.CreateCollection("Things")
	id, _ := coll.Insert(map[string]any{"name": "a", "extra": "x"})

	if err := coll.Update(id, map[string]any{"name": "b"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, ok := coll.Get(id)
	if !ok {
		t.Fatal("Get after Update: not found")
	}
	if got["name"] != "b" {
		t.Errorf("name = %v, want b", got["name"])
	}
	if _, hasExtra := got["extra"]; hasExtra {
		t.Error("Update should fully replace the document, but 'extra' survived")
	}
}

func TestCollectionUpdateMissingIDFails(t *testing.T) {
	db := New(DefaultConfig())
	coll, _ := db.CreateCollection("Things")
	err := coll.Update(999, map[string]any{"name": "x"})
	if !errors.Is(err, ErrDocNotFound) {
		t.Errorf("err = %v, want ErrDocNotFound", err)
	}
}

func TestCollectionPatchMergesFields(t *testing.T) {
	db := New(DefaultConfig())
	coll, _ := db.CreateCollection("Things")
	id, _ := coll.Insert(map[string]any{"name": "a", "extra": "x"})

	if err := coll.Patch(id, map[string]any{"name": "b"}); err != nil {
		t.Fatalf("patch: %v", err)
	}
	got, _ := coll.Get(id)
	if got["name"] != "b" || got["extra"] != "x" {
		t.Errorf("got %v, want name=b and extra=x preserved", got)
	}
}

func TestCollectionDeleteRemovesDocument(t *testing.T) {
	db := New(DefaultConfig())
	coll, _ := db.CreateCollection("Things")
	id, _ := coll.Insert(map[string]any{"name": "a"})

	deleted, err := coll.Delete(id)
	if err != nil || !deleted {
		t.Fatalf("delete = %v, %v, want true, nil", deleted, err)
	}
	if coll.Exists(id) {
		t.Error("document still exists after Delete")
	}
	deleted, err = coll.Delete(id)
	if err != nil || deleted {
		t.Errorf("second delete = %v, %v, want false, nil", deleted, err)
	}
}

func TestCollectionScanPagination(t *testing.T) {
	db := New(DefaultConfig())
	coll, _ := db.CreateCollection("Things")
	for i := 0; i < 5; i++ {
		coll.Insert(map[string]any{"n": i})
	}
	page := coll.Scan(1, 2)
	if len(page) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(page))
	}
	if page[0]["n"] != int64(1) || page[1]["n"] != int64(2) {
		t.Errorf("page = %v, want n=1,2", page)
	}
}

func TestCollectionWithJSONSchemaRejectsInvalidDocument(t *testing.T) {
	db := New(DefaultConfig())
	schema := map[string]any{
		"type":     "object",
		"required": []any{"name"},
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
	}
	coll, err := db.CreateCollection("Things", WithJSONSchema(schema))
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}

	if _, err := coll.Insert(map[string]any{"name": "a"}); err != nil {
		t.Fatalf("valid insert rejected: %v", err)
	}
	_, err = coll.Insert(map[string]any{})
	var typeErr *TypeError
	if !errors.As(err, &typeErr) {
		t.Errorf("err = %v, want *TypeError", err)
	}
}

func TestCollectionWithJSONSchemaCompileErrorPropagates(t *testing.T) {
	db := New(DefaultConfig())
	badSchema := map[string]any{"type": "object", "properties": "not-an-object"}
	_, err := db.CreateCollection("Things", WithJSONSchema(badSchema))
	if err == nil {
		t.Fatal("expected CreateCollection to fail on an invalid schema")
	}
}

func TestCollectionClearEmptiesButKeepsRegistration(t *testing.T) {
	db := New(DefaultConfig())
	coll, _ := db.CreateCollection("Things")
	coll.Insert(map[string]any{"n": 1})

	coll.Clear()
	if coll.Count() != 0 {
		t.Errorf("Count() after Clear = %d, want 0", coll.Count())
	}
	if _, ok := db.GetCollection("Things"); !ok {
		t.Error("Clear should not unregister the collection")
	}
}
