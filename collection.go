package fosk

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/lvendrame/fosk/internal/catalog"
	"github.com/lvendrame/fosk/internal/exec"
	"github.com/lvendrame/fosk/internal/value"
)

// Collection is a named, schema-advisory store of JSON documents,
// guarded by its own sync.RWMutex (spec §5), grounded on
// _examples/KartikBazzad-bunbase/bundoc/collection.go's locking
// discipline.
type Collection struct {
	mu     sync.RWMutex
	name   string
	idType IDType
	idKey  string
	schema *gojsonschema.Schema
	nextID int64
	seq    int64
	docs   map[string]value.Value // keyed by the string form of the document's ID
	order  []string               // insertion order, for stable Scan/Count
}

func newCollection(name string, cfg collectionConfig) (*Collection, error) {
	c := &Collection{
		name:   name,
		idType: cfg.idType,
		idKey:  cfg.idKey,
		docs:   map[string]value.Value{},
	}
	if cfg.rawSchema != nil {
		loader := gojsonschema.NewGoLoader(cfg.rawSchema)
		compiled, err := gojsonschema.NewSchema(loader)
		if err != nil {
			return nil, fmt.Errorf("invalid json schema for collection %q: %w", name, err)
		}
		c.schema = compiled
	}
	return c, nil
}

func (c *Collection) Name() string { return c.name }

// Insert adds doc, generating an ID per the collection's IDType if
// doc's id field is absent, per spec §6.2.
func (c *Collection) Insert(doc map[string]any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	copyDoc := cloneMap(doc)
	rawID, hasID := copyDoc[c.idKey]
	var id any
	var key string
	if !hasID || rawID == nil {
		id = c.generateID()
		if id != nil {
			copyDoc[c.idKey] = id
			key = idKeyString(id)
		} else {
			// IDTypeNone: the document carries no id field at all; it is
			// still stored under an internal-only synthetic key so
			// Delete/Get/Update (which operate by id) simply never reach
			// it, matching spec §6.1's id_type=None semantics.
			c.seq++
			key = "\x00seq:" + strconv.FormatInt(c.seq, 10)
		}
	} else {
		id = rawID
		key = idKeyString(id)
	}
	if _, exists := c.docs[key]; exists {
		return nil, fmt.Errorf("insert %s: %w", key, ErrDocExists)
	}

	if err := c.validate(copyDoc); err != nil {
		return nil, err
	}

	c.docs[key] = value.From(copyDoc)
	c.order = append(c.order, key)
	return id, nil
}

// InsertMany inserts each document in order, stopping at the first
// failure; ids already assigned by prior successful inserts stay
// committed (spec has no cross-document transaction for a single
// InsertMany call, matching the Non-goal "no cross-collection
// transactions" extended here to within-call atomicity too).
func (c *Collection) InsertMany(docs []map[string]any) ([]any, error) {
	ids := make([]any, 0, len(docs))
	for i, d := range docs {
		id, err := c.Insert(d)
		if err != nil {
			return ids, fmt.Errorf("insert document %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Update replaces the document identified by id in full.
func (c *Collection) Update(id any, doc map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := idKeyString(id)
	if _, exists := c.docs[key]; !exists {
		return fmt.Errorf("update %s: %w", key, ErrDocNotFound)
	}

	copyDoc := cloneMap(doc)
	copyDoc[c.idKey] = id
	if err := c.validate(copyDoc); err != nil {
		return err
	}

	c.docs[key] = value.From(copyDoc)
	return nil
}

// Patch merges patch's top-level fields into the existing document.
func (c *Collection) Patch(id any, patch map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := idKeyString(id)
	existing, exists := c.docs[key]
	if !exists {
		return fmt.Errorf("patch %s: %w", key, ErrDocNotFound)
	}

	merged := cloneMap(existing.To().(map[string]any))
	for k, v := range patch {
		merged[k] = v
	}
	merged[c.idKey] = id
	if err := c.validate(merged); err != nil {
		return err
	}

	c.docs[key] = value.From(merged)
	return nil
}

// Delete removes the document identified by id, reporting whether it
// existed.
func (c *Collection) Delete(id any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := idKeyString(id)
	if _, exists := c.docs[key]; !exists {
		return false, nil
	}
	delete(c.docs, key)
	c.order = removeString(c.order, key)
	return true, nil
}

// Get returns the document identified by id.
func (c *Collection) Get(id any) (map[string]any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, exists := c.docs[idKeyString(id)]
	if !exists {
		return nil, false
	}
	return v.To().(map[string]any), true
}

func (c *Collection) Exists(id any) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.docs[idKeyString(id)]
	return exists
}

func (c *Collection) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Clear removes every document but keeps the collection registered
// (Design Note 3, SPEC_FULL.md: inferred schema does not survive
// Clear, since nothing is left to infer from).
func (c *Collection) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = map[string]value.Value{}
	c.order = nil
}

// Scan returns up to limit documents starting at offset, in insertion
// order (spec §6.2's paginated, non-SQL read path), via the
// limit/skip iterator decorators of iterator.go.
func (c *Collection) Scan(offset, limit int) []map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var it Iterator = newSliceIterator(c.order, c.docs)
	it = newSkipIterator(it, offset)
	it = newLimitIterator(it, limit)

	var out []map[string]any
	for it.Next() {
		out = append(out, it.Value().To().(map[string]any))
	}
	return out
}

// LoadJSON replaces the collection's contents with the documents
// decoded from v, which must be a JSON array of objects.
func (c *Collection) LoadJSON(v any) error {
	arr, ok := v.([]any)
	if !ok {
		return fmt.Errorf("LoadJSON: expected a JSON array, got %T", v)
	}
	c.mu.Lock()
	c.docs = map[string]value.Value{}
	c.order = nil
	c.mu.Unlock()

	for i, item := range arr {
		doc, ok := item.(map[string]any)
		if !ok {
			return fmt.Errorf("LoadJSON: element %d is not a JSON object", i)
		}
		if _, err := c.Insert(doc); err != nil {
			return fmt.Errorf("LoadJSON: element %d: %w", i, err)
		}
	}
	return nil
}

// LoadFile reads a JSON array of documents from path and loads it.
func (c *Collection) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("LoadFile %s: %w", path, err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("LoadFile %s: %w", path, err)
	}
	return c.LoadJSON(v)
}

// WriteJSON returns every document as a plain JSON array value, in
// insertion order.
func (c *Collection) WriteJSON() (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]any, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.docs[key].To())
	}
	return out, nil
}

// WriteFile writes the collection's contents to path as a JSON array.
func (c *Collection) WriteFile(path string) error {
	v, err := c.WriteJSON()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("WriteFile %s: %w", path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("WriteFile %s: %w", path, err)
	}
	return nil
}

// Schema returns the current advisory schema inferred by sampling up
// to catalog.SampleFloor documents (spec §4.3).
func (c *Collection) Schema() catalog.Schema {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return catalog.Infer(c.documentsLocked(), catalog.SampleFloor)
}

// Documents returns every document as a value.Value, implementing
// internal/exec.Source for the executor's Scan stage. Spec §5: the
// guard is held only long enough to snapshot the slice, not for the
// whole pipeline.
func (c *Collection) Documents() []value.Value {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.documentsLocked()
}

func (c *Collection) documentsLocked() []value.Value {
	out := make([]value.Value, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.docs[key])
	}
	return out
}

var _ exec.Source = (*Collection)(nil)

func (c *Collection) validate(doc map[string]any) error {
	if c.schema == nil {
		return nil
	}
	result, err := c.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return &TypeError{Msg: fmt.Sprintf("document invalid against schema: %v", msgs)}
	}
	return nil
}

// generateID must be called with c.mu held for writing.
func (c *Collection) generateID() any {
	switch c.idType {
	case IDTypeUUID:
		return uuid.NewString()
	case IDTypeNone:
		return nil
	default:
		c.nextID++
		return c.nextID
	}
}

func idKeyString(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func removeString(ss []string, target string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}
