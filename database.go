package fosk

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/lvendrame/fosk/internal/analyzer"
	"github.com/lvendrame/fosk/internal/ast"
	"github.com/lvendrame/fosk/internal/catalog"
	"github.com/lvendrame/fosk/internal/exec"
	"github.com/lvendrame/fosk/internal/logger"
	"github.com/lvendrame/fosk/internal/plan"
	"github.com/lvendrame/fosk/internal/token"
)

const astCacheSize = 256

// Database is the root handle: a registry of named Collections plus
// the SQL query surface of spec §4/§6, grounded on
// _examples/KartikBazzad-bunbase/bundoc/database.go's coordinator role
// (stripped of the storage/WAL/MVCC/rules subsystems a Non-goal rules
// out — see DESIGN.md).
type Database struct {
	mu          sync.RWMutex
	config      Config
	collections map[string]*Collection
	astCache    *lru.Cache[string, *ast.Select]
	inflight    singleflight.Group
	log         *logger.Logger
}

// New creates an empty Database. cfg supplies the default ID
// generation strategy every CreateCollection call inherits unless
// overridden by a CollectionOption.
func New(cfg Config) *Database {
	if cfg.IDKey == "" {
		cfg.IDKey = "id"
	}
	cache, _ := lru.New[string, *ast.Select](astCacheSize)
	return &Database{
		config:      cfg,
		collections: map[string]*Collection{},
		astCache:    cache,
		log:         logger.Default(),
	}
}

// CreateCollection registers a new, empty collection, configured by
// the database's defaults and any supplied CollectionOption.
func (db *Database) CreateCollection(name string, opts ...CollectionOption) (*Collection, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.collections[name]; exists {
		return nil, fmt.Errorf("create collection %q: %w", name, ErrCollectionExists)
	}

	cfg := collectionConfig{idType: db.config.IDType, idKey: db.config.IDKey}
	for _, opt := range opts {
		opt(&cfg)
	}

	coll, err := newCollection(name, cfg)
	if err != nil {
		return nil, err
	}
	db.collections[name] = coll
	db.log.Debug("created collection %q", name)
	return coll, nil
}

// GetCollection returns the named collection, if registered.
func (db *Database) GetCollection(name string) (*Collection, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	coll, ok := db.collections[name]
	return coll, ok
}

// DropCollection unregisters the named collection, reporting whether
// it existed.
func (db *Database) DropCollection(name string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, exists := db.collections[name]; !exists {
		return false
	}
	delete(db.collections, name)
	db.log.Debug("dropped collection %q", name)
	return true
}

// Clear empties every registered collection without unregistering any
// of them (spec §6.1; distinct from DropCollection).
func (db *Database) Clear() {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, coll := range db.collections {
		coll.Clear()
	}
}

// ListCollections returns the registered collection names.
func (db *Database) ListCollections() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	names := make([]string, 0, len(db.collections))
	for name := range db.collections {
		names = append(names, name)
	}
	return names
}

// SchemaOf implements catalog.Provider against the live collection
// registry, case-insensitively per spec §11's supplemented lookup
// rule (confirmed against original_source/src/database/db.rs tests).
func (db *Database) SchemaOf(name string) (catalog.Schema, bool) {
	db.mu.RLock()
	coll, ok := db.collections[name]
	if !ok {
		for n, c := range db.collections {
			if equalFold(n, name) {
				coll, ok = c, true
				break
			}
		}
	}
	db.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return coll.Schema(), true
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Query runs sql with no parameters, per spec §6.1/§6.3.
func (db *Database) Query(sql string) ([]map[string]any, error) {
	return db.QueryWithArgs(sql, nil)
}

// QueryWithArgs runs sql, substituting args for its `?` placeholders
// per spec §4.2/§11's dual scalar/array binding rule. Identical
// concurrent (sql, args) calls are coalesced via singleflight so N
// goroutines issuing the same read pay for one Scan pass (spec §5's
// supplemental concurrency note); this adds no transactional
// guarantee beyond spec §5, only request deduplication.
func (db *Database) QueryWithArgs(sql string, args any) ([]map[string]any, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal query args: %w", err)
	}
	sfKey := sql + "\x00" + string(argsJSON)

	v, err, _ := db.inflight.Do(sfKey, func() (any, error) {
		return db.run(sql, args)
	})
	if err != nil {
		return nil, err
	}
	return v.([]map[string]any), nil
}

func (db *Database) run(sql string, args any) ([]map[string]any, error) {
	stmt, err := db.parseCached(sql)
	if err != nil {
		return nil, err
	}

	placeholderCount := ast.ParamCount(stmt)
	var params []ast.Expr
	if placeholderCount > 0 {
		params, err = analyzer.BindParams(args, placeholderCount)
		if err != nil {
			return nil, translateBindErr(err)
		}
	}

	query, err := analyzer.Analyze(stmt, db, params)
	if err != nil {
		return nil, translateBindErr(err)
	}

	node, err := plan.Build(query)
	if err != nil {
		return nil, err
	}

	sources := db.sourcesSnapshot()
	backings := []string{query.From.Backing}
	for _, j := range query.Joins {
		backings = append(backings, j.Right.Backing)
	}
	for _, b := range backings {
		if _, ok := sources[b]; ok {
			continue
		}
		for name, src := range sources {
			if equalFold(name, b) {
				sources[b] = src
				break
			}
		}
	}
	rows, err := exec.Run(context.Background(), node, sources)
	if err != nil {
		return nil, translateRuntimeErr(err)
	}

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, flattenRow(row, query.Projection))
	}
	return out, nil
}

// flattenRow turns one output Row into a JSON-friendly map. Naming is
// not re-decided here: an explicitly projected column already carries
// its final OutputName (bare or analyzer-disambiguated "alias.field",
// per spec §4.4) and is emitted verbatim. Only a wildcard-expanded
// key, which is still in its raw "alias.field" scan form, gets its
// alias prefix stripped ("alias.field" -> "field") so SELECT * results
// read naturally — and only when doing so is safe: when the resulting
// bare name would collide with another key in the same row (another
// wildcard field of the same name, or an explicitly projected column
// already occupying that bare name), the qualified form is kept.
func flattenRow(row exec.Row, projs []analyzer.ProjectionOut) map[string]any {
	explicit := make(map[string]bool, len(projs))
	for _, p := range projs {
		if !p.Wildcard {
			explicit[p.OutputName] = true
		}
	}
	keys := row.Keys()
	bareCount := make(map[string]int, len(keys))
	for _, k := range keys {
		if !explicit[k] {
			bareCount[bareName(k)]++
		}
	}
	m := make(map[string]any, len(keys))
	for _, k := range keys {
		v, _ := row.Get(k)
		if explicit[k] {
			m[k] = v.To()
			continue
		}
		name := bareName(k)
		if bareCount[name] > 1 || explicit[name] {
			name = k
		}
		m[name] = v.To()
	}
	return m
}

func bareName(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '.' {
			return key[i+1:]
		}
	}
	return key
}

func (db *Database) parseCached(sql string) (*ast.Select, error) {
	if stmt, ok := db.astCache.Get(sql); ok {
		return stmt, nil
	}
	stmt, err := ast.ParseSelect(sql)
	if err != nil {
		db.log.Debug("parse failed: %v", err)
		return nil, translateParseErr(err)
	}
	db.astCache.Add(sql, stmt)
	return stmt, nil
}

func translateParseErr(err error) error {
	switch e := err.(type) {
	case *token.LexError:
		return &LexError{Offset: e.Offset, Msg: e.Msg}
	case *ast.ParseError:
		return &ParseError{Offset: e.Offset, Msg: e.Msg}
	default:
		return err
	}
}

func translateBindErr(err error) error {
	if e, ok := err.(*analyzer.BindError); ok {
		return &BindError{Msg: e.Msg}
	}
	return err
}

func translateRuntimeErr(err error) error {
	if e, ok := err.(*exec.RuntimeError); ok {
		return &RuntimeError{Msg: e.Msg}
	}
	return err
}

func (db *Database) sourcesSnapshot() map[string]exec.Source {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make(map[string]exec.Source, len(db.collections))
	for name, coll := range db.collections {
		out[name] = coll
	}
	return out
}
