package fosk

// IDType selects how a collection generates an identifier for a
// document inserted without one (spec §6.1).
type IDType int

const (
	IDTypeInt IDType = iota
	IDTypeUUID
	IDTypeNone
)

// Config configures a Database's default ID generation strategy,
// inherited by every collection created without an override.
type Config struct {
	IDType IDType
	IDKey  string
}

// DefaultConfig mirrors the teacher family's DefaultOptions idiom:
// sensible zero-config defaults for the common case.
func DefaultConfig() Config {
	return Config{IDType: IDTypeInt, IDKey: "id"}
}

type collectionConfig struct {
	idType    IDType
	idKey     string
	rawSchema map[string]any
}

// CollectionOption customizes a collection at CreateCollection time.
type CollectionOption func(*collectionConfig)

// WithIDType overrides the database's default ID generation strategy
// for one collection.
func WithIDType(t IDType) CollectionOption {
	return func(c *collectionConfig) { c.idType = t }
}

// WithIDKey overrides the document field name carrying the identifier
// (defaults to the database Config's IDKey, itself defaulting to
// "id").
func WithIDKey(key string) CollectionOption {
	return func(c *collectionConfig) { c.idKey = key }
}

// WithJSONSchema validates every inserted or updated document against
// schema before it reaches the store, grounded on
// _examples/KartikBazzad-bunbase/bundoc/collection.go's use of
// gojsonschema for document validation. It is opt-in and orthogonal to
// the always-on, advisory-only inferred schema of internal/catalog.
func WithJSONSchema(schema map[string]any) CollectionOption {
	return func(c *collectionConfig) { c.rawSchema = schema }
}
