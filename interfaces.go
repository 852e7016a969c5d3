package serx

import "context"

// Store defines the contract of the persistence collaborator used by serializers.
//
// Serializers never build SQL or touch a database themselves: every read and
// write of a model instance goes through a Store. Instances are pointers to
// model structs described with `serx` struct tags.
//
// Implementations:
//   - SQLite: serx.NewSQLiteStore, serx.OpenSQLiteStore, serx.NewInMemoryStore
//
// Errors returned by a Store are surfaced to the caller of Serialize, Save and
// Update unchanged.
type Store interface {
	// CreateOrUpdate persists instance.
	//
	// An instance with a zero primary key is inserted and receives its new key.
	// Otherwise the stored row is updated, or inserted under that key when it
	// does not exist yet. Owning relations (fk and one_to_one fields) are
	// written as the primary key of their target, which must be persisted first.
	CreateOrUpdate(ctx context.Context, instance any) error

	// GetRelated returns what the relation field of instance refers to.
	//
	// Forward and one-to-one relations return nil or a single instance.
	// Reverse collections return a sequence of instances, possibly empty.
	// A kind that disagrees with the model declaration is an error.
	GetRelated(ctx context.Context, instance any, field string, kind RelationKind) (any, error)

	// SetRelated links related (nil, an instance, or a slice of instances) to
	// the relation field of instance.
	//
	// On an owning side the link is recorded on instance and written by the
	// next CreateOrUpdate. On an inverse side every related instance is pointed
	// back at instance and persisted, which requires instance to be persisted.
	SetRelated(ctx context.Context, instance any, field string, related any) error

	// Exists reports whether any instance refers back to instance through the
	// inverse relation field.
	Exists(ctx context.Context, instance any, field string) (bool, error)
}
