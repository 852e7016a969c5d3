package serx

import "github.com/hengadev/serx/internal/schema"

// RelationKind tags how a field refers to other models.
type RelationKind = schema.RelationKind

const (
	None     = schema.None
	Forward  = schema.Forward
	Reverse  = schema.Reverse
	OneToOne = schema.OneToOne
)

// Data is the plain nested value exchanged by serializers: field name to a
// scalar, a nested Data, or a sequence of Data.
type Data = map[string]any
