package schema

// RelationKind tags how a model field refers to other models.
type RelationKind int8

const (
	// None marks a scalar field.
	None RelationKind = iota
	// Forward is a reference to at most one related instance, stored on this model.
	Forward
	// Reverse is the collection of instances whose forward reference points at this one.
	Reverse
	// OneToOne is a symmetric zero-or-one relation.
	OneToOne
)

func (k RelationKind) String() string {
	switch k {
	case None:
		return "none"
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	case OneToOne:
		return "one_to_one"
	default:
		return "unknown"
	}
}

// Multiple reports whether the relation holds a sequence of instances.
func (k RelationKind) Multiple() bool {
	return k == Reverse
}
