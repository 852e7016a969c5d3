package serx

import (
	"reflect"

	"github.com/hengadev/serx/internal/schema"
)

// guardKey identifies an instance by table and primary key. Unsaved instances
// have no key yet and are told apart by address.
type guardKey struct {
	table string
	id    int64
	addr  uintptr
}

// guard is the set of instances already embedded by one top-level Serialize
// call. It is shared by every nested call of that invocation and dropped
// when the call returns.
type guard map[guardKey]struct{}

// visit records instance and reports whether it was not yet in the guard.
func (g guard) visit(m *schema.Model, v reflect.Value) bool {
	key := guardKey{table: m.Table, id: m.ID(v)}
	if key.id == 0 && v.CanAddr() {
		key.addr = v.Addr().Pointer()
	}
	if _, seen := g[key]; seen {
		return false
	}
	g[key] = struct{}{}
	return true
}
