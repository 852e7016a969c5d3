package store

import (
	"reflect"
	"strings"
	"time"

	"github.com/hengadev/serx/internal/schema"
)

var timeType = reflect.TypeOf(time.Time{})

// columnType maps a scalar Go type to its SQLite declared type. The declared
// type matters on read: go-sqlite3 returns time.Time for DATETIME and bool for
// BOOLEAN columns.
func columnType(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return "DATETIME"
	}
	switch t.Kind() {
	case reflect.Bool:
		return "BOOLEAN"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "INTEGER"
	case reflect.Float32, reflect.Float64:
		return "REAL"
	case reflect.Slice:
		return "BLOB"
	default:
		return "TEXT"
	}
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// createTableSQL returns the statements creating the table of m and the
// indexes on its relation columns.
func createTableSQL(m *schema.Model) ([]string, error) {
	defs := []string{quote(m.PK.Column) + " INTEGER PRIMARY KEY AUTOINCREMENT"}
	var indexes []string

	for _, f := range m.Columns() {
		if !f.IsRelation() {
			defs = append(defs, quote(f.Column)+" "+columnType(f.Type))
			continue
		}
		target, err := schema.Of(f.Target)
		if err != nil {
			return nil, err
		}
		def := quote(f.Column) + " INTEGER"
		if f.Relation == schema.OneToOne {
			def += " UNIQUE"
		}
		def += " REFERENCES " + quote(target.Table) + "(" + quote(target.PK.Column) + ")"
		defs = append(defs, def)

		if f.Relation == schema.Forward {
			name := "idx_" + m.Table + "_" + f.Column
			indexes = append(indexes, "CREATE INDEX IF NOT EXISTS "+quote(name)+" ON "+quote(m.Table)+"("+quote(f.Column)+")")
		}
	}

	stmts := []string{"CREATE TABLE IF NOT EXISTS " + quote(m.Table) + " (\n\t" + strings.Join(defs, ",\n\t") + "\n)"}
	return append(stmts, indexes...), nil
}

// selectColumns lists the primary key followed by every stored column.
func selectColumns(m *schema.Model) []*schema.Field {
	return append([]*schema.Field{m.PK}, m.Columns()...)
}

func columnList(fields []*schema.Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = quote(f.Column)
	}
	return strings.Join(names, ", ")
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
