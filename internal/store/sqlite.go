// Package store persists serx models in SQLite through database/sql.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hengadev/serx/internal/schema"
)

// SQLite is the relational persistence collaborator used by serializers.
type SQLite struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Open opens the SQLite database at dsn and checks the connection.
func Open(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at '%s': %w", dsn, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database connection test failed for '%s': %w", dsn, err)
	}
	return &SQLite{db: db}, nil
}

// OpenInMemory opens a private in-memory database. The pool is capped at one
// connection since every new :memory: connection is a separate database.
func OpenInMemory() (*SQLite, error) {
	s, err := Open(":memory:")
	if err != nil {
		return nil, err
	}
	s.db.SetMaxOpenConns(1)
	return s, nil
}

// DB returns the underlying handle.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Close closes the underlying handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Migrate creates the tables of the given model prototypes when missing.
func (s *SQLite) Migrate(ctx context.Context, prototypes ...any) error {
	for _, p := range prototypes {
		m, err := schema.Of(reflect.TypeOf(p))
		if err != nil {
			return err
		}
		if err := m.Validate(); err != nil {
			return err
		}
		stmts, err := createTableSQL(m)
		if err != nil {
			return err
		}
		for _, stmt := range stmts {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create schema for %s: %w", m.Table, err)
			}
		}
	}
	return nil
}

// CreateOrUpdate inserts instance when its primary key is zero or absent from
// the table, and updates the stored row otherwise. Owning relations are written
// as the primary key of their target, which must already be saved.
func (s *SQLite) CreateOrUpdate(ctx context.Context, instance any) error {
	v, m, err := schema.For(instance)
	if err != nil {
		return err
	}

	cols := m.Columns()
	args := make([]any, len(cols))
	for i, f := range cols {
		arg, err := columnValue(f, v)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", m.Table, f.Name, err)
		}
		args[i] = arg
	}

	id := m.ID(v)
	if id != 0 {
		updated, err := s.update(ctx, m, cols, args, id)
		if err != nil || updated {
			return err
		}
		return s.insert(ctx, m, append([]*schema.Field{m.PK}, cols...), append([]any{id}, args...))
	}

	res, err := s.insertResult(ctx, m, cols, args)
	if err != nil {
		return err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return err
	}
	m.SetID(v, id)
	return nil
}

func (s *SQLite) update(ctx context.Context, m *schema.Model, cols []*schema.Field, args []any, id int64) (bool, error) {
	if len(cols) == 0 {
		var found int64
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM "+quote(m.Table)+" WHERE "+quote(m.PK.Column)+" = ?", id).Scan(&found)
		return found > 0, err
	}

	sets := make([]string, len(cols))
	for i, f := range cols {
		sets[i] = quote(f.Column) + " = ?"
	}
	query := "UPDATE " + quote(m.Table) + " SET " + strings.Join(sets, ", ") + " WHERE " + quote(m.PK.Column) + " = ?"
	res, err := s.db.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLite) insert(ctx context.Context, m *schema.Model, cols []*schema.Field, args []any) error {
	_, err := s.insertResult(ctx, m, cols, args)
	return err
}

func (s *SQLite) insertResult(ctx context.Context, m *schema.Model, cols []*schema.Field, args []any) (sql.Result, error) {
	if len(cols) == 0 {
		return s.db.ExecContext(ctx, "INSERT INTO "+quote(m.Table)+" DEFAULT VALUES")
	}
	query := "INSERT INTO " + quote(m.Table) + " (" + columnList(cols) + ") VALUES (" + placeholders(len(cols)) + ")"
	return s.db.ExecContext(ctx, query, args...)
}

// Get loads the record with primary key id into dst, a pointer to a model.
func (s *SQLite) Get(ctx context.Context, dst any, id int64) error {
	v, m, err := schema.For(dst)
	if err != nil {
		return err
	}
	return s.load(ctx, v, m, id)
}

func (s *SQLite) load(ctx context.Context, v reflect.Value, m *schema.Model, id int64) error {
	fields := selectColumns(m)
	query := "SELECT " + columnList(fields) + " FROM " + quote(m.Table) + " WHERE " + quote(m.PK.Column) + " = ?"
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s %s=%d", ErrNotFound, m.Table, m.PK.Column, id)
	}
	if err := scanRow(rows, v, m, fields); err != nil {
		return err
	}
	return rows.Err()
}

// filter returns the instances of m whose column equals id, ordered by primary key.
func (s *SQLite) filter(ctx context.Context, m *schema.Model, column string, id int64, limit int) ([]reflect.Value, error) {
	fields := selectColumns(m)
	query := "SELECT " + columnList(fields) + " FROM " + quote(m.Table) +
		" WHERE " + quote(column) + " = ? ORDER BY " + quote(m.PK.Column)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reflect.Value
	for rows.Next() {
		ptr := m.New()
		if err := scanRow(rows, ptr.Elem(), m, fields); err != nil {
			return nil, err
		}
		out = append(out, ptr)
	}
	return out, rows.Err()
}

// GetRelated returns what field of instance refers to: nil or a *T for single
// relations, a []any of *T for reverse collections.
func (s *SQLite) GetRelated(ctx context.Context, instance any, field string, kind schema.RelationKind) (any, error) {
	v, m, f, err := relationField(instance, field)
	if err != nil {
		return nil, err
	}
	if f.Relation != kind {
		return nil, newRelationMismatchError(m.Table, field, kind.String(), f.Relation.String())
	}
	target, err := schema.Of(f.Target)
	if err != nil {
		return nil, err
	}

	if f.Owning() {
		ref := f.Value(v)
		if ref.IsNil() {
			return nil, nil
		}
		id := target.ID(ref.Elem())
		if id == 0 {
			return ref.Interface(), nil
		}
		out := target.New()
		if err := s.load(ctx, out.Elem(), target, id); err != nil {
			return nil, err
		}
		return out.Interface(), nil
	}

	remote, err := mirror(target, f)
	if err != nil {
		return nil, err
	}
	id := m.ID(v)
	if kind.Multiple() {
		related := []any{}
		if id == 0 {
			return related, nil
		}
		items, err := s.filter(ctx, target, remote.Column, id, 0)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			related = append(related, item.Interface())
		}
		return related, nil
	}

	if id == 0 {
		return nil, nil
	}
	items, err := s.filter(ctx, target, remote.Column, id, 1)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return items[0].Interface(), nil
}

// SetRelated links related to field of instance. On an owning relation it only
// assigns the pointer, which the next CreateOrUpdate writes. On an inverse
// relation every related instance is pointed back at instance and saved;
// existing children are kept, except for a one-to-one whose previous holder is
// detached.
func (s *SQLite) SetRelated(ctx context.Context, instance any, field string, related any) error {
	v, m, f, err := relationField(instance, field)
	if err != nil {
		return err
	}
	if f.Owning() {
		return f.Link(v, related)
	}

	id := m.ID(v)
	if id == 0 {
		return newUnsavedInstanceError(m.Table, fmt.Sprintf("parent must be saved before linking '%s'", field))
	}
	target, err := schema.Of(f.Target)
	if err != nil {
		return err
	}
	remote, err := mirror(target, f)
	if err != nil {
		return err
	}

	children, err := instances(related, reflect.PointerTo(target.Type))
	if err != nil {
		return fmt.Errorf("%s.%s: %w", m.Table, field, err)
	}

	if f.Relation == schema.OneToOne {
		if len(children) > 1 {
			return newRelationMismatchError(m.Table, field, "a sequence", f.Relation.String())
		}
		keep := int64(0)
		if len(children) == 1 {
			keep = target.ID(reflect.ValueOf(children[0]).Elem())
		}
		query := "UPDATE " + quote(target.Table) + " SET " + quote(remote.Column) + " = NULL WHERE " +
			quote(remote.Column) + " = ? AND " + quote(target.PK.Column) + " != ?"
		if _, err := s.db.ExecContext(ctx, query, id, keep); err != nil {
			return err
		}
	}

	for _, child := range children {
		if err := remote.Link(reflect.ValueOf(child).Elem(), instance); err != nil {
			return err
		}
		if err := s.CreateOrUpdate(ctx, child); err != nil {
			return err
		}
	}
	return nil
}

// Exists reports whether any instance refers back to instance through the
// inverse relation field.
func (s *SQLite) Exists(ctx context.Context, instance any, field string) (bool, error) {
	v, m, f, err := relationField(instance, field)
	if err != nil {
		return false, err
	}
	if !f.Inverse {
		return false, newRelationMismatchError(m.Table, field, "an inverse relation", f.Relation.String())
	}
	id := m.ID(v)
	if id == 0 {
		return false, nil
	}
	target, err := schema.Of(f.Target)
	if err != nil {
		return false, err
	}
	remote, err := mirror(target, f)
	if err != nil {
		return false, err
	}

	var found int64
	query := "SELECT EXISTS(SELECT 1 FROM " + quote(target.Table) + " WHERE " + quote(remote.Column) + " = ?)"
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&found); err != nil {
		return false, err
	}
	return found != 0, nil
}

func relationField(instance any, field string) (reflect.Value, *schema.Model, *schema.Field, error) {
	v, m, err := schema.For(instance)
	if err != nil {
		return reflect.Value{}, nil, nil, err
	}
	f, ok := m.Field(field)
	if !ok {
		return reflect.Value{}, nil, nil, newUnknownFieldError(m.Table, field)
	}
	if !f.IsRelation() {
		return reflect.Value{}, nil, nil, newRelationMismatchError(m.Table, field, "a relation", f.Relation.String())
	}
	return v, m, f, nil
}

// mirror returns the owning field on target that the inverse field f mirrors.
func mirror(target *schema.Model, f *schema.Field) (*schema.Field, error) {
	remote, ok := target.Field(f.Remote)
	if !ok || !remote.Owning() {
		return nil, newUnknownFieldError(target.Table, f.Remote)
	}
	return remote, nil
}

// columnValue returns the value written for f: the scalar itself, or the
// primary key of the target of an owning relation.
func columnValue(f *schema.Field, v reflect.Value) (any, error) {
	if !f.IsRelation() {
		return f.Get(v), nil
	}
	ref := f.Value(v)
	if ref.IsNil() {
		return nil, nil
	}
	target, err := schema.Of(f.Target)
	if err != nil {
		return nil, err
	}
	id := target.ID(ref.Elem())
	if id == 0 {
		return nil, newUnsavedInstanceError(target.Table, fmt.Sprintf("save the related instance before '%s'", f.Name))
	}
	return id, nil
}

func scanRow(rows *sql.Rows, v reflect.Value, m *schema.Model, fields []*schema.Field) error {
	holders := make([]any, len(fields))
	ptrs := make([]any, len(fields))
	for i := range holders {
		ptrs[i] = &holders[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return err
	}

	for i, f := range fields {
		if !f.IsRelation() {
			if err := f.Set(v, holders[i]); err != nil {
				return fmt.Errorf("%s.%s: %w", m.Table, f.Name, err)
			}
			continue
		}
		if holders[i] == nil {
			if err := f.Link(v, nil); err != nil {
				return err
			}
			continue
		}
		id, ok := holders[i].(int64)
		if !ok {
			return fmt.Errorf("%s.%s: %w: unexpected key %T", m.Table, f.Name, schema.ErrTypeConversion, holders[i])
		}
		target, err := schema.Of(f.Target)
		if err != nil {
			return err
		}
		stub := target.New()
		target.SetID(stub.Elem(), id)
		if err := f.Link(v, stub.Interface()); err != nil {
			return err
		}
	}
	return nil
}

// instances flattens nil, a single *T or a slice of *T into a list.
func instances(related any, want reflect.Type) ([]any, error) {
	if related == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(related)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Type() != want {
			return nil, fmt.Errorf("%w: expected %s, got %s", schema.ErrTypeConversion, want, rv.Type())
		}
		return []any{related}, nil
	case reflect.Slice:
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item := rv.Index(i)
			if item.Kind() == reflect.Interface {
				item = item.Elem()
			}
			if !item.IsValid() || item.Type() != want || item.IsNil() {
				return nil, fmt.Errorf("%w: element %d is not a non-nil %s", schema.ErrTypeConversion, i, want)
			}
			out = append(out, item.Interface())
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected %s or a slice of it, got %T", schema.ErrTypeConversion, want, related)
	}
}
