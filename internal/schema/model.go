// Package schema holds the immutable in-memory description of tenants,
// tables, columns, and tenant write permissions. It is built once at
// startup by Load and never mutated afterwards, so concurrent readers
// need no locking. Changing the schema requires a process restart.
package schema

import (
	"crypto/sha256"
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// Schema is the validated model the whole pipeline reads from.
type Schema struct {
	tenants map[string]*Tenant
	tables  map[string]*Table
	order   []string // table declaration order
}

// Tenant returns the tenant with the given id.
func (s *Schema) Tenant(id string) (*Tenant, bool) {
	t, ok := s.tenants[id]
	return t, ok
}

// Table returns the table with the given name.
func (s *Schema) Table(name string) (*Table, bool) {
	t, ok := s.tables[name]
	return t, ok
}

// Tables returns all declared tables in declaration order.
func (s *Schema) Tables() []*Table {
	out := make([]*Table, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.tables[name])
	}
	return out
}

// Tenant is an application identity permitted to submit events.
type Tenant struct {
	ID string

	// AllowOrigin is the CORS origin served for this tenant's
	// endpoints ("*" allows any origin).
	AllowOrigin string

	// Exactly one of secretDigest / secretHash is set, depending on
	// whether the schema declared secret_key or secret_key_hash.
	secretDigest []byte // SHA-256 of the plaintext shared secret
	secretHash   []byte // bcrypt hash

	allTables bool
	tables    map[string]struct{}
}

// VerifySecret reports whether the supplied credential matches the
// tenant's configured secret. Plaintext secrets are compared as SHA-256
// digests under subtle.ConstantTimeCompare so comparison time does not
// depend on where the first differing byte sits; bcrypt hashes go
// through bcrypt's own comparison.
func (t *Tenant) VerifySecret(secret string) bool {
	if t.secretHash != nil {
		return bcrypt.CompareHashAndPassword(t.secretHash, []byte(secret)) == nil
	}
	digest := sha256.Sum256([]byte(secret))
	return subtle.ConstantTimeCompare(t.secretDigest, digest[:]) == 1
}

// CanWrite reports whether the tenant is permitted to write to the
// named table.
func (t *Tenant) CanWrite(table string) bool {
	if t.allTables {
		return true
	}
	_, ok := t.tables[table]
	return ok
}

// Table is a declared target table with its ordered, typed columns.
type Table struct {
	Name    string
	Columns []Column

	index map[string]int
}

// Column is one declared column. Required columns must be present and
// non-null in every event; others insert NULL when absent.
type Column struct {
	Name     string
	Type     ColumnType
	Required bool
}

// Column returns the declared column with the given name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.Columns[i], true
}

// ColumnIndex returns the position of the named column within the
// table's declared column order.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}
