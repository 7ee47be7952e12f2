package schema

import (
	"crypto/sha256"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File mirrors the YAML schema description on disk.
type File struct {
	Tenants []TenantDecl `yaml:"tenants"`
	Tables  []TableDecl  `yaml:"tables"`
}

type TenantDecl struct {
	ID            string   `yaml:"id"`
	SecretKey     string   `yaml:"secret_key"`
	SecretKeyHash string   `yaml:"secret_key_hash"`
	AllowOrigin   string   `yaml:"access_control_allow_origin"`
	Tables        []string `yaml:"tables"`
}

type TableDecl struct {
	Name    string       `yaml:"name"`
	Columns []ColumnDecl `yaml:"columns"`
}

type ColumnDecl struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required"`
}

// LoadFile reads and validates the schema description at path.
func LoadFile(path string) (*Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	s, err := Load(raw)
	if err != nil {
		return nil, fmt.Errorf("schema file %s: %w", path, err)
	}
	return s, nil
}

// Load parses a YAML schema description and validates its internal
// consistency. Any inconsistency fails the whole load; the process must
// not serve with a partially valid schema.
func Load(raw []byte) (*Schema, error) {
	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return Build(&file)
}

// Build validates a parsed schema description and constructs the model.
func Build(file *File) (*Schema, error) {
	s := &Schema{
		tenants: make(map[string]*Tenant, len(file.Tenants)),
		tables:  make(map[string]*Table, len(file.Tables)),
	}

	for _, decl := range file.Tables {
		if decl.Name == "" {
			return nil, fmt.Errorf("table with empty name")
		}
		if _, ok := s.tables[decl.Name]; ok {
			return nil, fmt.Errorf("duplicate table name %q", decl.Name)
		}
		table := &Table{
			Name:    decl.Name,
			Columns: make([]Column, 0, len(decl.Columns)),
			index:   make(map[string]int, len(decl.Columns)),
		}
		for _, col := range decl.Columns {
			if col.Name == "" {
				return nil, fmt.Errorf("table %q: column with empty name", decl.Name)
			}
			if _, ok := table.index[col.Name]; ok {
				return nil, fmt.Errorf("table %q: duplicate column name %q", decl.Name, col.Name)
			}
			typ, err := ParseColumnType(col.Type)
			if err != nil {
				return nil, fmt.Errorf("table %q, column %q: %w", decl.Name, col.Name, err)
			}
			table.index[col.Name] = len(table.Columns)
			table.Columns = append(table.Columns, Column{
				Name:     col.Name,
				Type:     typ,
				Required: col.Required,
			})
		}
		s.tables[decl.Name] = table
		s.order = append(s.order, decl.Name)
	}

	for _, decl := range file.Tenants {
		if decl.ID == "" {
			return nil, fmt.Errorf("tenant with empty id")
		}
		if _, ok := s.tenants[decl.ID]; ok {
			return nil, fmt.Errorf("duplicate tenant id %q", decl.ID)
		}
		tenant := &Tenant{
			ID:          decl.ID,
			AllowOrigin: decl.AllowOrigin,
			tables:      make(map[string]struct{}, len(decl.Tables)),
		}
		switch {
		case decl.SecretKey != "" && decl.SecretKeyHash != "":
			return nil, fmt.Errorf("tenant %q: secret_key and secret_key_hash are mutually exclusive", decl.ID)
		case decl.SecretKeyHash != "":
			tenant.secretHash = []byte(decl.SecretKeyHash)
		case decl.SecretKey != "":
			digest := sha256.Sum256([]byte(decl.SecretKey))
			tenant.secretDigest = digest[:]
		default:
			return nil, fmt.Errorf("tenant %q: missing secret_key or secret_key_hash", decl.ID)
		}
		for _, name := range decl.Tables {
			if name == "*" {
				tenant.allTables = true
				continue
			}
			if _, ok := s.tables[name]; !ok {
				return nil, fmt.Errorf("tenant %q references undeclared table %q", decl.ID, name)
			}
			tenant.tables[name] = struct{}{}
		}
		s.tenants[decl.ID] = tenant
	}

	return s, nil
}
