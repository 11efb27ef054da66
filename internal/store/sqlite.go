package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cancelei/ca-small-claims/internal/schema"
	_ "modernc.org/sqlite"
)

const ddl = `
CREATE TABLE IF NOT EXISTS categories (
	id   INTEGER PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS forms (
	id           INTEGER PRIMARY KEY,
	code         TEXT NOT NULL UNIQUE,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	category_id  INTEGER REFERENCES categories(id),
	pdf_filename TEXT NOT NULL,
	fillable     INTEGER NOT NULL DEFAULT 1,
	instructions TEXT NOT NULL DEFAULT '',
	updated_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS form_fields (
	id              INTEGER PRIMARY KEY,
	form_code       TEXT NOT NULL REFERENCES forms(code) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	pdf_field_name  TEXT NOT NULL,
	type            TEXT NOT NULL,
	label           TEXT NOT NULL,
	placeholder     TEXT NOT NULL DEFAULT '',
	help_text       TEXT NOT NULL DEFAULT '',
	required        INTEGER NOT NULL DEFAULT 0,
	pattern         TEXT NOT NULL DEFAULT '',
	min_length      INTEGER NOT NULL DEFAULT 0,
	max_length      INTEGER NOT NULL DEFAULT 0,
	section         TEXT NOT NULL,
	position        INTEGER NOT NULL,
	page            INTEGER NOT NULL DEFAULT 0,
	width           TEXT NOT NULL,
	conditions      TEXT NOT NULL DEFAULT '[]',
	repeat_group    TEXT NOT NULL DEFAULT '',
	max_repetitions INTEGER NOT NULL DEFAULT 0,
	options         TEXT NOT NULL DEFAULT '[]',
	shared_key      TEXT NOT NULL DEFAULT '',
	pii             INTEGER NOT NULL DEFAULT 0,
	updated_at      TEXT NOT NULL,
	UNIQUE (form_code, name)
);

CREATE TABLE IF NOT EXISTS submissions (
	id                TEXT PRIMARY KEY,
	form_code         TEXT NOT NULL DEFAULT '',
	last_generated_at TEXT
);
`

// seedCategories populates the category reference set on first open.
var seedCategories = map[string]string{
	"plaintiff":  "Plaintiff",
	"defendant":  "Defendant",
	"claim":      "Claim",
	"court":      "Court",
	"hearing":    "Hearing",
	"judgment":   "Judgment",
	"fee-waiver": "Fee Waiver",
	"general":    "General",
}

// SQLite implements Store on a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// Open opens (and if necessary creates) the database at path, applying WAL
// pragmas and the schema. Parent directories are created.
func Open(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a distinct database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}

	for slug, name := range seedCategories {
		if _, err := db.Exec(
			`INSERT INTO categories (slug, name) VALUES (?, ?) ON CONFLICT(slug) DO NOTHING`,
			slug, name,
		); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: seed categories: %w", err)
		}
	}

	return &SQLite{db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }

// Categories returns the reference category set ordered by slug.
func (s *SQLite) Categories() ([]CategoryRecord, error) {
	rows, err := s.db.Query(`SELECT id, slug, name FROM categories ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("store: categories: %w", err)
	}
	defer rows.Close()

	var cats []CategoryRecord
	for rows.Next() {
		var c CategoryRecord
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name); err != nil {
			return nil, fmt.Errorf("store: scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// UpsertForm inserts or updates the form row keyed by code and backfills
// the record's ID.
func (s *SQLite) UpsertForm(f *FormRecord) error {
	f.UpdatedAt = time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO forms (code, title, description, category_id, pdf_filename, fillable, instructions, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			category_id = excluded.category_id,
			pdf_filename = excluded.pdf_filename,
			fillable = excluded.fillable,
			instructions = excluded.instructions,
			updated_at = excluded.updated_at`,
		f.Code, f.Title, f.Description, nullableID(f.CategoryID), f.PDFFilename,
		boolInt(f.Fillable), f.Instructions, f.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store: upsert form %s: %w", f.Code, err)
	}
	return s.db.QueryRow(`SELECT id FROM forms WHERE code = ?`, f.Code).Scan(&f.ID)
}

// FormByCode returns the form row, or nil when absent.
func (s *SQLite) FormByCode(code string) (*FormRecord, error) {
	var (
		f          FormRecord
		fillable   int
		catID      sql.NullInt64
		updatedRaw string
	)
	err := s.db.QueryRow(`
		SELECT id, code, title, description, category_id, pdf_filename, fillable, instructions, updated_at
		FROM forms WHERE code = ?`, code,
	).Scan(&f.ID, &f.Code, &f.Title, &f.Description, &catID, &f.PDFFilename, &fillable, &f.Instructions, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: form %s: %w", code, err)
	}
	f.Fillable = fillable != 0
	f.CategoryID = catID.Int64
	if t, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		f.UpdatedAt = t
	}
	return &f, nil
}

// UpsertField inserts or updates one field row keyed by (form, name).
func (s *SQLite) UpsertField(f *FieldRecord) error {
	conditions, err := json.Marshal(f.Conditions)
	if err != nil {
		return fmt.Errorf("store: marshal conditions: %w", err)
	}
	options, err := json.Marshal(f.Options)
	if err != nil {
		return fmt.Errorf("store: marshal options: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO form_fields (
			form_code, name, pdf_field_name, type, label, placeholder, help_text,
			required, pattern, min_length, max_length, section, position, page,
			width, conditions, repeat_group, max_repetitions, options, shared_key,
			pii, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(form_code, name) DO UPDATE SET
			pdf_field_name = excluded.pdf_field_name,
			type = excluded.type,
			label = excluded.label,
			placeholder = excluded.placeholder,
			help_text = excluded.help_text,
			required = excluded.required,
			pattern = excluded.pattern,
			min_length = excluded.min_length,
			max_length = excluded.max_length,
			section = excluded.section,
			position = excluded.position,
			page = excluded.page,
			width = excluded.width,
			conditions = excluded.conditions,
			repeat_group = excluded.repeat_group,
			max_repetitions = excluded.max_repetitions,
			options = excluded.options,
			shared_key = excluded.shared_key,
			pii = excluded.pii,
			updated_at = excluded.updated_at`,
		f.FormCode, f.Name, f.PDFFieldName, string(f.Type), f.Label, f.Placeholder,
		f.HelpText, boolInt(f.Required), f.Pattern, f.MinLength, f.MaxLength,
		f.Section, f.Position, f.Page, f.Width, string(conditions), f.RepeatGroup,
		f.MaxRepetitions, string(options), f.SharedKey, boolInt(f.PII),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store: upsert field %s/%s: %w", f.FormCode, f.Name, err)
	}
	return nil
}

// DeleteFieldsExcept removes field rows of the form not named in keep.
func (s *SQLite) DeleteFieldsExcept(formCode string, keep []string) (int, error) {
	if len(keep) == 0 {
		res, err := s.db.Exec(`DELETE FROM form_fields WHERE form_code = ?`, formCode)
		if err != nil {
			return 0, fmt.Errorf("store: delete fields %s: %w", formCode, err)
		}
		n, _ := res.RowsAffected()
		return int(n), nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keep)), ",")
	args := make([]any, 0, len(keep)+1)
	args = append(args, formCode)
	for _, name := range keep {
		args = append(args, name)
	}

	res, err := s.db.Exec(
		`DELETE FROM form_fields WHERE form_code = ? AND name NOT IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("store: delete fields %s: %w", formCode, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// FieldsByForm returns field rows of the form ordered by position.
func (s *SQLite) FieldsByForm(formCode string) ([]FieldRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, form_code, name, pdf_field_name, type, label, placeholder,
			help_text, required, pattern, min_length, max_length, section,
			position, page, width, conditions, repeat_group, max_repetitions,
			options, shared_key, pii
		FROM form_fields WHERE form_code = ? ORDER BY position`, formCode)
	if err != nil {
		return nil, fmt.Errorf("store: fields %s: %w", formCode, err)
	}
	defer rows.Close()

	var fields []FieldRecord
	for rows.Next() {
		var (
			f                         FieldRecord
			typ                       string
			required, pii             int
			conditionsRaw, optionsRaw string
		)
		if err := rows.Scan(
			&f.ID, &f.FormCode, &f.Name, &f.PDFFieldName, &typ, &f.Label,
			&f.Placeholder, &f.HelpText, &required, &f.Pattern, &f.MinLength,
			&f.MaxLength, &f.Section, &f.Position, &f.Page, &f.Width,
			&conditionsRaw, &f.RepeatGroup, &f.MaxRepetitions, &optionsRaw,
			&f.SharedKey, &pii,
		); err != nil {
			return nil, fmt.Errorf("store: scan field: %w", err)
		}
		f.Type = schema.FieldType(typ)
		f.Required = required != 0
		f.PII = pii != 0
		if err := json.Unmarshal([]byte(conditionsRaw), &f.Conditions); err != nil {
			return nil, fmt.Errorf("store: conditions of %s/%s: %w", formCode, f.Name, err)
		}
		if err := json.Unmarshal([]byte(optionsRaw), &f.Options); err != nil {
			return nil, fmt.Errorf("store: options of %s/%s: %w", formCode, f.Name, err)
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

// TouchSubmission upserts the submission row and stamps its last generation
// time.
func (s *SQLite) TouchSubmission(submissionID, formCode string, at time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO submissions (id, form_code, last_generated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			form_code = excluded.form_code,
			last_generated_at = excluded.last_generated_at`,
		submissionID, formCode, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: touch submission %s: %w", submissionID, err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
