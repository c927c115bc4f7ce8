package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
)

// Canonical worksheet columns.  The accessor tolerates tables missing any of
// these, but everything the service writes carries all six.
const (
	ColResearcher = "Researcher"
	ColEquipment  = "Equipment"
	ColDate       = "Date"
	ColStartTime  = "Start_Time"
	ColEndTime    = "End_Time"
	ColCreatedAt  = "Created_At"
)

// SheetColumns is the canonical column order used on every overwrite.
var SheetColumns = []string{ColResearcher, ColEquipment, ColDate, ColStartTime, ColEndTime, ColCreatedAt}

// Table is a raw worksheet snapshot: an ordered column list and string rows.
// Cells never carry richer types; whatever the backing service stored is
// surfaced as text, including the empty string for blank cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Index returns the position of a column by name, or -1 when absent.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumns reports whether every named column is present.
func (t *Table) HasColumns(names ...string) bool {
	for _, n := range names {
		if t.Index(n) < 0 {
			return false
		}
	}
	return true
}

// Cell returns the value at row i, column col, or "" when the row is short
// or the column missing.  Callers can therefore compare cells without nil
// checks.
func (t *Table) Cell(i, col int) string {
	if col < 0 || i >= len(t.Rows) || col >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][col]
}

// SheetStore is the backing store collaborator.  It exposes exactly the two
// operations the external tabular service supports: read a whole collection
// and overwrite a whole collection.  There is no row-level access and no
// atomicity across a Read/Overwrite pair; callers own that race (see the
// booking service).
type SheetStore interface {
	Read(ctx context.Context, worksheet string) (*Table, error)
	Overwrite(ctx context.Context, worksheet string, t *Table) error
}

var columnName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// MySQLSheetStore keeps each worksheet as a MySQL table of text columns.
// Reads go through rows.Columns() so a worksheet missing columns surfaces
// exactly as a spreadsheet would.  Worksheet names are checked against an
// allow-list before being interpolated as identifiers.
type MySQLSheetStore struct {
	db      *sql.DB
	allowed map[string]bool
}

// NewMySQLSheetStore returns a store limited to the given worksheets.
func NewMySQLSheetStore(db *sql.DB, worksheets []string) *MySQLSheetStore {
	allowed := make(map[string]bool, len(worksheets))
	for _, w := range worksheets {
		allowed[w] = true
	}
	return &MySQLSheetStore{db: db, allowed: allowed}
}

func (s *MySQLSheetStore) table(worksheet string) (string, error) {
	if !s.allowed[worksheet] {
		return "", fmt.Errorf("unknown worksheet %q", worksheet)
	}
	return "`" + worksheet + "`", nil
}

// Read fetches every row of the worksheet.  Column order follows the table
// definition; NULL cells are normalized to the empty string.
func (s *MySQLSheetStore) Read(ctx context.Context, worksheet string) (*Table, error) {
	name, err := s.table(worksheet)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	t := &Table{Columns: cols}
	for rows.Next() {
		cells := make([]sql.NullString, len(cols))
		dest := make([]interface{}, len(cols))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make([]string, len(cols))
		for i, c := range cells {
			if c.Valid {
				row[i] = c.String
			}
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Overwrite replaces the whole worksheet with t.  Delete and insert run in
// one database transaction so a failed overwrite never leaves a half-written
// table; this protects against torn writes only, not against two callers
// racing between their reads and overwrites.
func (s *MySQLSheetStore) Overwrite(ctx context.Context, worksheet string, t *Table) error {
	name, err := s.table(worksheet)
	if err != nil {
		return err
	}
	for _, c := range t.Columns {
		if !columnName.MatchString(c) {
			return fmt.Errorf("invalid column name %q", c)
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+name); err != nil {
		return err
	}
	if len(t.Rows) > 0 {
		query := "INSERT INTO " + name + " ("
		for i, c := range t.Columns {
			if i > 0 {
				query += ", "
			}
			query += "`" + c + "`"
		}
		query += ") VALUES "
		args := make([]interface{}, 0, len(t.Rows)*len(t.Columns))
		for i, row := range t.Rows {
			if i > 0 {
				query += ","
			}
			query += "("
			for j := range t.Columns {
				if j > 0 {
					query += ", "
				}
				query += "?"
				if j < len(row) {
					args = append(args, row[j])
				} else {
					args = append(args, "")
				}
			}
			query += ")"
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
