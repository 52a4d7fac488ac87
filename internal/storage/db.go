package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"gradlist/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS departments (
  school TEXT NOT NULL,
  dep_name TEXT NOT NULL,
  degrees TEXT,
  namelist TEXT,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (school, dep_name)
);
CREATE INDEX IF NOT EXISTS idx_departments_school ON departments(school);

CREATE TABLE IF NOT EXISTS user_choices (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  userId INTEGER NOT NULL,
  rank INTEGER NOT NULL,
  school TEXT NOT NULL,
  department TEXT NOT NULL,
  degree TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_user_choices_user ON user_choices(userId);
CREATE INDEX IF NOT EXISTS idx_user_choices_dept ON user_choices(school, department, degree);

CREATE TABLE IF NOT EXISTS email_verifications (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  email TEXT NOT NULL UNIQUE,
  code TEXT NOT NULL,
  expiresAt TEXT NOT NULL,
  used INTEGER NOT NULL DEFAULT 0,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertDepartment(school, depName string, degrees *string) error {
	_, err := d.conn.Exec(`
INSERT INTO departments (school, dep_name, degrees)
VALUES (?, ?, ?)
ON CONFLICT(school, dep_name) DO UPDATE SET
  degrees=excluded.degrees,
  updatedAt=CURRENT_TIMESTAMP
`, school, depName, degrees)
	return err
}

func (d *DB) GetDepartment(school, depName string) (*internal.DepartmentRow, error) {
	var row internal.DepartmentRow
	err := d.conn.QueryRow(`
SELECT school, dep_name, degrees, namelist
FROM departments WHERE school = ? AND dep_name = ?
`, school, depName).Scan(&row.School, &row.DepName, &row.Degrees, &row.Namelist)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListSchools() ([]string, error) {
	return d.listStrings(`SELECT DISTINCT school FROM departments ORDER BY school`)
}

func (d *DB) ListDepartments(school string) ([]string, error) {
	rows, err := d.conn.Query(`SELECT DISTINCT dep_name FROM departments WHERE school = ? ORDER BY dep_name`, school)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

// ListDegrees returns the degree tracks announced for one department,
// parsed from its comma separated degrees column.
func (d *DB) ListDegrees(school, depName string) ([]string, error) {
	row, err := d.GetDepartment(school, depName)
	if err != nil {
		return nil, err
	}
	if row == nil || row.Degrees == nil {
		return []string{}, nil
	}
	return splitCSV(*row.Degrees), nil
}

// ListAllDegrees returns every degree track named anywhere in the
// catalog, deduplicated and sorted.
func (d *DB) ListAllDegrees() ([]string, error) {
	values, err := d.listStrings(`SELECT degrees FROM departments WHERE degrees IS NOT NULL`)
	if err != nil {
		return nil, err
	}

	set := map[string]struct{}{}
	for _, v := range values {
		for _, degree := range splitCSV(v) {
			set[degree] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for degree := range set {
		out = append(out, degree)
	}
	sort.Strings(out)
	return out, nil
}

func (d *DB) GetNamelist(school, depName string) (*string, error) {
	row, err := d.GetDepartment(school, depName)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return row.Namelist, nil
}

// UpdateNamelist runs a read-modify-write of one department's namelist
// column inside a single transaction, so simultaneous uploads to the
// same department serialize instead of interleaving. The row is created
// on first upload.
func (d *DB) UpdateNamelist(school, depName string, update func(current *string) (string, error)) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var current *string
	exists := true
	err = tx.QueryRow(`SELECT namelist FROM departments WHERE school = ? AND dep_name = ?`, school, depName).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		return err
	}

	next, err := update(current)
	if err != nil {
		return err
	}

	if exists {
		_, err = tx.Exec(`UPDATE departments SET namelist = ?, updatedAt = CURRENT_TIMESTAMP WHERE school = ? AND dep_name = ?`, next, school, depName)
	} else {
		_, err = tx.Exec(`INSERT INTO departments (school, dep_name, namelist) VALUES (?, ?, ?)`, school, depName, next)
	}
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ReplaceUserChoices atomically swaps a user's full preference list.
func (d *DB) ReplaceUserChoices(userID int, choices []internal.UserChoice) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM user_choices WHERE userId = ?`, userID); err != nil {
		return err
	}

	for i, choice := range choices {
		if _, err := tx.Exec(`
INSERT INTO user_choices (userId, rank, school, department, degree)
VALUES (?, ?, ?, ?, ?)
`, userID, i+1, choice.School, choice.Department, choice.Degree); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListUserChoices(userID int) ([]internal.UserChoice, error) {
	rows, err := d.conn.Query(`
SELECT userId, rank, school, department, degree
FROM user_choices WHERE userId = ? ORDER BY rank ASC
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.UserChoice
	for rows.Next() {
		var c internal.UserChoice
		if err := rows.Scan(&c.UserID, &c.Rank, &c.School, &c.Department, &c.Degree); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ChoiceStats aggregates preference counts for one department/degree.
// NamelistCount is filled by the caller, which owns namelist decoding.
func (d *DB) ChoiceStats(userID int, school, department, degree string) (internal.DepartmentStats, error) {
	stats := internal.DepartmentStats{}

	var rank int
	err := d.conn.QueryRow(`
SELECT rank FROM user_choices
WHERE userId = ? AND school = ? AND department = ? AND degree = ?
LIMIT 1
`, userID, school, department, degree).Scan(&rank)
	if err == nil {
		stats.UserRank = &rank
	} else if !errors.Is(err, sql.ErrNoRows) {
		return stats, err
	}

	counts := []struct {
		dst   *int
		where string
	}{
		{&stats.TotalChoices, ``},
		{&stats.FirstChoice, ` AND rank = 1`},
		{&stats.FifthAndAfter, ` AND rank >= 5`},
	}
	for _, c := range counts {
		query := `SELECT COUNT(*) FROM user_choices WHERE school = ? AND department = ? AND degree = ?` + c.where
		if err := d.conn.QueryRow(query, school, department, degree).Scan(c.dst); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

func (d *DB) GetVerification(email string) (*internal.EmailVerification, error) {
	var row internal.EmailVerification
	var used int
	err := d.conn.QueryRow(`
SELECT id, email, code, expiresAt, used
FROM email_verifications WHERE email = ?
`, email).Scan(&row.ID, &row.Email, &row.Code, &row.ExpiresAt, &used)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	row.Used = used != 0
	return &row, nil
}

func (d *DB) UpsertVerification(email, code, expiresAt string) error {
	_, err := d.conn.Exec(`
INSERT INTO email_verifications (email, code, expiresAt, used)
VALUES (?, ?, ?, 0)
ON CONFLICT(email) DO UPDATE SET
  code=excluded.code,
  expiresAt=excluded.expiresAt,
  createdAt=CURRENT_TIMESTAMP
`, email, code, expiresAt)
	return err
}

func (d *DB) MarkVerificationUsed(id int) error {
	result, err := d.conn.Exec(`UPDATE email_verifications SET used = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("verification not found: id=%d", id)
	}
	return nil
}

func (d *DB) listStrings(query string) ([]string, error) {
	rows, err := d.conn.Query(query)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
