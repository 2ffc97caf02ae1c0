package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zarlcorp/zroster/internal/student"
	_ "modernc.org/sqlite"
)

// SQLiteFile is the database file name inside the data directory.
const SQLiteFile = "students.db"

const sqliteSchema = `CREATE TABLE IF NOT EXISTS students (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	name    TEXT NOT NULL,
	address TEXT NOT NULL,
	phone   TEXT NOT NULL
)`

// SQLite stores students in a single SQLite table.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("open sqlite: create dir: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite: ping: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite: migrate: %w", err)
	}

	return &SQLite{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) Get(ctx context.Context, id int64) (student.Student, error) {
	var st student.Student
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, address, phone FROM students WHERE id = ?`, id,
	).Scan(&st.ID, &st.Name, &st.Address, &st.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return student.Student{}, ErrNotFound
	}
	if err != nil {
		return student.Student{}, fmt.Errorf("get student %d: %w", id, err)
	}
	return st, nil
}

func (s *SQLite) List(ctx context.Context) ([]student.Student, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, address, phone FROM students ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var out []student.Student
	for rows.Next() {
		var st student.Student
		if err := rows.Scan(&st.ID, &st.Name, &st.Address, &st.Phone); err != nil {
			return nil, fmt.Errorf("list students: scan: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return out, nil
}

func (s *SQLite) Insert(ctx context.Context, st student.Student) (student.Student, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO students (name, address, phone) VALUES (?, ?, ?)`,
		st.Name, st.Address, st.Phone)
	if err != nil {
		return student.Student{}, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return student.Student{}, fmt.Errorf("last insert id: %w", err)
	}
	st.ID = id
	return st, nil
}

func (s *SQLite) Update(ctx context.Context, st student.Student) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE students SET name = ?, address = ?, phone = ? WHERE id = ?`,
		st.Name, st.Address, st.Phone, st.ID)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, st student.Student) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, st.ID)
	return err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
