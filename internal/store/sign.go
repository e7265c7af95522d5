package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/catalog"
)

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an id or name is already taken.
	ErrConflict = errors.New("already exists")
)

// Sign is a catalog sign with bookkeeping timestamps.
type Sign struct {
	catalog.Sign
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SignRepository provides CRUD operations for signs.
type SignRepository struct {
	db *sql.DB
}

// Signs returns the sign repository for this store.
func (s *Store) Signs() *SignRepository {
	return &SignRepository{db: s.db}
}

// Create inserts a new sign.
func (r *SignRepository) Create(sign *Sign) error {
	if strings.TrimSpace(sign.Name) == "" {
		return fmt.Errorf("sign %d has no name", sign.ID)
	}
	now := time.Now()
	sign.CreatedAt = now
	sign.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO signs (id, name, instruction, tip, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sign.ID, sign.Name, sign.Instruction, sign.Tip, sign.CreatedAt, sign.UpdatedAt,
	)
	return mapConstraint(err)
}

// Get retrieves a sign by id.
func (r *SignRepository) Get(id int) (*Sign, error) {
	sign := &Sign{}
	err := r.db.QueryRow(
		`SELECT id, name, instruction, tip, created_at, updated_at
		 FROM signs WHERE id = ?`,
		id,
	).Scan(&sign.ID, &sign.Name, &sign.Instruction, &sign.Tip, &sign.CreatedAt, &sign.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sign, nil
}

// List retrieves all signs ordered by id.
func (r *SignRepository) List() ([]*Sign, error) {
	rows, err := r.db.Query(
		`SELECT id, name, instruction, tip, created_at, updated_at
		 FROM signs ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signs []*Sign
	for rows.Next() {
		sign := &Sign{}
		if err := rows.Scan(&sign.ID, &sign.Name, &sign.Instruction, &sign.Tip, &sign.CreatedAt, &sign.UpdatedAt); err != nil {
			return nil, err
		}
		signs = append(signs, sign)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return signs, nil
}

// Update overwrites an existing sign's text fields.
func (r *SignRepository) Update(sign *Sign) error {
	if strings.TrimSpace(sign.Name) == "" {
		return fmt.Errorf("sign %d has no name", sign.ID)
	}
	sign.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE signs SET name = ?, instruction = ?, tip = ?, updated_at = ?
		 WHERE id = ?`,
		sign.Name, sign.Instruction, sign.Tip, sign.UpdatedAt, sign.ID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(result)
}

// Delete removes a sign and its completion history.
func (r *SignRepository) Delete(id int) error {
	result, err := r.db.Exec(`DELETE FROM signs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// Count returns the number of stored signs.
func (r *SignRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM signs`).Scan(&n)
	return n, err
}

// Seed inserts signs when the table is empty and reports whether it did.
func (r *SignRepository) Seed(signs []catalog.Sign) (bool, error) {
	n, err := r.Count()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO signs (id, name, instruction, tip, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return false, err
	}
	defer stmt.Close()

	now := time.Now()
	for _, s := range signs {
		if _, err := stmt.Exec(s.ID, s.Name, s.Instruction, s.Tip, now, now); err != nil {
			return false, mapConstraint(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// Catalog builds an immutable catalog from the stored signs.
func (r *SignRepository) Catalog() (*catalog.Catalog, error) {
	stored, err := r.List()
	if err != nil {
		return nil, err
	}
	signs := make([]catalog.Sign, len(stored))
	for i, s := range stored {
		signs[i] = s.Sign
	}
	return catalog.New(signs)
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func mapConstraint(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
