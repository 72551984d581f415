package database

import (
	"database/sql"
	"errors"
	"fmt"
)

// GetProperty returns the named property value stored for a logical path.
func (d *Database) GetProperty(path, name string) (string, error) {
	var value string
	err := d.db.QueryRow(
		"SELECT value FROM properties WHERE path = ? AND name = ?",
		path, name,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to query property %s of %s: %w", name, path, err)
	}
	return value, nil
}

// SetProperty stores or replaces the named property value for a logical path.
func (d *Database) SetProperty(path, name, value string) error {
	_, err := d.db.Exec(`
		INSERT INTO properties (path, name, value, updated_at)
		VALUES (?, ?, ?, strftime('%s', 'now'))
		ON CONFLICT(path, name) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		path, name, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set property %s of %s: %w", name, path, err)
	}
	return nil
}

// DeleteProperties removes every property stored for a logical path.
func (d *Database) DeleteProperties(path string) error {
	_, err := d.db.Exec("DELETE FROM properties WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("failed to delete properties of %s: %w", path, err)
	}
	return nil
}
