package db

import (
	"database/sql"
	"errors"
	"time"
)

// GetProgressOverride returns the locally held progress for an entity
func (db *DB) GetProgressOverride(entityID string) (percent int, ok bool, err error) {
	err = db.QueryRow(`SELECT percent FROM progress_overrides WHERE entity_id = ?`, entityID).Scan(&percent)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return percent, true, nil
}

// SetProgressOverride stores a local progress value for an entity
func (db *DB) SetProgressOverride(entityID string, percent int) error {
	_, err := db.Exec(`
		INSERT INTO progress_overrides (entity_id, percent, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET percent = excluded.percent, updated_at = excluded.updated_at
	`, entityID, percent, time.Now())
	return err
}

// DeleteProgressOverride drops the local value once the server has confirmed one
func (db *DB) DeleteProgressOverride(entityID string) error {
	_, err := db.Exec(`DELETE FROM progress_overrides WHERE entity_id = ?`, entityID)
	return err
}

// ProgressOverrides returns every stored override keyed by entity id
func (db *DB) ProgressOverrides() (map[string]int, error) {
	rows, err := db.Query(`SELECT entity_id, percent FROM progress_overrides`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var id string
		var pct int
		if err := rows.Scan(&id, &pct); err != nil {
			return nil, err
		}
		out[id] = pct
	}
	return out, rows.Err()
}
