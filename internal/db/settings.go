package db

import (
	"database/sql"
	"errors"
	"time"
)

// Well-known setting keys
const (
	SettingToken = "auth.token"
)

// GetSetting returns a setting value; ok is false when the key is unset
func (db *DB) GetSetting(key string) (value string, ok bool, err error) {
	err = db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSetting stores a setting value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now())
	return err
}

// DeleteSetting removes a setting
func (db *DB) DeleteSetting(key string) error {
	_, err := db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	return err
}

// ClearSession removes the token and every progress override in one
// transaction
func (db *DB) ClearSession() error {
	return db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM settings WHERE key = ?`, SettingToken); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM progress_overrides`)
		return err
	})
}
