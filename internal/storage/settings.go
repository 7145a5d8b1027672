package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Setting reads a value from the app_state table.
func (db *DB) Setting(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := db.conn.QueryRowContext(ctx,
		db.rebind(`SELECT setting_value FROM app_state WHERE setting = ?`), key,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting %s: %w", key, err)
	}
	return v, true, nil
}

// SetSetting writes a value to the app_state table.
func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM app_state WHERE setting = ?`), key); err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx,
		db.rebind(`INSERT INTO app_state (setting, setting_value) VALUES (?, ?)`), key, value,
	); err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return tx.Commit()
}

// Setting reads a value from the app_state collection.
func (s *MongoBoardStore) Setting(ctx context.Context, key string) (string, bool, error) {
	var st struct {
		Value string `bson:"value"`
	}
	err := s.state.FindOne(ctx, bson.M{"_id": key}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting %s: %w", key, err)
	}
	return st.Value, true, nil
}

// SetSetting writes a value to the app_state collection.
func (s *MongoBoardStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.state.ReplaceOne(ctx,
		bson.M{"_id": key},
		bson.M{"_id": key, "value": value},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}
