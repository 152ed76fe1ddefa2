package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/gridfill/internal/record"
)

// Insert adds records in order after any existing rows. The call is atomic:
// if any id already exists, ErrDuplicateRecord is returned and nothing from
// this call is stored.
func (s *Store) Insert(ctx context.Context, records ...record.Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var next int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), 0) FROM records`,
		).Scan(&next); err != nil {
			return fmt.Errorf("insert: read position: %w", err)
		}

		for _, rec := range records {
			fieldsJSON, err := marshalFields(rec.Fields)
			if err != nil {
				return fmt.Errorf("insert record %d: %w", rec.ID, err)
			}
			next++
			_, err = tx.ExecContext(ctx, `
				INSERT INTO records (id, position, fields, version)
				VALUES (?, ?, ?, 0)
			`, int64(rec.ID), next, fieldsJSON)
			if err != nil {
				if isPrimaryKeyViolation(err) {
					return fmt.Errorf("insert record %d: %w", rec.ID, ErrDuplicateRecord)
				}
				return fmt.Errorf("insert record %d: %w", rec.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, rec := range records {
		s.notify(Change{Kind: ChangeInserted, Record: rec.Clone()})
	}
	return nil
}

// Get retrieves a single record by id.
// Returns a NotFoundError if the id is absent.
func (s *Store) Get(ctx context.Context, id record.ID) (record.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT fields, version FROM records WHERE id = ?`, int64(id))
	rec, _, err := scanRecordRow(row, id)
	return rec, err
}

// Snapshot returns every record in insertion order.
// Returns an empty slice (not nil) for an empty store.
func (s *Store) Snapshot(ctx context.Context) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fields FROM records
		ORDER BY position ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []record.Record{}
	for rows.Next() {
		var (
			id         int64
			fieldsJSON string
		)
		if err := rows.Scan(&id, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		fields, err := unmarshalFields(fieldsJSON)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", id, err)
		}
		records = append(records, record.Record{ID: record.ID(id), Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Len returns the number of stored records.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Delete removes a record. Returns a NotFoundError if the id is absent.
func (s *Store) Delete(ctx context.Context, id record.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted record.Record
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT fields, version FROM records WHERE id = ?`, int64(id))
		rec, _, err := scanRecordRow(row, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, int64(id)); err != nil {
			return fmt.Errorf("delete record %d: %w", id, err)
		}
		deleted = rec
		return nil
	})
	if err != nil {
		return err
	}

	s.notify(Change{Kind: ChangeDeleted, Record: deleted})
	return nil
}

// ApplyUpdate merges u into the record it targets and returns the merged
// record. Fields named by u overwrite (last write wins); all other fields
// are left as they were. The read, merge and write happen in one
// transaction under the write lock, so no caller sees a torn record.
//
// If the record does not exist, a NotFoundError is returned and nothing is
// written.
func (s *Store) ApplyUpdate(ctx context.Context, u record.Update) (record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		merged  record.Record
		version int64
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT fields, version FROM records WHERE id = ?`, int64(u.RecordID))
		current, v, err := scanRecordRow(row, u.RecordID)
		if err != nil {
			return err
		}

		merged = record.Merge(current, u)
		fieldsJSON, err := marshalFields(merged.Fields)
		if err != nil {
			return fmt.Errorf("apply update %d: %w", u.RecordID, err)
		}

		version = v + 1
		if _, err := tx.ExecContext(ctx, `
			UPDATE records SET fields = ?, version = ? WHERE id = ?
		`, fieldsJSON, version, int64(u.RecordID)); err != nil {
			return fmt.Errorf("apply update %d: %w", u.RecordID, err)
		}
		return nil
	})
	if err != nil {
		return record.Record{}, err
	}

	s.notify(Change{Kind: ChangeUpdated, Record: merged.Clone(), Update: u, Version: version})
	return merged, nil
}

// Version returns how many updates have been applied to a record.
func (s *Store) Version(ctx context.Context, id record.ID) (int64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT fields, version FROM records WHERE id = ?`, int64(id))
	_, v, err := scanRecordRow(row, id)
	return v, err
}

// scanRecordRow scans a row selecting (fields, version).
func scanRecordRow(row *sql.Row, id record.ID) (record.Record, int64, error) {
	var (
		fieldsJSON string
		version    int64
	)
	err := row.Scan(&fieldsJSON, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return record.Record{}, 0, &NotFoundError{ID: id}
		}
		return record.Record{}, 0, fmt.Errorf("read record %d: %w", id, err)
	}
	fields, err := unmarshalFields(fieldsJSON)
	if err != nil {
		return record.Record{}, 0, fmt.Errorf("record %d: %w", id, err)
	}
	return record.Record{ID: id, Fields: fields}, version, nil
}
