package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/hsx/internal/models"
	"github.com/desertthunder/hsx/internal/shared"
)

// RecordRepository implements [models.Repository] over the records table.
type RecordRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRecordRepository creates a new RecordRepository with the given database connection
func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db, now: time.Now}
}

// List retrieves every record of a resource, newest first
func (r *RecordRepository) List(ctx context.Context, resource string) ([]models.Record, error) {
	query := `
		SELECT id, data, created_at
		FROM records
		WHERE resource = ?
		ORDER BY created_at DESC, rowid DESC
	`

	rows, err := r.db.QueryContext(ctx, query, resource)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []models.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Get retrieves a record by ID
func (r *RecordRepository) Get(ctx context.Context, resource, id string) (models.Record, error) {
	rec, err := r.get(ctx, r.db, resource, id)
	if errors.Is(err, shared.ErrRecordNotFound) {
		return models.Record{}, notFound(resource, id)
	}
	return rec, err
}

// Create inserts a record, generating an ID and creation time when missing
func (r *RecordRepository) Create(ctx context.Context, resource string, record models.Record) (models.Record, error) {
	record = record.Clone()
	if record.ID == "" {
		record.ID = shared.GenerateID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.now().UTC()
	}

	data, err := encodeRecord(record)
	if err != nil {
		return models.Record{}, err
	}

	query := `
		INSERT INTO records (id, resource, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query, record.ID, resource, string(data), record.CreatedAt.UTC(), r.now().UTC()); err != nil {
		return models.Record{}, fmt.Errorf("failed to insert record: %w", err)
	}

	return r.Get(ctx, resource, record.ID)
}

// Update merges a partial record over the stored one
func (r *RecordRepository) Update(ctx context.Context, resource, id string, patch models.Record) (models.Record, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := r.get(ctx, tx, resource, id)
	if errors.Is(err, shared.ErrRecordNotFound) {
		return models.Record{}, notFound(resource, id)
	}
	if err != nil {
		return models.Record{}, err
	}

	merged := current.Merge(patch)
	data, err := encodeRecord(merged)
	if err != nil {
		return models.Record{}, err
	}

	query := `
		UPDATE records
		SET data = ?, updated_at = ?
		WHERE resource = ? AND id = ?
	`
	if _, err := tx.ExecContext(ctx, query, string(data), r.now().UTC(), resource, id); err != nil {
		return models.Record{}, fmt.Errorf("failed to update record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Record{}, fmt.Errorf("failed to commit update: %w", err)
	}

	return merged, nil
}

// Delete removes a record by ID
func (r *RecordRepository) Delete(ctx context.Context, resource, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM records WHERE resource = ? AND id = ?", resource, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return notFound(resource, id)
	}

	return nil
}

// DeleteMany removes the given records in one transaction and reports how many existed.
func (r *RecordRepository) DeleteMany(ctx context.Context, resource string, ids []string) (int, error) {
	return r.each(ctx, ids, func(tx *sql.Tx, id string) (bool, error) {
		result, err := tx.ExecContext(ctx, "DELETE FROM records WHERE resource = ? AND id = ?", resource, id)
		if err != nil {
			return false, fmt.Errorf("failed to delete record %s: %w", id, err)
		}
		n, err := result.RowsAffected()
		return n > 0, err
	})
}

// UpdateMany merges the same patch over each given record in one transaction.
//
// Unknown ids are skipped; the updated records are returned in input order.
func (r *RecordRepository) UpdateMany(ctx context.Context, resource string, ids []string, patch models.Record) ([]models.Record, error) {
	var updated []models.Record
	_, err := r.each(ctx, ids, func(tx *sql.Tx, id string) (bool, error) {
		current, err := r.get(ctx, tx, resource, id)
		if errors.Is(err, shared.ErrRecordNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		merged := current.Merge(patch)
		data, err := encodeRecord(merged)
		if err != nil {
			return false, err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE records SET data = ?, updated_at = ? WHERE resource = ? AND id = ?",
			string(data), r.now().UTC(), resource, id); err != nil {
			return false, fmt.Errorf("failed to update record %s: %w", id, err)
		}
		updated = append(updated, merged)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Count returns the number of records stored for a resource.
func (r *RecordRepository) Count(ctx context.Context, resource string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE resource = ?", resource).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *RecordRepository) get(ctx context.Context, q querier, resource, id string) (models.Record, error) {
	query := `
		SELECT id, data, created_at
		FROM records
		WHERE resource = ? AND id = ?
	`
	return scanRecord(q.QueryRowContext(ctx, query, resource, id))
}

// each applies fn to every id inside one transaction and counts the ids it reports as affected.
func (r *RecordRepository) each(ctx context.Context, ids []string, fn func(*sql.Tx, string) (bool, error)) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	affected := 0
	for _, id := range ids {
		ok, err := fn(tx, id)
		if err != nil {
			return 0, err
		}
		if ok {
			affected++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return affected, nil
}

var _ models.Repository = (*RecordRepository)(nil)
