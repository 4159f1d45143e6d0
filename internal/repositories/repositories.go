package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/hsx/internal/models"
	"github.com/desertthunder/hsx/internal/shared"
)

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

// encodeRecord serializes a record's document with its creation time applied.
func encodeRecord(r models.Record) ([]byte, error) {
	r = r.Clone()
	if !r.CreatedAt.IsZero() {
		r.Fields["createdAt"] = r.CreatedAt.UTC().Format(time.RFC3339Nano)
	}

	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record %s: %w", r.ID, err)
	}
	return data, nil
}

// scanRecord scans an (id, data, created_at) row into a [models.Record].
func scanRecord(s scanner) (models.Record, error) {
	var (
		id        string
		data      []byte
		createdAt time.Time
	)

	err := s.Scan(&id, &data, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, shared.ErrRecordNotFound
	}
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to scan record: %w", err)
	}

	var r models.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return models.Record{}, fmt.Errorf("record %s: %w", id, err)
	}
	r.ID = id
	if r.CreatedAt.IsZero() {
		r.CreatedAt = createdAt
	}
	return r, nil
}

func notFound(resource, id string) error {
	return fmt.Errorf("%w: %s/%s", shared.ErrRecordNotFound, resource, id)
}
