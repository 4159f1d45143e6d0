package models

import "context"

// Repository defines data access for the records of each resource.
//
// The sandbox backend implements it over SQLite; the client never persists records.
type Repository interface {
	// List returns every record of a resource, newest first.
	List(ctx context.Context, resource string) ([]Record, error)

	// Get retrieves a record by its ID.
	Get(ctx context.Context, resource, id string) (Record, error)

	// Create inserts a record, assigning an ID when missing.
	Create(ctx context.Context, resource string, record Record) (Record, error)

	// Update merges a partial record over the stored one.
	Update(ctx context.Context, resource, id string, patch Record) (Record, error)

	// Delete removes a record.
	Delete(ctx context.Context, resource, id string) error
}
