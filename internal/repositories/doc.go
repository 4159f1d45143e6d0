// Package repositories implements SQLite persistence for the sandbox backend.
//
// Every resource shares a single records table: a row holds the owning resource name, the
// record's JSON document and its creation and update times. The document is the wire shape
// the admin API serves, so a stored record round-trips through [models.DecodeRecord] unchanged.
//
// Key Implementations:
//   - [RecordRepository] : [models.Repository] over the records table, plus bulk helpers
//     used by the sandbox's bulk endpoint
//
// Lookups of unknown ids return errors wrapping [shared.ErrRecordNotFound].
package repositories
