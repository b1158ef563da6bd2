package dedupstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SQLStore is an alternative Store backed by a relational database,
// demonstrating that the dedup store's API and invariants (§4.F) survive
// a swap away from the JSON file (§9). Batched multi-row inserts follow
// the teacher's internal/datanorm/event_writer.go idiom, adapted to an
// upsert so repeated Save calls over an unchanged mapping leave the hash and
// identifier rows unchanged; each Save still updates the metadata row
// (total_runs, last_updated).
//
// Schema (any dialect supporting ON CONFLICT / upsert semantics):
//
//	dedup_hashes(data_hash TEXT PRIMARY KEY, dedup_key TEXT NOT NULL)
//	dedup_identifiers(dedup_key TEXT NOT NULL, identifier TEXT NOT NULL,
//	                   PRIMARY KEY (dedup_key, identifier))
//	dedup_store_metadata(id INTEGER PRIMARY KEY, created_at TEXT,
//	                      last_updated TEXT, total_runs INTEGER, version TEXT)
type SQLStore struct {
	db        *sql.DB
	batchSize int
	now       func() time.Time
}

// NewSQLStore returns a Store backed by db. batchSize caps how many value
// rows a single INSERT statement carries; 0 uses a sensible default.
func NewSQLStore(db *sql.DB, batchSize int) *SQLStore {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &SQLStore{db: db, batchSize: batchSize, now: time.Now}
}

func (s *SQLStore) Load(ctx context.Context) (*Mapping, error) {
	m := NewMapping(s.now().UTC().Format(time.RFC3339))

	hashRows, err := s.db.QueryContext(ctx, `SELECT data_hash, dedup_key FROM dedup_hashes`)
	if err != nil {
		return nil, fmt.Errorf("dedupstore: query dedup_hashes: %w", err)
	}
	defer hashRows.Close()
	for hashRows.Next() {
		var hash, key string
		if err := hashRows.Scan(&hash, &key); err != nil {
			return nil, fmt.Errorf("dedupstore: scan dedup_hashes: %w", err)
		}
		m.DataHashToKey[hash] = key
		m.KeyToDataHashes[key] = append(m.KeyToDataHashes[key], hash)
	}
	if err := hashRows.Err(); err != nil {
		return nil, fmt.Errorf("dedupstore: iterate dedup_hashes: %w", err)
	}

	idRows, err := s.db.QueryContext(ctx, `SELECT dedup_key, identifier FROM dedup_identifiers`)
	if err != nil {
		return nil, fmt.Errorf("dedupstore: query dedup_identifiers: %w", err)
	}
	defer idRows.Close()
	for idRows.Next() {
		var key, id string
		if err := idRows.Scan(&key, &id); err != nil {
			return nil, fmt.Errorf("dedupstore: scan dedup_identifiers: %w", err)
		}
		m.KeyToIdentifiers[key] = append(m.KeyToIdentifiers[key], id)
	}
	if err := idRows.Err(); err != nil {
		return nil, fmt.Errorf("dedupstore: iterate dedup_identifiers: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `SELECT created_at, last_updated, total_runs, version FROM dedup_store_metadata WHERE id = 1`)
	if err := row.Scan(&m.Metadata.CreatedAt, &m.Metadata.LastUpdated, &m.Metadata.TotalRuns, &m.Metadata.Version); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("dedupstore: scan metadata: %w", err)
	}

	return m, nil
}

func (s *SQLStore) Save(ctx context.Context, m *Mapping) error {
	m.ensureIndices()
	m.Metadata.LastUpdated = s.now().UTC().Format(time.RFC3339)
	m.Metadata.TotalRuns++
	m.Metadata.Version = SchemaVersion

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dedupstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	hashPairs := make([][2]string, 0, len(m.DataHashToKey))
	for hash, key := range m.DataHashToKey {
		hashPairs = append(hashPairs, [2]string{hash, key})
	}
	if err := s.upsertBatched(ctx, tx,
		`INSERT INTO dedup_hashes (data_hash, dedup_key) VALUES %s
		 ON CONFLICT (data_hash) DO UPDATE SET dedup_key = excluded.dedup_key`,
		hashPairs); err != nil {
		return fmt.Errorf("dedupstore: upsert dedup_hashes: %w", err)
	}

	idPairs := make([][2]string, 0)
	for key, ids := range m.KeyToIdentifiers {
		for _, id := range ids {
			idPairs = append(idPairs, [2]string{key, id})
		}
	}
	if err := s.upsertBatched(ctx, tx,
		`INSERT INTO dedup_identifiers (dedup_key, identifier) VALUES %s
		 ON CONFLICT (dedup_key, identifier) DO NOTHING`,
		idPairs); err != nil {
		return fmt.Errorf("dedupstore: upsert dedup_identifiers: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO dedup_store_metadata (id, created_at, last_updated, total_runs, version)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET last_updated = excluded.last_updated,
			total_runs = excluded.total_runs, version = excluded.version`,
		m.Metadata.CreatedAt, m.Metadata.LastUpdated, m.Metadata.TotalRuns, m.Metadata.Version,
	); err != nil {
		return fmt.Errorf("dedupstore: upsert metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("dedupstore: commit: %w", err)
	}
	return nil
}

// upsertBatched writes rows in chunks of s.batchSize as single multi-row
// INSERT statements, mirroring event_writer.go's insertBatch shape.
func (s *SQLStore) upsertBatched(ctx context.Context, tx *sql.Tx, stmtTemplate string, rows [][2]string) error {
	for start := 0; start < len(rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		placeholders := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*2)
		for i, pair := range chunk {
			placeholders[i] = fmt.Sprintf("($%d, $%d)", i*2+1, i*2+2)
			args = append(args, pair[0], pair[1])
		}
		stmt := fmt.Sprintf(stmtTemplate, strings.Join(placeholders, ", "))
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return err
		}
	}
	return nil
}
