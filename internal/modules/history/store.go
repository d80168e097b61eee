// README: Recent search store backed by PostgreSQL.
package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wayfinder/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS recent_searches (
    session_id  TEXT             NOT NULL,
    location_id TEXT             NOT NULL,
    name        TEXT             NOT NULL,
    address     TEXT             NOT NULL,
    lng         DOUBLE PRECISION NOT NULL,
    lat         DOUBLE PRECISION NOT NULL,
    searched_at TIMESTAMPTZ      NOT NULL
);
CREATE INDEX IF NOT EXISTS recent_searches_session_idx
    ON recent_searches (session_id, searched_at DESC);`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

// Append stores e as the newest entry for its session, replacing an earlier
// entry for the same place, and trims the session to keep entries.
func (s *Store) Append(ctx context.Context, e Entry, keep int) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `
        DELETE FROM recent_searches
        WHERE session_id = $1 AND name = $2 AND lng = $3 AND lat = $4`,
		string(e.SessionID), e.Name, e.Coordinates.Lng, e.Coordinates.Lat,
	); err != nil {
		return fmt.Errorf("dedupe recent search: %w", err)
	}

	if _, err := tx.Exec(ctx, `
        INSERT INTO recent_searches (session_id, location_id, name, address, lng, lat, searched_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(e.SessionID), string(e.LocationID), e.Name, e.Address,
		e.Coordinates.Lng, e.Coordinates.Lat, e.SearchedAt,
	); err != nil {
		return fmt.Errorf("insert recent search: %w", err)
	}

	if _, err := tx.Exec(ctx, `
        DELETE FROM recent_searches
        WHERE session_id = $1 AND searched_at < (
            SELECT searched_at FROM recent_searches
            WHERE session_id = $1
            ORDER BY searched_at DESC
            OFFSET $2 - 1 LIMIT 1
        )`,
		string(e.SessionID), keep,
	); err != nil {
		return fmt.Errorf("trim recent searches: %w", err)
	}

	return tx.Commit(ctx)
}

// Recent returns up to limit entries for a session, newest first.
func (s *Store) Recent(ctx context.Context, sessionID types.ID, limit int) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `
        SELECT session_id, location_id, name, address, lng, lat, searched_at
        FROM recent_searches
        WHERE session_id = $1
        ORDER BY searched_at DESC
        LIMIT $2`, string(sessionID), limit,
	)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var (
			e                     Entry
			sessionID, locationID string
		)
		err := row.Scan(&sessionID, &locationID, &e.Name, &e.Address,
			&e.Coordinates.Lng, &e.Coordinates.Lat, &e.SearchedAt)
		e.SessionID = types.ID(sessionID)
		e.LocationID = types.ID(locationID)
		return e, err
	})
}

func (s *Store) DeleteSession(ctx context.Context, sessionID types.ID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM recent_searches WHERE session_id = $1`, string(sessionID))
	return err
}
