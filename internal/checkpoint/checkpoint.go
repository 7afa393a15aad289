// Package checkpoint provides best-effort Postgres persistence of a Group Actor's state. It exists purely for
// process-restart recovery: a checkpoint is written after mutations and read back once, on first access to a group
// id the in-memory registry has not seen since the process started. It carries no durability guarantee beyond
// "probably survived the last restart" — the Group Actor's in-memory state is authoritative while the process is
// alive, and a checkpoint write failure never blocks or rolls back the actor mutation that triggered it.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/unfairwheel/wheel-server/internal/postgres"
	"github.com/unfairwheel/wheel-server/internal/wheel"
)

// ErrNotFound is returned by Load when no checkpoint exists for the requested group id.
var ErrNotFound = errors.New("checkpoint: no snapshot for this group")

// State is the JSONB payload stored per group: everything a Group Actor needs to rehydrate itself after a restart.
type State struct {
	Group         wheel.Group             `json:"group"`
	Participants  []wheel.Participant     `json:"participants"`
	Spin          wheel.SpinState         `json:"spin"`
	History       []wheel.SpinHistoryItem `json:"history"`
	PendingResult *wheel.PendingResult    `json:"pendingResult"`
}

// Store persists and recovers Group Actor snapshots in Postgres.
type Store struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

// NewStore creates a Postgres-backed checkpoint store.
func NewStore(db *pgxpool.Pool, logger zerolog.Logger) *Store {
	return &Store{db: db, log: logger.With().Str("component", "checkpoint_store").Logger()}
}

// Save upserts the snapshot for groupID at the given version and returns any failure to its caller; SaveAsync is
// the fire-and-forget wrapper that logs the failure instead, per the best-effort persistence contract. The write
// locks the group's existing row (if any) inside a transaction so a version check and the write that follows it
// never interleave with a concurrent checkpoint of the same group, and a stale write can never overtake a newer one.
func (s *Store) Save(ctx context.Context, groupID string, version int, state State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal checkpoint for %s: %w", groupID, err)
	}

	return postgres.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var existing int
		err := tx.QueryRow(ctx,
			"SELECT version FROM group_checkpoints WHERE group_id = $1 FOR UPDATE", groupID,
		).Scan(&existing)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			_, err := tx.Exec(ctx,
				`INSERT INTO group_checkpoints (group_id, version, state, updated_at) VALUES ($1, $2, $3, now())`,
				groupID, version, raw,
			)
			if err != nil {
				if postgres.IsUniqueViolation(err) {
					// lost a race with a concurrent first write for this group; fall back to the locked update path
					return s.updateIfNewer(ctx, tx, groupID, version, raw)
				}
				return fmt.Errorf("insert checkpoint for %s: %w", groupID, err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("lock checkpoint for %s: %w", groupID, err)
		case version <= existing:
			return nil
		default:
			return s.updateIfNewer(ctx, tx, groupID, version, raw)
		}
	})
}

func (s *Store) updateIfNewer(ctx context.Context, tx pgx.Tx, groupID string, version int, raw []byte) error {
	_, err := tx.Exec(ctx,
		`UPDATE group_checkpoints SET version = $2, state = $3, updated_at = now() WHERE group_id = $1 AND version < $2`,
		groupID, version, raw,
	)
	if err != nil {
		return fmt.Errorf("update checkpoint for %s: %w", groupID, err)
	}
	return nil
}

// SaveAsync runs Save in a background goroutine and logs any failure, for call sites that must not block the Group
// Actor's single-writer loop on a database round trip.
func (s *Store) SaveAsync(ctx context.Context, groupID string, version int, state State) {
	go func() {
		if err := s.Save(ctx, groupID, version, state); err != nil {
			s.log.Warn().Err(err).Str("group_id", groupID).Msg("checkpoint save failed")
		}
	}()
}

// Load returns the most recent snapshot for groupID, or ErrNotFound if none exists.
func (s *Store) Load(ctx context.Context, groupID string) (State, int, error) {
	var raw []byte
	var version int
	err := s.db.QueryRow(ctx,
		"SELECT version, state FROM group_checkpoints WHERE group_id = $1", groupID,
	).Scan(&version, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return State{}, 0, ErrNotFound
	}
	if err != nil {
		return State{}, 0, fmt.Errorf("load checkpoint for %s: %w", groupID, err)
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, 0, fmt.Errorf("unmarshal checkpoint for %s: %w", groupID, err)
	}
	return state, version, nil
}

// Prune deletes checkpoints whose updated_at is older than olderThan, for a caller-driven periodic sweep. It returns
// the number of rows removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, "DELETE FROM group_checkpoints WHERE updated_at < $1", olderThan)
	if err != nil {
		return 0, fmt.Errorf("prune checkpoints: %w", err)
	}
	return tag.RowsAffected(), nil
}
