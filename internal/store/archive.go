package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/liuwen/promptreel/internal/model"
)

// Archive persists artifact snapshots to SQLite so a restarted server
// can restore its session. History rows are append-only: SaveAll writes
// only the entries the database does not have yet.
type Archive struct {
	db *sql.DB
}

// NewArchive creates an Archive and initialises the schema.
func NewArchive(db *sql.DB) (*Archive, error) {
	a := &Archive{db: db}
	if err := a.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return a, nil
}

// currentSchemaVersion is bumped whenever the schema changes.
const currentSchemaVersion = 1

func (a *Archive) migrate() error {
	if _, err := a.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := a.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := a.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	migrations := []func() error{
		a.migrateV1, // v0 → v1: initial schema
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := a.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}
	return nil
}

func (a *Archive) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS artifacts (
		id             TEXT PRIMARY KEY,
		product_name   TEXT NOT NULL DEFAULT '',
		current_prompt TEXT NOT NULL,
		audit          TEXT NOT NULL DEFAULT '',
		tradeoff       TEXT NOT NULL DEFAULT '',
		av_plan        TEXT NOT NULL DEFAULT '',
		tags           TEXT NOT NULL DEFAULT '[]',
		position       INTEGER NOT NULL,
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_artifacts_position ON artifacts(position);

	CREATE TABLE IF NOT EXISTS versions (
		artifact_id TEXT NOT NULL REFERENCES artifacts(id),
		seq         INTEGER NOT NULL,
		prompt      TEXT NOT NULL,
		PRIMARY KEY (artifact_id, seq)
	);
	`
	_, err := a.db.Exec(schema)
	return err
}

// SaveAll upserts every artifact and appends any history entries the
// archive has not seen yet.
func (a *Archive) SaveAll(ctx context.Context, arts []*model.Artifact) error {
	if len(arts) == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for pos, art := range arts {
		tags, err := json.Marshal(art.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags for %s: %w", art.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO artifacts (id, product_name, current_prompt, audit, tradeoff, av_plan, tags, position, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				current_prompt = excluded.current_prompt,
				tags = excluded.tags,
				position = excluded.position,
				updated_at = excluded.updated_at`,
			art.ID, art.ProductName, art.CurrentPrompt, art.Audit, art.Tradeoff, art.AVPlan,
			string(tags), pos, art.CreatedAt, art.UpdatedAt,
		); err != nil {
			return fmt.Errorf("upsert artifact %s: %w", art.ID, err)
		}

		var have int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM versions WHERE artifact_id = ?`, art.ID).Scan(&have); err != nil {
			return fmt.Errorf("count versions for %s: %w", art.ID, err)
		}
		for seq := have; seq < len(art.History); seq++ {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO versions (artifact_id, seq, prompt) VALUES (?, ?, ?)`,
				art.ID, seq, art.History[seq],
			); err != nil {
				return fmt.Errorf("append version %d for %s: %w", seq, art.ID, err)
			}
		}
	}

	return tx.Commit()
}

// LoadAll restores all archived artifacts in their original order.
func (a *Archive) LoadAll(ctx context.Context) ([]*model.Artifact, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, product_name, current_prompt, audit, tradeoff, av_plan, tags, created_at, updated_at
		FROM artifacts ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Artifact
	for rows.Next() {
		var art model.Artifact
		var tags string
		if err := rows.Scan(&art.ID, &art.ProductName, &art.CurrentPrompt, &art.Audit,
			&art.Tradeoff, &art.AVPlan, &tags, &art.CreatedAt, &art.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tags), &art.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags for %s: %w", art.ID, err)
		}
		out = append(out, &art)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, art := range out {
		history, err := a.loadHistory(ctx, art.ID)
		if err != nil {
			return nil, err
		}
		// An artifact archived mid-write may lack version rows; reseed
		// from the current prompt to keep the history invariant.
		if len(history) == 0 {
			history = []string{art.CurrentPrompt}
		}
		art.History = history
	}
	return out, nil
}

func (a *Archive) loadHistory(ctx context.Context, artifactID string) ([]string, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT prompt FROM versions WHERE artifact_id = ? ORDER BY seq ASC`, artifactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []string
	for rows.Next() {
		var prompt string
		if err := rows.Scan(&prompt); err != nil {
			return nil, err
		}
		history = append(history, prompt)
	}
	return history, rows.Err()
}
