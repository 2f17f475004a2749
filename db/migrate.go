package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate applies the schema idempotently at startup. Statements run in order
// because later tables reference earlier ones.
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            SERIAL PRIMARY KEY,
			first_name    TEXT NOT NULL,
			last_name     TEXT NOT NULL DEFAULT '',
			nickname      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'player',
			is_active     BOOLEAN NOT NULL DEFAULT TRUE,
			last_login_at TIMESTAMPTZ,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS refresh_tokens (
			id         SERIAL PRIMARY KEY,
			user_id    INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token_hash TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			revoked_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS tournaments (
			id                    SERIAL PRIMARY KEY,
			name                  TEXT NOT NULL,
			description           TEXT,
			status                TEXT NOT NULL DEFAULT 'planning',
			format                TEXT NOT NULL DEFAULT 'group',
			match_format          TEXT NOT NULL DEFAULT '501',
			start_date            TIMESTAMPTZ NOT NULL,
			end_date              TIMESTAMPTZ,
			registration_deadline TIMESTAMPTZ,
			max_players           INT NOT NULL DEFAULT 100,
			admin_id              INT NOT NULL REFERENCES users(id),
			logo_key              TEXT,
			created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS tournament_groups (
			id            SERIAL PRIMARY KEY,
			tournament_id INT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
			name          TEXT NOT NULL,
			group_number  INT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (tournament_id, group_number)
		)`,
		`CREATE TABLE IF NOT EXISTS tournament_participants (
			id            SERIAL PRIMARY KEY,
			tournament_id INT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
			user_id       INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			group_id      INT REFERENCES tournament_groups(id) ON DELETE SET NULL,
			status        TEXT NOT NULL DEFAULT 'registered',
			registered_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (tournament_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id              SERIAL PRIMARY KEY,
			tournament_id   INT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
			group_id        INT REFERENCES tournament_groups(id) ON DELETE SET NULL,
			match_format    TEXT NOT NULL DEFAULT '501',
			status          TEXT NOT NULL DEFAULT 'scheduled',
			scheduled_start TIMESTAMPTZ,
			actual_start    TIMESTAMPTZ,
			actual_end      TIMESTAMPTZ,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS match_participants (
			id              SERIAL PRIMARY KEY,
			match_id        INT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			user_id         INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			finishing_score INT,
			position        INT,
			is_confirmed    BOOLEAN NOT NULL DEFAULT FALSE,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (match_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS dart_throws (
			id              SERIAL PRIMARY KEY,
			match_id        INT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			user_id         INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			points          INT NOT NULL,
			remaining_score INT NOT NULL,
			is_double       BOOLEAN NOT NULL DEFAULT FALSE,
			round_number    INT NOT NULL,
			throw_number    INT NOT NULL,
			thrown_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dart_throws_match_user_order
			ON dart_throws (match_id, user_id, thrown_at DESC, id DESC)`,
		`CREATE TABLE IF NOT EXISTS match_confirmations (
			id           SERIAL PRIMARY KEY,
			match_id     INT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			user_id      INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			confirmed    BOOLEAN NOT NULL DEFAULT FALSE,
			confirmed_at TIMESTAMPTZ,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (match_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS player_statistics (
			id             SERIAL PRIMARY KEY,
			tournament_id  INT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
			user_id        INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			matches_played INT NOT NULL DEFAULT 0,
			matches_won    INT NOT NULL DEFAULT 0,
			matches_lost   INT NOT NULL DEFAULT 0,
			win_loss_ratio DOUBLE PRECISION NOT NULL DEFAULT 0,
			average_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
			ranking        INT,
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (tournament_id, user_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
