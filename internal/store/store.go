package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/armtrace/internal/export"
	"github.com/xkilldash9x/armtrace/internal/kinematics"
	"github.com/xkilldash9x/armtrace/internal/trajectory"
)

// ErrSessionNotFound is returned by LoadBundle for unknown session IDs.
var ErrSessionNotFound = errors.New("store: recording session not found")

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository is what the CLI needs from persistent storage.
type Repository interface {
	SaveBundle(ctx context.Context, b *export.Bundle) error
	LoadBundle(ctx context.Context, sessionID string) (*export.Bundle, error)
}

// Store is the PostgreSQL Repository.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

var _ Repository = (*Store)(nil)

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS recording_sessions (
    id UUID PRIMARY KEY,
    participant_id TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    shoulder_x DOUBLE PRECISION NOT NULL,
    shoulder_y DOUBLE PRECISION NOT NULL,
    upper_arm_length DOUBLE PRECISION NOT NULL,
    lower_arm_length DOUBLE PRECISION NOT NULL
);
CREATE TABLE IF NOT EXISTS attempts (
    session_id UUID NOT NULL REFERENCES recording_sessions (id) ON DELETE CASCADE,
    attempt_index INTEGER NOT NULL,
    start_x DOUBLE PRECISION NOT NULL,
    start_y DOUBLE PRECISION NOT NULL,
    target_x DOUBLE PRECISION NOT NULL,
    target_y DOUBLE PRECISION NOT NULL,
    completed BOOLEAN NOT NULL,
    total_time_ms DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (session_id, attempt_index)
);
CREATE TABLE IF NOT EXISTS frames (
    session_id UUID NOT NULL,
    attempt_index INTEGER NOT NULL,
    frame_index INTEGER NOT NULL,
    timestamp_ms DOUBLE PRECISION NOT NULL,
    shoulder_angle DOUBLE PRECISION NOT NULL,
    elbow_angle DOUBLE PRECISION NOT NULL,
    elbow_x DOUBLE PRECISION NOT NULL,
    elbow_y DOUBLE PRECISION NOT NULL,
    effector_x DOUBLE PRECISION NOT NULL,
    effector_y DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (session_id, attempt_index, frame_index),
    FOREIGN KEY (session_id, attempt_index) REFERENCES attempts (session_id, attempt_index) ON DELETE CASCADE
);`

// Migrate creates the tables if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

const (
	sqlInsertSession = `
        INSERT INTO recording_sessions (id, participant_id, created_at, shoulder_x, shoulder_y, upper_arm_length, lower_arm_length)
        VALUES ($1, $2, $3, $4, $5, $6, $7);`
	sqlInsertAttempt = `
        INSERT INTO attempts (session_id, attempt_index, start_x, start_y, target_x, target_y, completed, total_time_ms)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
	sqlSelectSession = `
        SELECT participant_id, created_at, shoulder_x, shoulder_y, upper_arm_length, lower_arm_length
        FROM recording_sessions
        WHERE id = $1;`
	sqlSelectAttempts = `
        SELECT attempt_index, start_x, start_y, target_x, target_y, completed
        FROM attempts
        WHERE session_id = $1
        ORDER BY attempt_index ASC;`
	sqlSelectFrames = `
        SELECT attempt_index, timestamp_ms, shoulder_angle, elbow_angle, elbow_x, elbow_y, effector_x, effector_y
        FROM frames
        WHERE session_id = $1
        ORDER BY attempt_index ASC, frame_index ASC;`
)

// FrameColumns is the column list used when bulk-copying frames.
var FrameColumns = []string{
	"session_id", "attempt_index", "frame_index", "timestamp_ms",
	"shoulder_angle", "elbow_angle", "elbow_x", "elbow_y", "effector_x", "effector_y",
}

// SaveBundle writes the session, its attempts and every frame in one
// transaction.
func (s *Store) SaveBundle(ctx context.Context, b *export.Bundle) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	g := b.Geometry
	if _, err := tx.Exec(ctx, sqlInsertSession,
		b.SessionID, b.ParticipantID, b.CreatedAt.UTC(),
		g.ShoulderPosition.X, g.ShoulderPosition.Y, g.UpperArmLength, g.LowerArmLength,
	); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	var rows [][]any
	for i, a := range b.Attempts {
		if _, err := tx.Exec(ctx, sqlInsertAttempt,
			b.SessionID, i,
			a.StartPosition.X, a.StartPosition.Y, a.TargetPosition.X, a.TargetPosition.Y,
			a.Completed, a.TotalTimeMs,
		); err != nil {
			return fmt.Errorf("failed to insert attempt %d: %w", i, err)
		}
		for j, f := range a.Frames {
			rows = append(rows, []any{
				b.SessionID, i, j, f.Timestamp,
				f.ShoulderAngle, f.ElbowAngle,
				f.ElbowPosition.X, f.ElbowPosition.Y,
				f.EndEffectorPosition.X, f.EndEffectorPosition.Y,
			})
		}
	}

	if len(rows) > 0 {
		copied, err := tx.CopyFrom(ctx, pgx.Identifier{"frames"}, FrameColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to copy frames: %w", err)
		}
		if int(copied) != len(rows) {
			return fmt.Errorf("mismatch in copied frames count: expected %d, got %d", len(rows), copied)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("Session persisted",
		zap.String("session_id", b.SessionID),
		zap.Int("attempts", len(b.Attempts)),
		zap.Int("frames", len(rows)),
	)
	return nil
}

// LoadBundle reads a session back. Frames are rebuilt from their stored
// columns, so positions are the recorded ones rather than recomputed.
func (s *Store) LoadBundle(ctx context.Context, sessionID string) (*export.Bundle, error) {
	b, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if b.Attempts, err = s.loadAttempts(ctx, sessionID); err != nil {
		return nil, err
	}
	if err := s.loadFrames(ctx, sessionID, b.Attempts); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) loadSession(ctx context.Context, sessionID string) (*export.Bundle, error) {
	rows, err := s.pool.Query(ctx, sqlSelectSession, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error during row iteration: %w", err)
		}
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	b := &export.Bundle{SessionID: sessionID}
	var createdAt time.Time
	var g kinematics.Geometry
	if err := rows.Scan(
		&b.ParticipantID, &createdAt,
		&g.ShoulderPosition.X, &g.ShoulderPosition.Y, &g.UpperArmLength, &g.LowerArmLength,
	); err != nil {
		return nil, fmt.Errorf("failed to scan session row: %w", err)
	}
	b.CreatedAt = createdAt.UTC()
	b.Geometry = g
	return b, nil
}

func (s *Store) loadAttempts(ctx context.Context, sessionID string) ([]trajectory.MotionTrajectory, error) {
	rows, err := s.pool.Query(ctx, sqlSelectAttempts, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []trajectory.MotionTrajectory
	for rows.Next() {
		var index int
		var a trajectory.MotionTrajectory
		if err := rows.Scan(
			&index,
			&a.StartPosition.X, &a.StartPosition.Y, &a.TargetPosition.X, &a.TargetPosition.Y,
			&a.Completed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attempt row: %w", err)
		}
		if index != len(attempts) {
			return nil, fmt.Errorf("attempt %d is missing from session %s", len(attempts), sessionID)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return attempts, nil
}

func (s *Store) loadFrames(ctx context.Context, sessionID string, attempts []trajectory.MotionTrajectory) error {
	rows, err := s.pool.Query(ctx, sqlSelectFrames, sessionID)
	if err != nil {
		return fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	frames := make([][]trajectory.MotionFrame, len(attempts))
	for rows.Next() {
		var index int
		var f trajectory.MotionFrame
		if err := rows.Scan(
			&index, &f.Timestamp, &f.ShoulderAngle, &f.ElbowAngle,
			&f.ElbowPosition.X, &f.ElbowPosition.Y,
			&f.EndEffectorPosition.X, &f.EndEffectorPosition.Y,
		); err != nil {
			return fmt.Errorf("failed to scan frame row: %w", err)
		}
		if index < 0 || index >= len(attempts) {
			return fmt.Errorf("frame references unknown attempt %d", index)
		}
		frames[index] = append(frames[index], f)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error during row iteration: %w", err)
	}

	for i := range attempts {
		attempts[i] = attempts[i].WithFrames(frames[i])
	}
	return nil
}
