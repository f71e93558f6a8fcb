package production

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/comalice/statesvc/internal/core"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	machine_id    TEXT PRIMARY KEY,
	chart_version TEXT NOT NULL DEFAULT '',
	state_id      TEXT NOT NULL,
	state_data    TEXT,
	sequence      INTEGER NOT NULL,
	run_state     TEXT NOT NULL,
	updated_at    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS transitions (
	machine_id  TEXT NOT NULL,
	sequence    INTEGER NOT NULL,
	from_state  TEXT NOT NULL,
	to_state    TEXT NOT NULL,
	event_id    TEXT NOT NULL DEFAULT '',
	changed     INTEGER NOT NULL,
	final       INTEGER NOT NULL,
	created_at  INTEGER NOT NULL,
	PRIMARY KEY (machine_id, sequence)
);
`

// SQLiteStore persists snapshots and keeps a log of every transition in a
// SQLite database. It implements both core.Persister and core.Publisher.
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLite opens a SQLite store and creates its tables.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, snapshot core.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(snapshot.State.Data)
	if err != nil {
		return fmt.Errorf("json marshal state data: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO snapshots (machine_id, chart_version, state_id, state_data, sequence, run_state, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(machine_id) DO UPDATE SET
	chart_version = excluded.chart_version,
	state_id = excluded.state_id,
	state_data = excluded.state_data,
	sequence = excluded.sequence,
	run_state = excluded.run_state,
	updated_at = excluded.updated_at
`,
		snapshot.MachineID,
		snapshot.ChartVersion,
		snapshot.State.ID,
		string(data),
		int64(snapshot.Sequence),
		snapshot.RunState,
		snapshot.Timestamp.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, machineID string) (core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return core.Snapshot{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT chart_version, state_id, state_data, sequence, run_state, updated_at
FROM snapshots WHERE machine_id = ?
`, machineID)

	var (
		snapshot  core.Snapshot
		stateData sql.NullString
		sequence  int64
		updatedAt int64
	)
	err := row.Scan(&snapshot.ChartVersion, &snapshot.State.ID, &stateData, &sequence, &snapshot.RunState, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Snapshot{}, fmt.Errorf("machine %q: %w", machineID, ErrSnapshotNotFound)
		}
		return core.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	if stateData.Valid && stateData.String != "" && stateData.String != "null" {
		if err := json.Unmarshal([]byte(stateData.String), &snapshot.State.Data); err != nil {
			return core.Snapshot{}, fmt.Errorf("json unmarshal state data: %w", err)
		}
	}
	snapshot.Sequence = uint64(sequence)
	snapshot.Timestamp = time.UnixMilli(updatedAt).UTC()
	return checkSnapshot(snapshot, machineID)
}

// Publish appends record to the transition log.
func (s *SQLiteStore) Publish(ctx context.Context, record core.TransitionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO transitions (machine_id, sequence, from_state, to_state, event_id, changed, final, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		record.MachineID,
		int64(record.Sequence),
		record.From,
		record.To,
		record.Event,
		record.Changed,
		record.Final,
		record.Timestamp.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}

// History lists a machine's transitions in sequence order. A limit of zero
// or less returns all of them.
func (s *SQLiteStore) History(ctx context.Context, machineID string, limit int) ([]core.TransitionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT sequence, from_state, to_state, event_id, changed, final, created_at
FROM transitions WHERE machine_id = ?
ORDER BY sequence ASC
LIMIT ?
`, machineID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var records []core.TransitionRecord
	for rows.Next() {
		var (
			rec       core.TransitionRecord
			sequence  int64
			createdAt int64
		)
		if err := rows.Scan(&sequence, &rec.From, &rec.To, &rec.Event, &rec.Changed, &rec.Final, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		rec.MachineID = machineID
		rec.Sequence = uint64(sequence)
		rec.Timestamp = time.UnixMilli(createdAt).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return records, nil
}
