package alarms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/oshokin/alarm-alert/internal/domain/alarm"
)

// Repository defines persistence operations for alarms and their snoozes.
type Repository interface {
	CreateAlarm(ctx context.Context, a alarm.Alarm) (alarm.Alarm, error)
	Alarm(ctx context.Context, id alarm.ID) (alarm.Alarm, error)
	AlarmExists(ctx context.Context, id alarm.ID) (bool, error)
	DeleteAlarm(ctx context.Context, id alarm.ID) error
	SaveSnoozeTime(ctx context.Context, id alarm.ID, fireTime time.Time) error
	SnoozeTime(ctx context.Context, id alarm.ID) (time.Time, error)
}

// ErrNotFound is returned when an alarm or snooze does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteRepository keeps alarms in a SQLite file.
type SQLiteRepository struct {
	// db is limited to one connection, SQLite has a single writer.
	db *sql.DB
	// path is the database file location.
	path string
}

var _ Repository = (*SQLiteRepository)(nil)

// Open opens (or creates) the database at path and runs migrations.
func Open(ctx context.Context, path string) (*SQLiteRepository, error) {
	path = filepath.Clean(path)

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepository{
		db:   db,
		path: path,
	}, nil
}

// Path returns the database file path.
func (r *SQLiteRepository) Path() string { return r.path }

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// CreateAlarm stores a. A zero ID is assigned by the database.
func (r *SQLiteRepository) CreateAlarm(ctx context.Context, a alarm.Alarm) (alarm.Alarm, error) {
	var (
		res sql.Result
		err error
	)

	if a.ID == 0 {
		res, err = r.db.ExecContext(ctx, "INSERT INTO alarms (label) VALUES (?)", a.Label)
	} else {
		res, err = r.db.ExecContext(ctx,
			"INSERT INTO alarms (id, label) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET label = excluded.label",
			int64(a.ID), a.Label)
	}

	if err != nil {
		return alarm.Alarm{}, fmt.Errorf("insert alarm: %w", err)
	}

	if a.ID == 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return alarm.Alarm{}, fmt.Errorf("alarm id: %w", err)
		}

		a.ID = alarm.ID(id)
	}

	return a, nil
}

// Alarm loads one alarm.
func (r *SQLiteRepository) Alarm(ctx context.Context, id alarm.ID) (alarm.Alarm, error) {
	a := alarm.Alarm{ID: id}

	row := r.db.QueryRowContext(ctx, "SELECT label FROM alarms WHERE id = ?", int64(id))
	if err := row.Scan(&a.Label); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return alarm.Alarm{}, ErrNotFound
		}

		return alarm.Alarm{}, fmt.Errorf("select alarm: %w", err)
	}

	return a, nil
}

// AlarmExists reports whether the alarm definition is still stored.
func (r *SQLiteRepository) AlarmExists(ctx context.Context, id alarm.ID) (bool, error) {
	var exists int

	row := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM alarms WHERE id = ?)", int64(id))
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("check alarm: %w", err)
	}

	return exists == 1, nil
}

// DeleteAlarm removes the alarm and its pending snooze.
func (r *SQLiteRepository) DeleteAlarm(ctx context.Context, id alarm.ID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM alarms WHERE id = ?", int64(id))
	if err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("delete alarm: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM snoozes WHERE alarm_id = ?", int64(id)); err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("delete snooze: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveSnoozeTime records when the snoozed alarm fires again, replacing any earlier snooze.
func (r *SQLiteRepository) SaveSnoozeTime(ctx context.Context, id alarm.ID, fireTime time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO snoozes (alarm_id, fire_time_ms) VALUES (?, ?) ON CONFLICT(alarm_id) DO UPDATE SET fire_time_ms = excluded.fire_time_ms",
		int64(id), fireTime.UnixMilli())
	if err != nil {
		return fmt.Errorf("save snooze: %w", err)
	}

	return nil
}

// SnoozeTime returns the stored snooze fire time.
func (r *SQLiteRepository) SnoozeTime(ctx context.Context, id alarm.ID) (time.Time, error) {
	var millis int64

	row := r.db.QueryRowContext(ctx, "SELECT fire_time_ms FROM snoozes WHERE alarm_id = ?", int64(id))
	if err := row.Scan(&millis); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrNotFound
		}

		return time.Time{}, fmt.Errorf("select snooze: %w", err)
	}

	return time.UnixMilli(millis), nil
}
