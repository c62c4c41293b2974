package db

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration

	"github.com/coding-garden-1/parrot-sans-pyaudio/models"
	"github.com/coding-garden-1/parrot-sans-pyaudio/utils"
)

type SQLiteClient struct {
	db *sql.DB
}

func NewSQLiteClient(dataSourceName string) (*SQLiteClient, error) {
	// Extract the file path before query parameters
	dbPath := dataSourceName
	if idx := strings.Index(dataSourceName, "?"); idx != -1 {
		dbPath = dataSourceName[:idx]
	}

	dbDir := filepath.Dir(dbPath)
	if dbDir != "." && dbDir != "" {
		if err := utils.CreateFolder(dbDir); err != nil {
			return nil, fmt.Errorf("error creating database directory: %s", err)
		}
	}

	// Add busy timeout param to DSN (milliseconds)
	if !strings.Contains(dataSourceName, "_busy_timeout") {
		if strings.Contains(dataSourceName, "?") {
			dataSourceName += "&_busy_timeout=5000"
		} else {
			dataSourceName += "?_busy_timeout=5000"
		}
	}

	// run_labels cascades on run deletion
	if !strings.Contains(dataSourceName, "_foreign_keys") {
		if strings.Contains(dataSourceName, "?") {
			dataSourceName += "&_foreign_keys=on"
		} else {
			dataSourceName += "?_foreign_keys=on"
		}
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("error connecting to SQLite: %s", err)
	}

	err = createTables(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %s", err)
	}

	return &SQLiteClient{db: db}, nil
}

// createTables creates the required tables if they don't exist
func createTables(db *sql.DB) error {
	createRunsTable := `
    CREATE TABLE IF NOT EXISTS runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        started_at DATETIME NOT NULL,
        dataset_folder TEXT NOT NULL,
        background_label TEXT NOT NULL,
        total_truncation INTEGER NOT NULL,
        ram_budget INTEGER NOT NULL DEFAULT 0,
        estimated_ram INTEGER NOT NULL DEFAULT 0,
        reduction_percent INTEGER NOT NULL DEFAULT 0,
        balance_entropy REAL NOT NULL DEFAULT 0
    );
    CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
    `

	createRunLabelsTable := `
    CREATE TABLE IF NOT EXISTS run_labels (
        run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
        position INTEGER NOT NULL,
        label TEXT NOT NULL,
        strategy TEXT NOT NULL,
        total_size INTEGER NOT NULL,
        total_loaded INTEGER NOT NULL,
        truncate_after INTEGER NOT NULL,
        sample_from_each INTEGER NOT NULL,
        sampled INTEGER NOT NULL DEFAULT 0,
        background INTEGER NOT NULL DEFAULT 0,
        PRIMARY KEY (run_id, label)
    );
    `

	_, err := db.Exec(createRunsTable)
	if err != nil {
		return fmt.Errorf("error creating runs table: %s", err)
	}

	_, err = db.Exec(createRunLabelsTable)
	if err != nil {
		return fmt.Errorf("error creating run_labels table: %s", err)
	}

	return nil
}

func (db *SQLiteClient) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// StoreRun saves a report and its label rows in one transaction and returns
// the new run id.
func (db *SQLiteClient) StoreRun(report *models.RunReport) (int64, error) {
	tx, err := db.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %s", err)
	}

	res, err := tx.Exec(`
		INSERT INTO runs (
			started_at, dataset_folder, background_label, total_truncation,
			ram_budget, estimated_ram, reduction_percent, balance_entropy
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.StartedAt.UTC(),
		report.DatasetFolder,
		report.BackgroundLabel,
		report.TotalTruncation,
		report.RAMBudget,
		report.EstimatedRAM,
		report.ReductionPercent,
		report.BalanceEntropy,
	)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("error storing run: %s", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("error reading run id: %s", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_labels (
			run_id, position, label, strategy, total_size, total_loaded,
			truncate_after, sample_from_each, sampled, background
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("error preparing statement: %s", err)
	}
	defer stmt.Close()

	for i, l := range report.Labels {
		if _, err := stmt.Exec(runID, i, l.Label, l.Strategy, l.TotalSize, l.TotalLoaded,
			l.TruncateAfter, l.SampleFromEach, l.Sampled, l.Background); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("error storing label %s: %s", l.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing run: %s", err)
	}
	report.ID = runID
	return runID, nil
}

// ListRuns returns the most recent runs first, without their label rows.
// A limit of zero or less returns every run.
func (db *SQLiteClient) ListRuns(limit int) ([]models.RunReport, error) {
	query := `
		SELECT id, started_at, dataset_folder, background_label, total_truncation,
		       ram_budget, estimated_ram, reduction_percent, balance_entropy
		FROM runs
		ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying runs: %s", err)
	}
	defer rows.Close()

	var runs []models.RunReport
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading runs: %s", err)
	}
	return runs, nil
}

// GetRun returns one run with its labels in their stored order.
func (db *SQLiteClient) GetRun(id int64) (models.RunReport, bool, error) {
	row := db.db.QueryRow(`
		SELECT id, started_at, dataset_folder, background_label, total_truncation,
		       ram_budget, estimated_ram, reduction_percent, balance_entropy
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RunReport{}, false, nil
		}
		return models.RunReport{}, false, err
	}

	rows, err := db.db.Query(`
		SELECT label, strategy, total_size, total_loaded, truncate_after,
		       sample_from_each, sampled, background
		FROM run_labels WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return models.RunReport{}, false, fmt.Errorf("error querying run labels: %s", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l models.LabelReport
		if err := rows.Scan(&l.Label, &l.Strategy, &l.TotalSize, &l.TotalLoaded,
			&l.TruncateAfter, &l.SampleFromEach, &l.Sampled, &l.Background); err != nil {
			return models.RunReport{}, false, fmt.Errorf("error scanning run label: %s", err)
		}
		run.Labels = append(run.Labels, l)
	}
	return run, true, rows.Err()
}

// DeleteRun removes a run and its labels.
func (db *SQLiteClient) DeleteRun(id int64) error {
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %s", err)
	}
	if _, err := tx.Exec("DELETE FROM run_labels WHERE run_id = ?", id); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete run labels: %v", err)
	}
	if _, err := tx.Exec("DELETE FROM runs WHERE id = ?", id); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete run: %v", err)
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (models.RunReport, error) {
	var r models.RunReport
	var startedAt time.Time
	err := s.Scan(&r.ID, &startedAt, &r.DatasetFolder, &r.BackgroundLabel, &r.TotalTruncation,
		&r.RAMBudget, &r.EstimatedRAM, &r.ReductionPercent, &r.BalanceEntropy)
	if err != nil {
		return models.RunReport{}, fmt.Errorf("error scanning run: %w", err)
	}
	r.StartedAt = startedAt
	return r, nil
}
