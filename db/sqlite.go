package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration

	"defect-segmentation/models"
	"defect-segmentation/utils"
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

	// Create the directory if it doesn't exist (cross-platform)
	dbDir := filepath.Dir(dbPath)
	if dbDir != "." && dbDir != "" {
		if err := utils.CreateFolder(dbDir); err != nil {
			return nil, fmt.Errorf("error creating database directory: %s", err)
		}
	}

	// Add busy timeout param to DSN (milliseconds)
	if !strings.Contains(dataSourceName, "_busy_timeout") {
		if strings.Contains(dataSourceName, "?") {
			dataSourceName += "&_busy_timeout=5000" // 5 seconds
		} else {
			dataSourceName += "?_busy_timeout=5000"
		}
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("error connecting to SQLite: %s", err)
	}

	err = createTables(db)
	if err != nil {
		return nil, fmt.Errorf("error creating tables: %s", err)
	}

	return &SQLiteClient{db: db}, nil
}

// createTables creates the required tables if they don't exist
func createTables(db *sql.DB) error {
	createRunsTable := `
    CREATE TABLE IF NOT EXISTS runs (
        id INTEGER PRIMARY KEY,
        kind TEXT NOT NULL,
        model_ref TEXT,
        threshold REAL NOT NULL DEFAULT 0,
        started DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    );
    `

	createMasksTable := `
    CREATE TABLE IF NOT EXISTS masks (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id INTEGER NOT NULL,
        image TEXT NOT NULL,
        mask_path TEXT NOT NULL,
        blend_path TEXT,
        threshold REAL NOT NULL DEFAULT 0,
        latency_ms REAL NOT NULL DEFAULT 0,
        class_pixels TEXT NOT NULL,
        timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_masks_run ON masks(run_id);
    CREATE INDEX IF NOT EXISTS idx_masks_image ON masks(image);
    `

	_, err := db.Exec(createRunsTable)
	if err != nil {
		return fmt.Errorf("error creating runs table: %s", err)
	}

	_, err = db.Exec(createMasksTable)
	if err != nil {
		return fmt.Errorf("error creating masks table: %s", err)
	}

	return nil
}

func (db *SQLiteClient) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// CreateRun registers a pipeline invocation and returns its ID.
func (db *SQLiteClient) CreateRun(kind, modelRef string, threshold float64) (uint32, error) {
	runID := utils.GenerateUniqueID()
	_, err := db.db.Exec("INSERT INTO runs (id, kind, model_ref, threshold) VALUES (?, ?, ?, ?)",
		runID, kind, modelRef, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to register run: %v", err)
	}
	return runID, nil
}

// GetRun returns the run registered under the given ID.
func (db *SQLiteClient) GetRun(runID uint32) (models.Run, error) {
	var run models.Run
	err := db.db.QueryRow("SELECT id, kind, COALESCE(model_ref, ''), threshold, started FROM runs WHERE id = ?", runID).
		Scan(&run.ID, &run.Kind, &run.ModelRef, &run.Threshold, &run.Started)
	if err != nil {
		return models.Run{}, fmt.Errorf("error loading run %d: %s", runID, err)
	}
	return run, nil
}

// StoreMaskRecord stores one exported segmentation result.
func (db *SQLiteClient) StoreMaskRecord(record *models.MaskRecord) error {
	classPixelsJSON, err := json.Marshal(record.ClassPixels)
	if err != nil {
		return fmt.Errorf("error marshaling class pixels: %s", err)
	}

	result, err := db.db.Exec(`
        INSERT INTO masks (run_id, image, mask_path, blend_path, threshold, latency_ms, class_pixels)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.RunID, record.Image, record.MaskPath, record.BlendPath,
		record.Threshold, record.LatencyMs, string(classPixelsJSON))
	if err != nil {
		return fmt.Errorf("error storing mask record: %s", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		record.ID = id
	}
	return nil
}

// GetRunRecords returns every mask record of a run, oldest first.
func (db *SQLiteClient) GetRunRecords(runID uint32) ([]models.MaskRecord, error) {
	rows, err := db.db.Query(`
        SELECT id, run_id, image, mask_path, COALESCE(blend_path, ''), threshold, latency_ms, class_pixels, timestamp
        FROM masks WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %s", err)
	}
	defer rows.Close()

	var records []models.MaskRecord
	for rows.Next() {
		var record models.MaskRecord
		var classPixelsJSON string
		if err := rows.Scan(&record.ID, &record.RunID, &record.Image, &record.MaskPath,
			&record.BlendPath, &record.Threshold, &record.LatencyMs, &classPixelsJSON,
			&record.Timestamp); err != nil {
			return nil, fmt.Errorf("error scanning row: %s", err)
		}
		if err := json.Unmarshal([]byte(classPixelsJSON), &record.ClassPixels); err != nil {
			return nil, fmt.Errorf("error unmarshaling class pixels: %s", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// TotalMaskRecords counts all stored mask records.
func (db *SQLiteClient) TotalMaskRecords() (int, error) {
	var count int
	err := db.db.QueryRow("SELECT COUNT(*) FROM masks").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting mask records: %s", err)
	}
	return count, nil
}
