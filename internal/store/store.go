// Package store records batch runs and per-image outcomes in SQLite.
package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ironsheep/vanishing-point/internal/vanishing"
)

// schema.sql creates the runs and detections tables.
//
//go:embed schema.sql
var schemaSQL string

// Detection statuses.
const (
	StatusFound    = "found"
	StatusNotFound = "not_found"
	StatusFailed   = "failed"
)

// Store is a results database.
type Store struct {
	*sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results db: %w", err)
	}
	// one writer; batch workers serialise on the pool
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize results schema: %w", err)
	}
	return &Store{db}, nil
}

// Run describes one batch invocation.
type Run struct {
	ID        string
	Strategy  string
	InputDir  string
	OutputDir string
	Processed int
	Found     int
	NotFound  int
	Failed    int
	Finished  bool
}

// Detection is the stored outcome for one image.
type Detection struct {
	Image      string
	Width      int
	Height     int
	Status     string
	Points     []vanishing.Point
	Error      float64
	Lines      int
	OutputPath string
	Message    string
}

// BeginRun creates a run record and returns its ID.
func (s *Store) BeginRun(strategy, inputDir, outputDir string) (string, error) {
	id := uuid.New().String()
	_, err := s.Exec(`
		INSERT INTO runs (id, strategy, input_dir, output_dir)
		VALUES (?, ?, ?, ?)
	`, id, strategy, inputDir, outputDir)
	if err != nil {
		return "", fmt.Errorf("failed to begin run: %w", err)
	}
	return id, nil
}

// FinishRun stores the final counts of a run.
func (s *Store) FinishRun(id string, processed, found, notFound, failed int) error {
	res, err := s.Exec(`
		UPDATE runs
		SET finished_at = UNIXEPOCH('subsec'),
			processed = ?, found = ?, not_found = ?, failed = ?
		WHERE id = ?
	`, processed, found, notFound, failed, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("unknown run %s", id)
	}
	return nil
}

// Record stores the outcome for one image of run id.
func (s *Store) Record(id string, d Detection) error {
	points := d.Points
	if points == nil {
		points = []vanishing.Point{}
	}
	pointsJSON, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("failed to encode points: %w", err)
	}

	_, err = s.Exec(`
		INSERT INTO detections (run_id, image, width, height, status, points_json, error, lines, output_path, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, d.Image, d.Width, d.Height, d.Status, string(pointsJSON), d.Error, d.Lines, d.OutputPath, d.Message)
	if err != nil {
		return fmt.Errorf("failed to record detection for %s: %w", d.Image, err)
	}
	return nil
}

// GetRun loads a run record.
func (s *Store) GetRun(id string) (*Run, error) {
	var r Run
	var finished sql.NullFloat64
	err := s.QueryRow(`
		SELECT id, strategy, input_dir, output_dir, processed, found, not_found, failed, finished_at
		FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.Strategy, &r.InputDir, &r.OutputDir,
		&r.Processed, &r.Found, &r.NotFound, &r.Failed, &finished)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	r.Finished = finished.Valid
	return &r, nil
}

// Detections returns the outcomes recorded for run id, ordered by image name.
// Points is nil for images without a vanishing point.
func (s *Store) Detections(id string) ([]Detection, error) {
	rows, err := s.Query(`
		SELECT image, width, height, status, points_json, error, lines, output_path, message
		FROM detections WHERE run_id = ?
		ORDER BY image
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var out []Detection
	for rows.Next() {
		var d Detection
		var pointsJSON string
		if err := rows.Scan(&d.Image, &d.Width, &d.Height, &d.Status, &pointsJSON,
			&d.Error, &d.Lines, &d.OutputPath, &d.Message); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		if err := json.Unmarshal([]byte(pointsJSON), &d.Points); err != nil {
			return nil, fmt.Errorf("failed to decode points for %s: %w", d.Image, err)
		}
		if len(d.Points) == 0 {
			d.Points = nil
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
