package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/san-kum/dpsim/internal/dynamo"
	"github.com/san-kum/dpsim/internal/integrators"
	"github.com/san-kum/dpsim/internal/metrics"
	"github.com/san-kum/dpsim/internal/physics"
	"github.com/san-kum/dpsim/internal/sim"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"

	Method = "RK45 (Dormand-Prince 5(4), dense output)"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID        string             `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	Params    physics.Params     `json:"params"`
	Gravity   float64            `json:"gravity"`
	Initial   dynamo.State       `json:"initial_state"`
	Duration  float64            `json:"duration"`
	Samples   int                `json:"samples"`
	Method    string             `json:"method"`
	RelTol    float64            `json:"rtol"`
	AbsTol    float64            `json:"atol"`
	Stats     integrators.Stats  `json:"stats"`
	Summary   metrics.Summary    `json:"summary"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// NewMetadata describes traj as produced with cfg.
func NewMetadata(traj *sim.Trajectory, cfg sim.Config) RunMetadata {
	return RunMetadata{
		Params:   traj.Params,
		Gravity:  physics.Gravity,
		Initial:  traj.Initial.Clone(),
		Duration: traj.Duration(),
		Samples:  traj.Len(),
		Method:   Method,
		RelTol:   cfg.RelTol,
		AbsTol:   cfg.AbsTol,
		Stats:    traj.Stats,
		Summary:  metrics.Summarize(traj),
	}
}

// Save writes a new run directory and returns its id. ID and Timestamp of
// meta are assigned here.
func (s *Store) Save(meta RunMetadata, traj *sim.Trajectory) (string, error) {
	now := s.now()
	meta.ID = fmt.Sprintf("dp_%d", now.UnixNano())
	meta.Timestamp = now

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, trajectoryFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, traj); err != nil {
		return "", err
	}
	return meta.ID, csvFile.Sync()
}

// List returns all readable runs, oldest first. Directories without valid
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

// Latest returns the most recent run.
func (s *Store) Latest() (*RunMetadata, error) {
	runs, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrRunNotFound
	}
	return &runs[len(runs)-1], nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadTrajectory rebuilds the stored trajectory together with the
// parameters, initial state and solver statistics from its metadata.
func (s *Store) LoadTrajectory(runID string) (*RunMetadata, *sim.Trajectory, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, runID, trajectoryFile))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	traj, err := ReadCSV(file, meta.Params, meta.Initial)
	if err != nil {
		return nil, nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	traj.Stats = meta.Stats
	return meta, traj, nil
}
