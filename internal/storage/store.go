package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/jjsim/internal/config"
	"github.com/san-kum/jjsim/internal/export"
	"github.com/san-kum/jjsim/internal/sim"
)

var (
	ErrNotFound  = errors.New("storage: run not found")
	ErrAmbiguous = errors.New("storage: run id prefix is ambiguous")
)

const (
	metaFile   = "metadata.json"
	tracesFile = "traces.csv"
	deckFile   = "deck.yaml"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Deck      string             `json:"deck"`
	Timestamp time.Time          `json:"timestamp"`
	Mode      string             `json:"mode"`
	Step      float64            `json:"step"`
	Start     float64            `json:"start"`
	Stop      float64            `json:"stop"`
	Seed      uint64             `json:"seed"`
	Steps     int                `json:"steps"`
	Refactors int                `json:"refactors"`
	Elapsed   time.Duration      `json:"elapsed_ns"`
	Traces    []string           `json:"traces"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Warnings  []string           `json:"warnings,omitempty"`
}

// Save writes a run directory holding the metadata, the deck that produced
// it and the sampled traces.
func (s *Store) Save(cfg *config.Config, result *sim.Result) (string, error) {
	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Deck:      cfg.Name,
		Timestamp: time.Now(),
		Mode:      result.Mode,
		Step:      cfg.Simulation.Step,
		Start:     cfg.Simulation.Start,
		Stop:      cfg.Simulation.Stop,
		Seed:      cfg.Simulation.Seed,
		Steps:     result.Steps,
		Refactors: result.Refactors,
		Elapsed:   result.Duration,
		Traces:    result.Names(),
		Metrics:   result.Metrics,
	}
	for _, sc := range result.SuperCurrents {
		meta.Traces = append(meta.Traces, sc.Name)
	}
	for _, w := range result.Warnings {
		meta.Warnings = append(meta.Warnings, w.String())
	}

	if err := writeJSON(filepath.Join(runDir, metaFile), meta); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, deckFile), cfg); err != nil {
		return "", err
	}
	if err := export.ExportCSV(filepath.Join(runDir, tracesFile), result); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// List returns every readable run, newest first.
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
		meta, err := s.readMeta(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

// Resolve expands a unique id prefix to the full run id.
func (s *Store) Resolve(prefix string) (string, error) {
	if prefix == "" {
		return "", ErrNotFound
	}
	if _, err := os.Stat(filepath.Join(s.baseDir, prefix, metaFile)); err == nil {
		return prefix, nil
	}
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, prefix)
		}
		return "", err
	}
	var match string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("%w: %s", ErrAmbiguous, prefix)
		}
		match = e.Name()
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, prefix)
	}
	return match, nil
}

func (s *Store) readMeta(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metaFile))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	id, err := s.Resolve(runID)
	if err != nil {
		return nil, err
	}
	return s.readMeta(id)
}

func (s *Store) LoadDeck(runID string) (*config.Config, error) {
	id, err := s.Resolve(runID)
	if err != nil {
		return nil, err
	}
	return config.Load(filepath.Join(s.baseDir, id, deckFile))
}

// LoadTraces rebuilds a result from the stored CSV and metadata.
func (s *Store) LoadTraces(runID string) (*sim.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.baseDir, meta.ID, tracesFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := export.ReadCSV(f)
	if err != nil {
		return nil, err
	}
	r.Mode = meta.Mode
	r.Step = meta.Step
	r.Steps = meta.Steps
	r.Refactors = meta.Refactors
	r.Duration = meta.Elapsed
	r.Metrics = meta.Metrics
	return r, nil
}

func (s *Store) Delete(runID string) error {
	id, err := s.Resolve(runID)
	if err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.baseDir, id))
}
