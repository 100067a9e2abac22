package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/pendubalance/internal/config"
	"github.com/san-kum/pendubalance/internal/dynamo"
	"github.com/san-kum/pendubalance/internal/sim"
)

// Columns of states.csv.
var Header = []string{"time", "theta1", "theta1_dot", "theta2", "theta2_dot", "torque", "applied", "cost"}

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
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Timestamp    time.Time          `json:"timestamp"`
	Config       *config.Config     `json:"config"`
	Steps        int                `json:"steps"`
	ControlTicks int                `json:"control_ticks"`
	Overruns     int                `json:"overruns"`
	SimTime      float64            `json:"sim_time"`
	WallMillis   int64              `json:"wall_ms"`
	Final        dynamo.State       `json:"final"`
	Metrics      map[string]float64 `json:"metrics"`
}

// Trace is the per-tick record of a run. Row i holds the state at Times[i]
// and the torque held while stepping away from it; the final row repeats
// the last held torque.
type Trace struct {
	Times   []float64
	States  []dynamo.State
	Torques []float64
	Applied []float64
	Costs   []float64
}

func TraceFromResult(res *sim.Result) *Trace {
	tr := &Trace{
		Times:   res.Times,
		States:  res.States,
		Torques: make([]float64, len(res.States)),
		Applied: make([]float64, len(res.States)),
		Costs:   make([]float64, len(res.States)),
	}
	for i := range res.States {
		j := min(i, len(res.Torques)-1)
		if j < 0 {
			continue
		}
		tr.Torques[i] = res.Torques[j]
		tr.Applied[i] = res.Applied[j]
		tr.Costs[i] = res.Costs[j]
	}
	return tr
}

func (t *Trace) Len() int { return len(t.Times) }

// Column returns one named column of states.csv.
func (t *Trace) Column(name string) ([]float64, error) {
	out := make([]float64, t.Len())
	for i := range out {
		switch name {
		case "time":
			out[i] = t.Times[i]
		case "theta1":
			out[i] = t.States[i].Theta1
		case "theta1_dot":
			out[i] = t.States[i].Theta1Dot
		case "theta2":
			out[i] = t.States[i].Theta2
		case "theta2_dot":
			out[i] = t.States[i].Theta2Dot
		case "torque":
			out[i] = t.Torques[i]
		case "applied":
			out[i] = t.Applied[i]
		case "cost":
			out[i] = t.Costs[i]
		default:
			return nil, fmt.Errorf("unknown column %q", name)
		}
	}
	return out, nil
}

// Save writes metadata.json and states.csv into a new run directory and
// returns the run id. An open-ended run is recorded with the duration it
// actually reached, since JSON has no infinity.
func (s *Store) Save(name string, cfg *config.Config, res *sim.Result) (string, error) {
	if cfg != nil && math.IsInf(cfg.Loop.Duration, 0) {
		cfg = cfg.Clone()
		cfg.Loop.Duration = res.SimTime()
	}

	now := time.Now()
	runID := fmt.Sprintf("%s_%d", name, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:           runID,
		Name:         name,
		Timestamp:    now,
		Config:       cfg,
		Steps:        res.Steps,
		ControlTicks: res.ControlTicks,
		Overruns:     res.Overruns,
		SimTime:      res.SimTime(),
		WallMillis:   res.Wall.Milliseconds(),
		Final:        res.Final(),
		Metrics:      res.Metrics,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, TraceFromResult(res)); err != nil {
		return "", err
	}
	return runID, nil
}

// List returns the stored runs, oldest first. Directories without readable
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

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadTrace reads states.csv. Rows that fail to parse are skipped.
func (s *Store) LoadTrace(runID string) (*Trace, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	tr := &Trace{}
	if len(records) < 2 {
		return tr, nil
	}

	for _, record := range records[1:] {
		if len(record) < len(Header) {
			continue
		}
		vals := make([]float64, len(Header))
		ok := true
		for j := range vals {
			v, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				ok = false
				break
			}
			vals[j] = v
		}
		if !ok {
			continue
		}

		tr.Times = append(tr.Times, vals[0])
		tr.States = append(tr.States, dynamo.StateFromSlice(vals[1:5]))
		tr.Torques = append(tr.Torques, vals[5])
		tr.Applied = append(tr.Applied, vals[6])
		tr.Costs = append(tr.Costs, vals[7])
	}
	return tr, nil
}

// LoadStates is LoadTrace reduced to states and times.
func (s *Store) LoadStates(runID string) ([]dynamo.State, []float64, error) {
	tr, err := s.LoadTrace(runID)
	if err != nil {
		return nil, nil, err
	}
	return tr.States, tr.Times, nil
}
