package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/drivectl/internal/actuation"
	"github.com/san-kum/drivectl/internal/drive"
	"github.com/san-kum/drivectl/internal/models"
	"github.com/san-kum/drivectl/internal/sensing"
	"github.com/san-kum/drivectl/internal/sim"
)

var ErrRunNotFound = errors.New("storage: run not found")

const (
	metadataFile  = "metadata.json"
	telemetryFile = "telemetry.csv"
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
	ID            string             `json:"id"`
	Preset        string             `json:"preset"`
	Timestamp     time.Time          `json:"timestamp"`
	Seed          int64              `json:"seed"`
	Dt            float64            `json:"dt"`
	Duration      float64            `json:"duration"`
	Integrator    string             `json:"integrator"`
	TargetSpeed   float64            `json:"target_speed"`
	Profile       []sim.Segment      `json:"profile,omitempty"`
	SpeedGains    drive.Gains        `json:"speed_gains"`
	HeadingGains  drive.Gains        `json:"heading_gains"`
	HeadingPolicy string             `json:"heading_policy"`
	Bias          float64            `json:"bias"`
	Steps         int                `json:"steps"`
	Metrics       map[string]float64 `json:"metrics"`
}

// Sample is one stored tick: controller telemetry plus where the plant
// actually was.
type Sample struct {
	drive.Telemetry
	X            float64
	Y            float64
	PlantHeading float64
}

var header = []string{
	"time", "mode", "target", "speed_left", "speed_right", "heading",
	"out_left", "out_right", "correction", "cmd_left", "cmd_right",
	"heading_active", "saturated", "x", "y", "plant_heading",
}

// Save writes a run directory and returns its id. ID, Timestamp, Steps
// and Metrics in meta are filled in from the result.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	name := meta.Preset
	if name == "" {
		name = "run"
	}
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", name, now.UnixMilli())
	runDir := filepath.Join(s.baseDir, runID)
	for i := 1; exists(runDir); i++ {
		runID = fmt.Sprintf("%s_%d_%d", name, now.UnixMilli(), i)
		runDir = filepath.Join(s.baseDir, runID)
	}

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = now
	meta.Steps = result.Steps
	meta.Metrics = result.Metrics

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeTelemetry(filepath.Join(runDir, telemetryFile), result); err != nil {
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

func writeTelemetry(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}

	for i, tel := range result.Telemetry {
		// States[0] is the initial state, States[i+1] follows tick i
		var x sim.State
		if i+1 < len(result.States) {
			x = result.States[i+1]
		}
		if err := w.Write(encodeRow(tel, x)); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func encodeRow(tel drive.Telemetry, x sim.State) []string {
	plant := func(i int) string {
		if i < len(x) {
			return ftoa(x[i])
		}
		return "0"
	}
	return []string{
		ftoa(tel.Time),
		tel.Mode.String(),
		ftoa(tel.Target),
		ftoa(tel.Wheels.Left),
		ftoa(tel.Wheels.Right),
		ftoa(tel.Heading),
		ftoa(tel.SpeedOutLeft),
		ftoa(tel.SpeedOutRight),
		ftoa(tel.HeadingCorrection),
		strconv.Itoa(tel.Command.Left),
		strconv.Itoa(tel.Command.Right),
		strconv.FormatBool(tel.HeadingActive),
		strconv.FormatBool(tel.Saturated),
		plant(models.StateX),
		plant(models.StateY),
		plant(models.StateHeading),
	}
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// List returns stored runs, newest first.
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

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

// Latest returns the id of the newest run.
func (s *Store) Latest() (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", ErrRunNotFound
	}
	return runs[0].ID, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
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

func (s *Store) LoadTelemetry(runID string) ([]Sample, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, telemetryFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []Sample{}, nil
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[name] = i
	}

	samples := make([]Sample, 0, len(records)-1)
	for _, rec := range records[1:] {
		samples = append(samples, decodeRow(rec, col))
	}
	return samples, nil
}

func decodeRow(rec []string, col map[string]int) Sample {
	field := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}
	num := func(name string) float64 {
		v, _ := strconv.ParseFloat(field(name), 64)
		return v
	}
	integer := func(name string) int {
		v, _ := strconv.Atoi(field(name))
		return v
	}
	flag := func(name string) bool {
		v, _ := strconv.ParseBool(field(name))
		return v
	}

	return Sample{
		Telemetry: drive.Telemetry{
			Time:              num("time"),
			Mode:              parseMode(field("mode")),
			Target:            num("target"),
			Wheels:            sensing.WheelSample{Left: num("speed_left"), Right: num("speed_right")},
			Heading:           num("heading"),
			SpeedOutLeft:      num("out_left"),
			SpeedOutRight:     num("out_right"),
			HeadingCorrection: num("correction"),
			Command:           actuation.DriveCommand{Left: integer("cmd_left"), Right: integer("cmd_right")},
			HeadingActive:     flag("heading_active"),
			Saturated:         flag("saturated"),
		},
		X:            num("x"),
		Y:            num("y"),
		PlantHeading: num("plant_heading"),
	}
}

func parseMode(s string) drive.Mode {
	for _, m := range []drive.Mode{drive.Stopped, drive.Running, drive.Calibrating} {
		if m.String() == s {
			return m
		}
	}
	return drive.Stopped
}
