// Package storage persists relaxation runs as a directory per run holding
// metadata.json, a zstd-compressed frames.csv.zst and metrics.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/san-kum/molsim/internal/logging"
	"github.com/san-kum/molsim/internal/molecule"
)

var ErrNoRun = errors.New("storage: no such run")

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.csv.zst"
	metricsFile  = "metrics.csv"
)

type Store struct {
	baseDir string
	log     logging.Logger
}

func New(baseDir string, log logging.Logger) *Store {
	if log == nil {
		log = logging.Nop{}
	}
	return &Store{baseDir: baseDir, log: log}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID          string             `json:"id"`
	Preset      string             `json:"preset"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Steps       int                `json:"steps"`
	SampleEvery int                `json:"sample_every"`
	Atoms       int                `json:"atoms"`
	Bonds       int                `json:"bonds"`
	Converged   bool               `json:"converged"`
	Diverged    bool               `json:"diverged,omitempty"`
	Params      molecule.Params    `json:"params"`
	Metrics     map[string]float64 `json:"metrics"`
}

// AtomState is the recorded position of one atom.
type AtomState struct {
	ID       molecule.AtomID `json:"id"`
	Symbol   string          `json:"symbol"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
	Z        float64         `json:"z"`
	Anchored bool            `json:"anchored,omitempty"`
}

// Frame is a snapshot of every atom after a step.
type Frame struct {
	Step  int         `json:"step"`
	Atoms []AtomState `json:"atoms"`
}

// Snapshot records the current positions of a solution.
func Snapshot(step int, sol *molecule.Solution) Frame {
	atoms := sol.Atoms()
	f := Frame{Step: step, Atoms: make([]AtomState, 0, len(atoms))}
	for _, a := range atoms {
		p := a.Position()
		f.Atoms = append(f.Atoms, AtomState{
			ID:       a.ID(),
			Symbol:   a.Symbol,
			X:        p.X,
			Y:        p.Y,
			Z:        p.Z,
			Anchored: a.Anchored(),
		})
	}
	return f
}

// Series holds sampled metric values keyed by metric name, aligned with Steps.
type Series struct {
	Steps  []int
	Values map[string][]float64
}

func (s Series) names() []string {
	names := make([]string, 0, len(s.Values))
	for name := range s.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) newRunID(name string, now time.Time) string {
	base := fmt.Sprintf("%s_%d", name, now.Unix())
	id := base
	for i := 1; ; i++ {
		if _, err := os.Stat(filepath.Join(s.baseDir, id)); os.IsNotExist(err) {
			return id
		}
		id = fmt.Sprintf("%s_%d", base, i)
	}
}

// Save writes a run and returns its id. meta.ID and meta.Timestamp are
// filled in.
func (s *Store) Save(meta RunMetadata, frames []Frame, series Series) (string, error) {
	name := meta.Preset
	if name == "" {
		name = "custom"
	}
	now := time.Now()
	meta.ID = s.newRunID(name, now)
	meta.Timestamp = now

	meta.Metrics, meta.Diverged = finiteMetrics(meta.Metrics, meta.Diverged)

	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return "", err
	}
	// the run only appears under its id once every file is written
	tmpDir, err := os.MkdirTemp(s.baseDir, ".saving-")
	if err != nil {
		return "", err
	}
	if err := os.Chmod(tmpDir, 0755); err != nil {
		os.RemoveAll(tmpDir)
		return "", err
	}
	if err := writeRun(tmpDir, meta, frames, series); err != nil {
		os.RemoveAll(tmpDir)
		return "", err
	}
	if err := os.Rename(tmpDir, filepath.Join(s.baseDir, meta.ID)); err != nil {
		os.RemoveAll(tmpDir)
		return "", err
	}

	s.log.Infof("saved run %s: %d frames, %d samples", meta.ID, len(frames), len(series.Steps))
	return meta.ID, nil
}

func writeRun(dir string, meta RunMetadata, frames []Frame, series Series) error {
	if err := writeJSON(filepath.Join(dir, metadataFile), meta); err != nil {
		return err
	}
	if err := writeFrames(filepath.Join(dir, framesFile), frames); err != nil {
		return err
	}
	return writeSeries(filepath.Join(dir, metricsFile), series)
}

// finiteMetrics drops values JSON cannot carry. A run with any non-finite
// metric is marked diverged.
func finiteMetrics(values map[string]float64, diverged bool) (map[string]float64, bool) {
	out := make(map[string]float64, len(values))
	for name, v := range values {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			diverged = true
			continue
		}
		out[name] = v
	}
	return out, diverged
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

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// writeFrames stores one row per atom per frame. Trajectories dominate run
// size, so the stream is zstd compressed.
func writeFrames(path string, frames []Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return err
	}
	if err := writeFrameRows(enc, frames); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func writeFrameRows(out io.Writer, frames []Frame) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"step", "atom", "symbol", "x", "y", "z", "anchored"}); err != nil {
		return err
	}
	for _, fr := range frames {
		for _, a := range fr.Atoms {
			row := []string{
				strconv.Itoa(fr.Step),
				strconv.Itoa(int(a.ID)),
				a.Symbol,
				formatFloat(a.X),
				formatFloat(a.Y),
				formatFloat(a.Z),
				strconv.FormatBool(a.Anchored),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

func writeSeries(path string, series Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	names := series.names()
	if err := w.Write(append([]string{"step"}, names...)); err != nil {
		return err
	}
	for i, step := range series.Steps {
		row := []string{strconv.Itoa(step)}
		for _, name := range names {
			vals := series.Values[name]
			if i < len(vals) {
				row = append(row, formatFloat(vals[i]))
			} else {
				row = append(row, "0")
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, oldest first.
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
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			s.log.Debugf("skipping %s: %v", entry.Name(), err)
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoRun, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// readCSV reads a whole CSV file, decompressing .zst files on the way.
func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var in io.Reader = file
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(file)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		in = dec
	}

	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// LoadFrames reads the recorded frames of a run in step order.
func (s *Store) LoadFrames(runID string) ([]Frame, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, framesFile))
	if err != nil {
		return nil, err
	}

	frames := make([]Frame, 0)
	for i := 1; i < len(records); i++ {
		rec := records[i]
		if len(rec) < 7 {
			continue
		}
		step, err := strconv.Atoi(rec[0])
		if err != nil {
			continue
		}
		id, err := strconv.Atoi(rec[1])
		if err != nil {
			continue
		}
		var coords [3]float64
		ok := true
		for j := range coords {
			coords[j], err = strconv.ParseFloat(rec[3+j], 64)
			if err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		anchored, _ := strconv.ParseBool(rec[6])

		if len(frames) == 0 || frames[len(frames)-1].Step != step {
			frames = append(frames, Frame{Step: step})
		}
		last := &frames[len(frames)-1]
		last.Atoms = append(last.Atoms, AtomState{
			ID:       molecule.AtomID(id),
			Symbol:   rec[2],
			X:        coords[0],
			Y:        coords[1],
			Z:        coords[2],
			Anchored: anchored,
		})
	}
	return frames, nil
}

// LoadSeries reads the sampled metric values of a run.
func (s *Store) LoadSeries(runID string) (Series, error) {
	series := Series{Values: make(map[string][]float64)}
	records, err := readCSV(filepath.Join(s.baseDir, runID, metricsFile))
	if err != nil {
		return series, err
	}
	if len(records) == 0 {
		return series, nil
	}

	header := records[0]
	for i := 1; i < len(records); i++ {
		rec := records[i]
		if len(rec) != len(header) {
			continue
		}
		step, err := strconv.Atoi(rec[0])
		if err != nil {
			continue
		}
		series.Steps = append(series.Steps, step)
		for j := 1; j < len(header); j++ {
			val, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				val = 0
			}
			series.Values[header[j]] = append(series.Values[header[j]], val)
		}
	}
	return series, nil
}
