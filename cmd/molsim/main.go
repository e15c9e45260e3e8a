package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/molsim/internal/analysis"
	"github.com/san-kum/molsim/internal/automation"
	"github.com/san-kum/molsim/internal/config"
	"github.com/san-kum/molsim/internal/editor"
	"github.com/san-kum/molsim/internal/elements"
	"github.com/san-kum/molsim/internal/experiment"
	"github.com/san-kum/molsim/internal/export"
	"github.com/san-kum/molsim/internal/logging"
	"github.com/san-kum/molsim/internal/metrics"
	"github.com/san-kum/molsim/internal/molecule"
	"github.com/san-kum/molsim/internal/optim"
	"github.com/san-kum/molsim/internal/sim"
	"github.com/san-kum/molsim/internal/storage"
	"github.com/san-kum/molsim/internal/stream"
	"github.com/san-kum/molsim/internal/viz"
)

// searchTolerance is the convergence tolerance tune and sweep fall back to
// when neither the config nor the command line sets one.
const searchTolerance = 1e-6

var (
	dataDir     string
	logLevel    string
	configFile  string
	steps       int
	seed        int64
	sampleEvery int
	tolerance   float64
	jitter      float64
	runs        int
	noSave      bool
	frameRate   int
	perFrame    int
	drawSteps   int
	outPath     string
	svgWidth    int
	svgHeight   int
	svgDir      string
	canvasSVG   bool
	theme       string
	gridFlags   []string
	tuneMetric  string
	sweepParam  string
	sweepMin    float64
	sweepMax    float64
	sweepPoints int
	trackAtom   int
	listenAddr  string
	chartPath   string
)

// main registers the molsim commands and exits with status 1 when a command
// fails. Without a subcommand it opens the preset picker.
func main() {
	rootCmd := &cobra.Command{
		Use:          "molsim",
		Short:        "molecule editor with live geometry relaxation",
		SilenceUsage: true,
		RunE:         runPicker,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", viz.ThemeLab.Name, "colour theme for terminal views")

	relaxCmd := &cobra.Command{
		Use:   "relax [preset]",
		Short: "relax a molecule and record the run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRelax,
	}
	relaxCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "maximum relaxation steps")
	relaxCmd.Flags().Int64Var(&seed, "seed", 1, "placement jitter seed")
	relaxCmd.Flags().IntVar(&sampleEvery, "sample-every", config.DefaultSampleEvery, "steps between recorded frames")
	relaxCmd.Flags().Float64Var(&tolerance, "tolerance", config.DefaultTolerance, "stop once the largest force drops below this (0 disables)")
	relaxCmd.Flags().Float64Var(&jitter, "jitter", config.DefaultJitter, "half-width of the random depth given to placed atoms")
	relaxCmd.Flags().IntVar(&runs, "runs", 1, "relax this many differently seeded copies and compare them")
	relaxCmd.Flags().BoolVar(&noSave, "no-save", false, "do not record the run")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "relax a molecule in a live terminal view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().IntVar(&frameRate, "fps", config.DefaultFrameRate, "frame rate")
	liveCmd.Flags().IntVar(&perFrame, "steps-per-frame", 4, "relaxation steps per frame")
	liveCmd.Flags().Int64Var(&seed, "seed", 1, "placement jitter seed")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the metric series of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgDir, "svg", "", "also write one svg per metric into this directory")
	plotCmd.Flags().IntVar(&trackAtom, "atom", 0, "with --svg, also draw the path of this atom id")
	plotCmd.Flags().StringVar(&chartPath, "chart", "", "write every series into one chart image (png, svg or pdf by extension)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [preset]",
		Short: "relax a molecule and write it as svg",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().IntVar(&drawSteps, "relax", config.DefaultSteps, "relaxation steps before drawing (0 draws the structure as placed)")
	exportSVGCmd.Flags().Int64Var(&seed, "seed", 1, "placement jitter seed")
	exportSVGCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default <name>.svg)")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 480, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 360, "image height")
	exportSVGCmd.Flags().BoolVar(&canvasSVG, "braille", false, "export the terminal rendering instead of the vector drawing")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list starting structures",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tATOMS\tBONDS\tDESCRIPTION")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", p.Name, len(p.Atoms), len(p.Bonds), p.Description)
			}
			return w.Flush()
		},
	}

	elementsCmd := &cobra.Command{
		Use:   "elements",
		Short: "list the periodic table entries",
		RunE:  listElements,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "manage configuration files",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a default config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "molsim.yaml"
			if len(args) > 0 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Save(path, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	configCmd.AddCommand(configInitCmd)

	tuneCmd := &cobra.Command{
		Use:   "tune [preset]",
		Short: "grid search force field parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTune,
	}
	tuneCmd.Flags().StringArrayVar(&gridFlags, "grid", nil, "parameter values to try, name=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", optim.StepsMetric, "value to minimise (steps or a metric name)")
	tuneCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "maximum relaxation steps per point")
	tuneCmd.Flags().Float64Var(&tolerance, "tolerance", searchTolerance, "convergence tolerance on the largest force")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of relaxations",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "relax across a range of one force field parameter",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&sweepParam, "param", "damping", "parameter to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.0005, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0.005, "last value")
	sweepCmd.Flags().IntVar(&sweepPoints, "n", 10, "number of points")
	sweepCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "maximum relaxation steps per point")
	sweepCmd.Flags().Float64Var(&tolerance, "tolerance", searchTolerance, "convergence tolerance on the largest force")

	serveCmd := &cobra.Command{
		Use:   "serve [preset]",
		Short: "stream a relaxation to websocket clients",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&listenAddr, "addr", "localhost:8765", "listen address")
	serveCmd.Flags().IntVar(&frameRate, "fps", config.DefaultFrameRate, "frames sent per second")
	serveCmd.Flags().IntVar(&perFrame, "steps-per-frame", 4, "relaxation steps per frame")
	serveCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "relaxation steps before the stream ends")
	serveCmd.Flags().Int64Var(&seed, "seed", 1, "placement jitter seed")

	rootCmd.AddCommand(relaxCmd, liveCmd, listCmd, plotCmd, exportSVGCmd, presetsCmd, elementsCmd, configCmd, tuneCmd, scenarioCmd, sweepCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() logging.Logger {
	return logging.New(logLevel, os.Stderr)
}

// loadConfig reads the config file if given, then applies the preset
// argument and any flags set on the command line.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if len(args) > 0 {
		cfg.Preset = args[0]
		cfg.Molecule = nil
	}
	flags := cmd.Flags()
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("sample-every") {
		cfg.SampleEvery = sampleEvery
	}
	if flags.Changed("tolerance") {
		cfg.Tolerance = tolerance
	}
	if flags.Changed("jitter") {
		cfg.Jitter = jitter
	}
	if flags.Changed("fps") {
		cfg.FrameRate = frameRate
	}
	if flags.Changed("data") || configFile == "" {
		cfg.DataDir = dataDir
	}
	if flags.Changed("log-level") || configFile == "" {
		cfg.LogLevel = logLevel
	}
	logLevel = cfg.LogLevel

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runRelax(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	log := newLogger()
	table, err := elements.Default()
	if err != nil {
		return err
	}

	exp := experiment.New(cfg, table, log)
	if runs > 1 {
		return relaxEnsemble(ctx(cmd), exp, cfg)
	}
	if err := exp.Setup(); err != nil {
		return err
	}

	sol := exp.Editor().Solution()
	fmt.Printf("relaxing %s: %d atoms, %d bonds, up to %d steps\n", cfg.MoleculeSpec().Name, sol.NumAtoms(), sol.NumBonds(), cfg.Steps)

	every := max(cfg.Steps/40, 1)
	exp.GetSimulator().AddObserver(progressObserver(cfg.Steps, every))

	result, err := exp.Run(ctx(cmd))
	fmt.Println()
	if err != nil {
		return err
	}
	for _, e := range result.Errors {
		log.Errorf("%v", e)
	}

	printSummary(result.StepsTaken, result.Converged, result.Metrics, result.Series.Values)

	if noSave {
		return nil
	}
	st := storage.New(cfg.DataDir, log)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := exp.Record(st, result)
	if err != nil {
		return err
	}
	fmt.Printf("\nsaved: %s\n", runID)
	return nil
}

func ctx(cmd *cobra.Command) context.Context {
	if c := cmd.Context(); c != nil {
		return c
	}
	return context.Background()
}

func relaxEnsemble(c context.Context, exp *experiment.Experiment, cfg *config.Config) error {
	results, err := exp.RunEnsemble(c, runs)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tSTEPS\tCONVERGED\tMAX_FORCE\tSTRAIN\tSTABILITY")
	final := make([]float64, 0, len(results))
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%v\t%.3e\t%.2f%%\t%.2f\n",
			cfg.Seed+int64(i),
			r.StepsTaken,
			r.Converged,
			r.Metrics["max_force"],
			r.Metrics["bond_strain"]*100,
			r.Metrics["stability"],
		)
		final = append(final, r.Metrics["bond_strain"])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	s := metrics.Summarize(final)
	fmt.Printf("\nfinal strain: mean %.2f%% ± %.2f%%, range %.2f%%..%.2f%%\n", s.Mean*100, s.StdDev*100, s.Min*100, s.Max*100)
	return nil
}

func progressObserver(total, every int) *progress {
	return &progress{total: total, every: every}
}

type progress struct {
	total, every int
}

func (p *progress) OnStep(step int, _ *molecule.Solution, stats molecule.StepStats) {
	if step%p.every != 0 && step != p.total {
		return
	}
	frac := float64(step) / float64(p.total)
	fmt.Printf("\r%s %3.0f%%  max force %.3e", viz.ProgressBar(frac, 30), frac*100, stats.MaxForce)
}

func printSummary(stepsTaken int, converged bool, values map[string]float64, series map[string][]float64) {
	fmt.Printf("steps: %d", stepsTaken)
	if converged {
		fmt.Print(" (converged)")
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tFINAL\tMIN\tMAX\tMEAN")
	for _, name := range sortedKeys(values) {
		s := metrics.Summarize(series[name])
		fmt.Fprintf(w, "%s\t%.4g\t%.4g\t%.4g\t%.4g\n", name, values[name], s.Min, s.Max, s.Mean)
	}
	w.Flush()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	viz.SetTheme(theme)
	table, err := elements.Default()
	if err != nil {
		return err
	}

	ed, err := experiment.Build(cfg, table, cfg.Seed, logging.Nop{})
	if err != nil {
		return err
	}

	m := viz.NewModel(ed, cfg.MoleculeSpec().Name, cfg.FrameRate, perFrame)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func runPicker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	viz.SetTheme(theme)
	table, err := elements.Default()
	if err != nil {
		return err
	}

	presets := make([]viz.Preset, 0)
	for _, name := range config.ListPresets() {
		presets = append(presets, viz.Preset{Name: name, Description: config.GetPreset(name).Description})
	}
	build := func(name string) (*editor.Editor, error) {
		c := *cfg
		c.Preset, c.Molecule = name, nil
		return experiment.Build(&c, table, c.Seed, logging.Nop{})
	}

	_, err = tea.NewProgram(viz.NewPicker(presets, build, cfg.FrameRate, 4), tea.WithAltScreen()).Run()
	return err
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir, newLogger())
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tSTEPS\tATOMS\tBONDS\tSTRAIN\tTREND")

	for _, run := range runs {
		trend := ""
		if series, err := st.LoadSeries(run.ID); err == nil {
			trend = viz.Sparkline(series.Values["bond_strain"], 16)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%.2f%%\t%s\n",
			run.ID,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Atoms,
			run.Bonds,
			run.Metrics["bond_strain"]*100,
			trend,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir, newLogger())
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	if len(series.Steps) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("preset: %s\n", meta.Preset)
	fmt.Printf("samples: %d (every %d steps)\n\n", len(series.Steps), meta.SampleEvery)

	if svgDir != "" {
		if err := os.MkdirAll(svgDir, 0755); err != nil {
			return err
		}
	}

	for _, name := range sortedKeys(latest(series.Values)) {
		data := series.Values[name]
		if len(data) < 2 {
			continue
		}
		caption := strings.ReplaceAll(name, "_", " ") + " vs step"
		graph := asciigraph.Plot(data, asciigraph.Height(10), asciigraph.Width(60), asciigraph.Caption(caption))
		fmt.Println(graph)
		if rep, err := analysis.Analyze(series, name); err == nil {
			fmt.Printf("decay %.3g/step, half-life %.4g steps", rep.DecayRate, rep.HalfLife)
			if rep.Ringing {
				fmt.Printf(", ringing every %.4g steps (%.0f%% of power)", rep.Period, 100*rep.Share)
			}
			fmt.Println()
		}
		fmt.Println()

		if svgDir != "" {
			path := filepath.Join(svgDir, fmt.Sprintf("%s_%s.svg", runID, name))
			svg := export.SeriesToSVG(series.Steps, data, 600, 300, "#00ff88")
			if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n\n", path)
		}
	}

	if chartPath != "" {
		if err := export.SeriesToChart(chartPath, meta.ID, series.Steps, series.Values, 640, 400); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", chartPath)
	}

	if svgDir != "" && trackAtom > 0 {
		return writeTrajectory(st, runID, molecule.AtomID(trackAtom))
	}
	return nil
}

func writeTrajectory(st *storage.Store, runID string, atom molecule.AtomID) error {
	frames, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}
	path := analysis.Trajectory(frames, atom)
	if len(path) < 2 {
		return fmt.Errorf("atom %d has fewer than two recorded positions", atom)
	}
	points := make([]export.Point, len(path))
	for i, p := range path {
		points[i] = export.Point{X: p.X, Y: p.Y}
	}
	out := filepath.Join(svgDir, fmt.Sprintf("%s_atom%d.svg", runID, atom))
	if err := os.WriteFile(out, []byte(export.TrajectoryToSVG(points, 400, 400, "#ff8800")), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", out)
	return nil
}

func latest(values map[string][]float64) map[string]float64 {
	out := make(map[string]float64, len(values))
	for name, vals := range values {
		if len(vals) > 0 {
			out[name] = vals[len(vals)-1]
		}
	}
	return out
}

func exportSVG(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	table, err := elements.Default()
	if err != nil {
		return err
	}

	ed, err := experiment.Build(cfg, table, cfg.Seed, newLogger())
	if err != nil {
		return err
	}
	sol := ed.Solution()
	for i := 0; i < drawSteps; i++ {
		sol.SimulationStep()
	}

	name := cfg.MoleculeSpec().Name
	if outPath == "" {
		outPath = name + ".svg"
	}

	var svg string
	if canvasSVG {
		canvas := viz.NewCanvas(svgWidth/8, svgHeight/16)
		cam := viz.NewCamera()
		cam.Fit(sol)
		viz.RenderSolution(canvas, sol, cam, 0)
		svg = export.CanvasToSVG(canvas, 4)
	} else {
		svg = export.SolutionToSVG(sol, svgWidth, svgHeight)
	}

	if err := os.WriteFile(outPath, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d atoms, %d bonds, %d steps)\n", outPath, sol.NumAtoms(), sol.NumBonds(), drawSteps)
	return nil
}

func listElements(cmd *cobra.Command, args []string) error {
	table, err := elements.Default()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Z\tSYMBOL\tNAME\tMASS\tRADIUS\tBONDS")
	for _, e := range table.Elements() {
		orders := make([]string, 0, 3)
		for _, o := range table.Orders() {
			if n := len(table.Partners(e.Symbol, o)); n > 0 {
				orders = append(orders, fmt.Sprintf("%s:%d", strings.ToLower(o.String())[:1], n))
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.3f\t%.2f\t%s\n", e.AtomicNumber, e.Symbol, e.Name, e.Mass, e.Radius, strings.Join(orders, " "))
	}
	return w.Flush()
}

// parseGrid turns name=v1,v2 flags into parameter names and value ranges.
func parseGrid(flags []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(flags))
	ranges := make([][]float64, 0, len(flags))
	for _, f := range flags {
		name, list, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, nil, fmt.Errorf("invalid grid %q, want name=v1,v2", f)
		}
		var values []float64
		for _, field := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid value in grid %q: %w", f, err)
			}
			values = append(values, v)
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.Tolerance == 0 {
		cfg.Tolerance = searchTolerance
	}
	if len(gridFlags) == 0 {
		return fmt.Errorf("at least one --grid is required")
	}
	names, ranges, err := parseGrid(gridFlags)
	if err != nil {
		return err
	}
	gs, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	table, err := elements.Default()
	if err != nil {
		return err
	}

	build := func(params map[string]float64) (*experiment.Experiment, error) {
		pointCfg, err := experiment.WithParams(cfg, params)
		if err != nil {
			return nil, err
		}
		return experiment.New(pointCfg, table, nil), nil
	}

	fmt.Printf("tuning %s over %d points (minimising %s)\n", cfg.MoleculeSpec().Name, gs.Size(), tuneMetric)
	best, score, err := gs.Search(ctx(cmd), build, tuneMetric)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARAMETER\tVALUE")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%g\n", name, best[name])
	}
	fmt.Fprintf(w, "%s\t%g\n", tuneMetric, score)
	return w.Flush()
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	log := newLogger()
	table, err := elements.Default()
	if err != nil {
		return err
	}
	st := storage.New(cfg.DataDir, log)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("scenario %s: %s\n", scenario.Name, scenario.Description)
	outcomes, err := automation.NewRunner(cfg, table, st, log).RunScenario(ctx(cmd), scenario)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tMOLECULE\tSTEPS\tCONVERGED\tSTRAIN\tRUN")
	for _, o := range outcomes {
		fmt.Fprintf(w, "%d\t%s\t%d\t%v\t%.4f\t%s\n", o.Step, o.Preset, o.Result.StepsTaken, o.Result.Converged, o.Result.Metrics["bond_strain"], o.RunID)
	}
	if ferr := w.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.Tolerance == 0 {
		cfg.Tolerance = searchTolerance
	}
	table, err := elements.Default()
	if err != nil {
		return err
	}

	sweep := &automation.ParameterSweep{
		Preset:    cfg.Preset,
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepPoints,
	}
	if cfg.Molecule != nil {
		sweep.Preset = ""
	}
	results, err := automation.NewRunner(cfg, table, nil, newLogger()).RunSweep(ctx(cmd), sweep)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSTEPS\tCONVERGED\tSTABLE\tSTRAIN\tMAX FORCE\n", strings.ToUpper(sweepParam))
	taken := make([]float64, 0, len(results))
	for _, r := range results {
		fmt.Fprintf(w, "%.4g\t%d\t%v\t%v\t%.4f\t%.3g\n", r.ParamValue, r.StepsTaken, r.Converged, r.Stable, r.FinalStrain, r.MaxForce)
		taken = append(taken, float64(r.StepsTaken))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(taken) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(taken,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Caption("steps taken vs "+sweepParam),
		))
	}
	return nil
}

// runServe relaxes at the given frame rate and sends every frame to the
// connected clients. The server stays up after the relaxation ends until
// interrupted.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	log := newLogger()
	table, err := elements.Default()
	if err != nil {
		return err
	}
	exp := experiment.New(cfg, table, log)
	if err := exp.Setup(); err != nil {
		return err
	}
	name := cfg.MoleculeSpec().Name
	sol := exp.Editor().Solution()

	c, stop := signal.NotifyContext(ctx(cmd), os.Interrupt)
	defer stop()

	hub := stream.NewHub(log)
	defer hub.Close()
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Addr: listenAddr, Handler: mux}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	log.Infof("streaming %s on ws://%s/ws", name, listenAddr)

	ticker := time.NewTicker(time.Second / time.Duration(cfg.FrameRate))
	defer ticker.Stop()
	every := max(perFrame, 1)

	runCfg := sim.Config{Steps: cfg.Steps, SampleEvery: every, ValidateState: true}
	err = exp.GetSimulator().RunWithCallback(c, runCfg, func(step int, stats molecule.StepStats) bool {
		if step%every != 0 {
			return true
		}
		select {
		case <-ticker.C:
		case <-c.Done():
			return false
		}
		if !hub.TryPublish(stream.FrameMessage(name, step, sol, stats)) {
			log.Debugf("frame %d dropped", step)
		}
		return true
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("relaxation stopped: %v", err)
	}
	hub.TryPublish(stream.Message{Type: "done", Name: name})

	select {
	case <-c.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(shutdown)
}
