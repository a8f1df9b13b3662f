// Command stopmotion runs a stop-motion capture station.
//
// The interactive session shows the live camera preview or the frame under
// the cursor with a status bar below it, and is driven entirely from the
// keyboard. The same session can be driven headlessly from a YAML script.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/teranos/stopmotion"
	"github.com/teranos/stopmotion/camera"
)

var Version = "dev"

var flags struct {
	config   string
	root     string
	camera   string
	logLevel string

	script    string
	shots     string
	baseline  string
	tolerance float64
	report    string
	width     int
	height    int

	yes bool
}

var rootCmd = &cobra.Command{
	Use:   "stopmotion",
	Short: "Stop-motion capture station",
	Long: `stopmotion drives a camera to take sequential stills, previews them as an
image sequence and lets the operator scrub, delete, undo and export the frames.

Frames are kept as one PNG per frame: img/ holds the working copies,
img_hires/ the full-resolution stills and export/ the renumbered export.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSession,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a capture session (default)",
	RunE:  runSession,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the frames in the working directory",
	RunE:  runList,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every frame in the working directory",
	RunE:  runExport,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every frame from disk",
	RunE:  runReset,
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List the camera backends built into this binary",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range camera.Backends() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "",
		"YAML configuration file (missing file uses defaults)")
	rootCmd.PersistentFlags().StringVarP(&flags.root, "root", "r", "",
		"Installation root holding img/, img_hires/ and export/")
	rootCmd.PersistentFlags().StringVar(&flags.camera, "camera", "",
		"Camera backend (see 'stopmotion backends')")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "",
		"Log level: debug, info, warn, error")

	for _, cmd := range []*cobra.Command{rootCmd, runCmd} {
		cmd.Flags().StringVarP(&flags.script, "script", "s", "",
			"Run a YAML key script headlessly instead of the interactive session")
		cmd.Flags().StringVar(&flags.shots, "shots", "",
			"Directory for view shots taken by the script")
		cmd.Flags().StringVar(&flags.baseline, "baseline", "",
			"Compare script shots against baselines in this directory")
		cmd.Flags().Float64Var(&flags.tolerance, "tolerance", stopmotion.DefaultShotTolerance,
			"Share of pixels a shot may differ from its baseline")
		cmd.Flags().StringVar(&flags.report, "report", "",
			"Write an HTML report of the scripted run under this directory")
		cmd.Flags().IntVar(&flags.width, "width", 80, "Terminal width for scripted runs")
		cmd.Flags().IntVar(&flags.height, "height", 24, "Terminal height for scripted runs")
	}
	resetCmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Confirm deleting every frame")

	rootCmd.AddCommand(runCmd, listCmd, exportCmd, resetCmd, backendsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "stopmotion:", err)
		os.Exit(1)
	}
}

// loadConfig applies command-line overrides on top of the configuration file.
func loadConfig() (stopmotion.Config, error) {
	cfg, err := stopmotion.LoadConfig(flags.config)
	if err != nil {
		return cfg, err
	}
	if flags.root != "" {
		root, err := filepath.Abs(flags.root)
		if err != nil {
			return cfg, err
		}
		cfg.Root = root
	}
	if flags.camera != "" {
		cfg.Camera = flags.camera
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	return cfg, cfg.Validate()
}

// openLog appends to the session log so the terminal stays free for the UI.
func openLog(cfg stopmotion.Config) (*slog.Logger, func(), error) {
	path := cfg.LogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: cfg.Level()}))
	return logger, func() { f.Close() }, nil
}

func setup() (stopmotion.Config, *slog.Logger, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, nil, nil, err
	}
	logger, closeLog, err := openLog(cfg)
	if err != nil {
		return cfg, nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, closeLog, nil
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, logger, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	cam, err := camera.Open(cfg.Camera, cfg.CameraSettings(), logger)
	if err != nil {
		return err
	}

	session, err := stopmotion.Open(cfg, cfg.NewStore(logger), cam, logger)
	if session == nil {
		cam.Close()
		return err
	}
	defer session.Close()
	if err != nil {
		logger.Warn("main: preview did not start", "error", err)
	}

	model := stopmotion.NewModel(session, logger)

	if flags.script != "" {
		return runScript(cmd, model)
	}

	logger.Info("main: starting interactive session", "version", Version, "root", cfg.Root)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run session: %w", err)
	}
	return nil
}

func runScript(cmd *cobra.Command, model *stopmotion.Model) error {
	script, err := stopmotion.ReadScript(flags.script)
	if err != nil {
		return err
	}

	config := stopmotion.DefaultDirectorConfig()
	config.Width = flags.width
	config.Height = flags.height
	config.ShotsDir = flags.shots
	config.BaselineDir = flags.baseline
	config.Tolerance = flags.tolerance
	if config.ShotsDir == "" && (flags.baseline != "" || flags.report != "") {
		config.ShotsDir = filepath.Join(os.TempDir(), "stopmotion-shots")
	}

	result := stopmotion.NewDirector(model, config).Start().Run(script).Stop()

	out := cmd.OutOrStdout()
	for _, a := range result.Actions {
		fmt.Fprintf(out, "%-8s %-12s %s\n", a.Type, a.Details, a.Result)
	}

	if flags.report != "" {
		name := script.Name
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(flags.script), filepath.Ext(flags.script))
		}
		path, err := stopmotion.WriteReport(flags.report, name, result)
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		if _, err := stopmotion.WriteIndex(flags.report); err != nil {
			return fmt.Errorf("write report index: %w", err)
		}
		fmt.Fprintln(out, "report:", path)
	}
	if !result.Success {
		fmt.Fprint(out, result.TripReport)
		return fmt.Errorf("script %s: %s", filepath.Base(flags.script), result.ErrorMessage)
	}
	fmt.Fprintf(out, "script finished in %s\n", result.Duration.Round(1e6))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store := cfg.NewStore(nil)
	paths, err := store.Frames()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, p := range paths {
		mark := " "
		if _, err := os.Stat(store.ArchivePath(p)); err != nil {
			mark = "!"
		}
		fmt.Fprintf(out, "%s %4d  %s\n", mark, i, filepath.Base(p))
	}
	fmt.Fprintf(out, "%d frames in %s\n", len(paths), store.WorkingDir())
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, logger, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	store := cfg.NewStore(logger)
	if err := store.EnsureDirs(); err != nil {
		return err
	}
	paths, err := store.Frames()
	if err != nil {
		return err
	}
	frames := make([]stopmotion.Frame, len(paths))
	for i, p := range paths {
		frames[i] = stopmotion.Frame{Name: filepath.Base(p), Path: p, ArchivePath: store.ArchivePath(p)}
	}

	report, err := stopmotion.Export(store, frames, logger)
	out := cmd.OutOrStdout()
	for _, t := range report.Failed {
		fmt.Fprintln(out, "skipped:", t.Error())
	}
	fmt.Fprintf(out, "exported %d of %d frames to %s\n", len(report.Written), len(frames), store.ExportDir())
	return err
}

func runReset(cmd *cobra.Command, args []string) error {
	if !flags.yes {
		return fmt.Errorf("reset deletes every frame on disk, pass --yes to confirm")
	}
	cfg, logger, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	store := cfg.NewStore(logger)
	if err := store.Wipe(store.WorkingDir(), store.ArchiveDir(), store.ExportDir()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "all frames deleted")
	return nil
}
