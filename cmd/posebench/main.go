// Package main runs pose estimators against synthetic scenes or real images.
package main

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"gopkg.in/natefinch/lumberjack.v2"

	"go.viam.com/posebench/config"
	"go.viam.com/posebench/logging"
	"go.viam.com/posebench/rimage"
	"go.viam.com/posebench/vision/poseestimation"
	"go.viam.com/posebench/vision/poseestimation/benchmark"
)

const (
	// Flags.
	flagConfig       = "config"
	flagEstimator    = "estimator"
	flagPoints       = "points"
	flagGrid         = "grid"
	flagPlot         = "plot"
	flagDumpDir      = "dump-dir"
	flagDebug        = "debug"
	flagSeed         = "seed"
	flagWorkers      = "workers"
	flagHeading      = "heading"
	flagTargetWidth  = "target-width"
	flagTargetHeight = "target-height"
	flagHistogram    = "histogram"
	flagLogFile      = "log-file"
)

// log files rotate at logFileMaxSizeMB megabytes.
const (
	logFileMaxSizeMB  = 64
	logFileMaxBackups = 3
)

func main() {
	if err := realMain(os.Args, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func realMain(args []string, out, errOut io.Writer) error {
	return newApp(out, errOut).Run(args)
}

func newApp(out, errOut io.Writer) *cli.App {
	debugFlag := &cli.BoolFlag{
		Name:    flagDebug,
		Aliases: []string{"vvv"},
		Usage:   "enable debug logging",
	}
	dumpDirFlag := &cli.StringFlag{
		Name:  flagDumpDir,
		Usage: "write every intermediate image to `DIR`",
	}
	logFileFlag := &cli.StringFlag{
		Name:  flagLogFile,
		Usage: "also write logs to `FILE`, rotating it as it grows",
	}
	app := &cli.App{
		Name:           "posebench",
		Usage:          "estimate and benchmark camera rig poses from a planar fiducial",
		Writer:         out,
		ErrWriter:      errOut,
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list the registered estimators",
				Action: listAction,
			},
			{
				Name:  "run",
				Usage: "sweep estimators over a grid of synthetic scenes",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "load configuration from `FILE`",
					},
					&cli.StringSliceFlag{
						Name:  flagEstimator,
						Usage: "estimator `MODEL[:imu]` to run, replacing the configured list",
					},
					&cli.BoolFlag{
						Name:  flagPoints,
						Usage: "hand projected corners to the estimators instead of rendered images",
					},
					&cli.BoolFlag{
						Name:  flagGrid,
						Usage: "print every sample, not just the summary",
					},
					&cli.StringFlag{
						Name:  flagPlot,
						Usage: "save a position error plot to `FILE`",
					},
					&cli.Int64Flag{
						Name:  flagSeed,
						Usage: "noise seed",
					},
					&cli.IntFlag{
						Name:  flagWorkers,
						Usage: "estimators to run at once, 0 for all",
					},
					&cli.IntFlag{
						Name:  flagHistogram,
						Usage: "print a position error histogram with `N` bins per estimator",
					},
					dumpDirFlag,
					logFileFlag,
					debugFlag,
				},
				Action: runAction,
			},
			{
				Name:      "estimate",
				Usage:     "estimate the rig pose from one image per eye",
				ArgsUsage: "<image> [image]...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagEstimator,
						Usage:    "estimator `MODEL[:imu]`",
						Required: true,
					},
					&cli.Float64Flag{
						Name:  flagHeading,
						Usage: "IMU heading in radians",
					},
					&cli.Float64Flag{
						Name:  flagTargetWidth,
						Usage: "target width in metres",
						Value: 0.5,
					},
					&cli.Float64Flag{
						Name:  flagTargetHeight,
						Usage: "target height in metres",
						Value: 0.5,
					},
					dumpDirFlag,
					logFileFlag,
					debugFlag,
				},
				Action: estimateAction,
			},
		},
	}
	return app
}

// newLogger logs to the app's error writer and, with --log-file, to a rotating file. The returned
// func flushes and closes both.
func newLogger(c *cli.Context) (logging.Logger, func() error) {
	logger := logging.NewBlankLogger("posebench")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	logger.SetLevel(logging.INFO)
	if c.Bool(flagDebug) {
		logger.SetLevel(logging.DEBUG)
	}
	path := c.String(flagLogFile)
	if path == "" {
		return logger, logger.Sync
	}
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logFileMaxSizeMB,
		MaxBackups: logFileMaxBackups,
	}
	logger.AddAppender(logging.NewWriterAppender(file))
	return logger, func() error {
		return multierr.Combine(logger.Sync(), file.Close())
	}
}

// setLevel applies a configured level unless --debug already lowered it.
func setLevel(c *cli.Context, logger logging.Logger, level string) error {
	if c.Bool(flagDebug) {
		return nil
	}
	lvl, err := logging.LevelFromString(level)
	if err != nil {
		return err
	}
	logger.SetLevel(lvl)
	return nil
}

func debugSink(dir string, logger logging.Logger) (rimage.DebugImageSink, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "cannot create %s", dir)
	}
	return rimage.NewDirectoryDebugSink(dir, logger), nil
}

func listAction(c *cli.Context) error {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Model", "Name", "Eyes", "Description"})
	for _, model := range poseestimation.Models() {
		est, err := poseestimation.New(model, false)
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{model, est.Name(), len(est.Cameras()), est.Description()})
	}
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
}

func runAction(c *cli.Context) (err error) {
	logger, closeLog := newLogger(c)
	defer func() {
		err = multierr.Combine(err, closeLog())
	}()

	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		cfg, err = config.Read(path, logger)
		if err != nil {
			return err
		}
	}
	if models := c.StringSlice(flagEstimator); len(models) > 0 {
		cfg.Estimators = nil
		for _, m := range models {
			ec, err := config.ParseEstimator(m)
			if err != nil {
				return err
			}
			cfg.Estimators = append(cfg.Estimators, ec)
		}
	}
	if c.IsSet(flagSeed) {
		cfg.Seed = c.Int64(flagSeed)
	}
	if c.IsSet(flagWorkers) {
		cfg.Workers = c.Int(flagWorkers)
	}
	if c.IsSet(flagDumpDir) {
		cfg.Diagnostics.DumpDir = c.String(flagDumpDir)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := setLevel(c, logger, cfg.Diagnostics.Level); err != nil {
		return err
	}

	opts := []benchmark.Option{benchmark.WithLogger(logger)}
	sink, err := debugSink(cfg.Diagnostics.DumpDir, logger)
	if err != nil {
		return err
	}
	if sink != nil {
		opts = append(opts, benchmark.WithDebugSink(sink))
	}
	if c.Bool(flagPoints) {
		opts = append(opts, benchmark.WithPointsOnly())
	}

	results, err := benchmark.NewRunner(cfg, opts...).Run(c.Context)
	if err != nil {
		return err
	}
	if c.Bool(flagGrid) {
		for _, r := range results {
			fmt.Fprintln(c.App.Writer, benchmark.SamplesTable(r))
		}
	}
	if bins := c.Int(flagHistogram); bins > 0 {
		for _, r := range results {
			if err := benchmark.ErrorHistogram(c.App.Writer, r, bins); err != nil {
				return err
			}
		}
	}
	fmt.Fprintln(c.App.Writer, benchmark.SummaryTable(results))
	if path := c.String(flagPlot); path != "" {
		if err := benchmark.WritePlot(results, path); err != nil {
			return err
		}
		logger.Infow("wrote plot", "path", path)
	}
	return nil
}

func estimateAction(c *cli.Context) (err error) {
	logger, closeLog := newLogger(c)
	defer func() {
		err = multierr.Combine(err, closeLog())
	}()

	ec, err := config.ParseEstimator(c.String(flagEstimator))
	if err != nil {
		return err
	}
	est, err := poseestimation.New(ec.Model, ec.UseIMU)
	if err != nil {
		return err
	}
	if c.NArg() != len(est.Cameras()) {
		return errors.Errorf("%s needs %d images, got %d", est.Name(), len(est.Cameras()), c.NArg())
	}
	images := make([]image.Image, c.NArg())
	for i, path := range c.Args().Slice() {
		img, err := rimage.ReadImageFromFile(path)
		if err != nil {
			return err
		}
		images[i] = img
	}
	sink, err := debugSink(c.String(flagDumpDir), logger)
	if err != nil {
		return err
	}

	target := poseestimation.TargetGeometry(c.Float64(flagTargetWidth), c.Float64(flagTargetHeight))
	pose, err := poseestimation.PoseFromImages(est, c.Float64(flagHeading), target, images,
		poseestimation.Diagnostics{Logger: logger, Sink: sink})
	if err != nil {
		return err
	}
	scene := benchmark.SceneFromPose(pose)
	fmt.Fprintf(c.App.Writer, "heading %.4f x %.3f y %.3f z %.3f range %.3f bearing %.4f\n",
		scene.Pan, scene.X, scene.Y, scene.Z, scene.Range(), scene.RelativeBearing())
	return nil
}
