package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/pingcap/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/minuteman3/log-find-time/internal/logging"
	"github.com/minuteman3/log-find-time/internal/logsearch"
	"github.com/minuteman3/log-find-time/internal/sink"
	"github.com/minuteman3/log-find-time/internal/source"
)

type report struct {
	Input        string `json:"input"`
	Start        string `json:"start"`
	Stop         string `json:"stop"`
	StartOffset  int64  `json:"start_offset"`
	EndOffset    int64  `json:"end_offset"`
	BytesWritten int64  `json:"bytes_written"`
	Fallback     string `json:"fallback"`
	Probes       int64  `json:"probes"`
	BytesScanned int64  `json:"bytes_scanned"`
}

// run executes the command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseArgs(args, stderr)
	if err == flag.ErrHelp {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if cfg == nil {
		return exitOK
	}

	logger, err := logging.New(cfg.Log, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error setting up logging: %v\n", err)
		return exitUsage
	}
	defer func() { _ = logger.Sync() }()

	if err := extract(cfg, stdout, stderr, logger); err != nil {
		logger.Error("extraction failed", zap.Error(err))
		return exitFail
	}
	return exitOK
}

func extract(cfg *config, stdout, stderr io.Writer, logger *zap.Logger) (err error) {
	format, err := buildFormat(cfg)
	if err != nil {
		return err
	}

	start := logsearch.FromBeginning
	if strings.TrimSpace(cfg.Start) != "0" {
		start, err = format.ParseTime(cfg.Start)
		if err != nil {
			return errors.Annotate(err, "couldn't convert start time")
		}
	}
	stop, err := format.ParseTime(cfg.Stop)
	if err != nil {
		return errors.Annotate(err, "couldn't convert stop time")
	}
	if stop < start {
		return errors.Trace(logsearch.ErrStopBeforeStart)
	}

	advance, err := logsearch.ParseAdvance(cfg.Advance)
	if err != nil {
		return err
	}
	policy, err := logsearch.ParseStartPolicy(cfg.StartPolicy)
	if err != nil {
		return err
	}
	compression, err := sink.ParseCompression(cfg.Compression)
	if err != nil {
		return err
	}

	in, err := source.Open(cfg.Input, cfg.Mmap)
	if err != nil {
		return errors.Annotatef(err, "opening input %s", cfg.Input)
	}
	defer func() { err = multierr.Append(err, in.Close()) }()

	var out *sink.Writer
	if cfg.Output == "" || cfg.Output == sink.Stdout {
		out, err = sink.NewWriter(stdout, compression)
	} else {
		out, err = sink.Open(cfg.Output, compression)
	}
	if err != nil {
		return errors.Annotatef(err, "opening output %s", cfg.Output)
	}
	defer func() { err = multierr.Append(err, out.Close()) }()

	logger.Info("searching",
		zap.String("input", in.Name()),
		zap.Int64("size", in.Size()),
		zap.Bool("mmap", in.Mapped()),
	)

	e := logsearch.NewExtractor(in, in.Size(),
		logsearch.WithLogger(logger),
		logsearch.WithStartPolicy(policy),
		logsearch.WithCopyBufferSize(cfg.BufferSize),
		logsearch.WithLocatorOptions(
			logsearch.WithFormat(format),
			logsearch.WithBufferSize(cfg.BufferSize),
			logsearch.WithAdvance(advance),
		),
	)
	res, err := e.Extract(out, start, stop)
	if err != nil {
		return err
	}

	if cfg.Report == "json" {
		stats := e.Searcher().Stats()
		r := report{
			Input:        cfg.Input,
			Start:        "beginning",
			Stop:         format.FormatTime(stop),
			StartOffset:  res.StartOffset,
			EndOffset:    res.EndOffset,
			BytesWritten: res.Written,
			Fallback:     res.Fallback.String(),
			Probes:       stats.Probes,
			BytesScanned: stats.BytesScanned,
		}
		if start != logsearch.FromBeginning {
			r.Start = format.FormatTime(start)
		}
		if err := json.NewEncoder(stderr).Encode(r); err != nil {
			return errors.Annotate(err, "writing report")
		}
	}
	return nil
}

func buildFormat(cfg *config) (logsearch.Format, error) {
	format := logsearch.Format{CenturyPivot: cfg.CenturyPivot, Location: time.Local}
	switch cfg.Location {
	case "", "Local":
	default:
		loc, err := time.LoadLocation(cfg.Location)
		if err != nil {
			return format, errors.Annotatef(err, "unknown location %q", cfg.Location)
		}
		format.Location = loc
	}
	return format, nil
}
