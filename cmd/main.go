package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-ini/ini"
	"github.com/pingcap/errors"

	"github.com/minuteman3/log-find-time/internal/logging"
	"github.com/minuteman3/log-find-time/internal/logsearch"
	"github.com/minuteman3/log-find-time/internal/sink"
)

const defaultConfigFile = ".log-find-time.ini"

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

type config struct {
	Start        string
	Stop         string
	Location     string
	CenturyPivot int
	BufferSize   int
	Advance      string
	StartPolicy  string

	Input string
	Mmap  bool

	Output      string
	Compression string
	Report      string

	Log logging.Config
}

func defaultConfig() *config {
	return &config{
		Location:     "Local",
		CenturyPivot: logsearch.DefaultCenturyPivot,
		BufferSize:   logsearch.DefaultBufferSize,
		Advance:      "scanned",
		StartPolicy:  "exact",
		Output:       sink.Stdout,
		Compression:  string(sink.None),
		Report:       "none",
		Log:          logging.DefaultConfig(),
	}
}

func printHelp(w io.Writer) {
	helpText := `
Log Find Time - Extract a time range from a large timestamp-ordered log file

Usage:
  log-find-time [flags] START STOP INPUT [OUTPUT]
  log-find-time [flags] --start=START --stop=STOP --input=INPUT

  START and STOP are in the format 'YYMMDD hh:mm:ss'.
  Use 0 for START to begin at the start of the file.
  Two digit years before the century pivot (default 69) are read as 20yy.

Flags:
  --start=TIME          Start of the range (inclusive)
  --stop=TIME           Stop of the range (the record at STOP is not copied)
  --input=FILE          Log file to search
  --output=FILE         Output file, - for stdout (default: -)
  --location=ZONE       Time zone of the log headers (default: Local)
  --century-pivot=YY    First two digit year read as 19yy (default: 69)
  --buffer-size=BYTES   Read chunk size (default: 32768)
  --advance=POLICY      Advance after a chunk without a record: scanned or stride (default: scanned)
  --start-policy=P      exact fails when START has no record, nearest uses the next record (default: exact)
  --mmap                Memory map the input file
  --compress=ALGO       Compress output: none, gzip or zstd (default: none)
  --report=FORMAT       Print a summary to stderr: none or json (default: none)
  --log-level=LEVEL     Diagnostic level: debug, info, warn, error (default: warn)
  --log-file=FILE       Also write diagnostics to a rotated file
  --config=FILE         Path to configuration file (default: ~/.log-find-time.ini)
  --help                Display this help message

Configuration file format (.ini):
  [search]
  start = 240115 09:00:00
  stop = 240115 10:00:00
  location = UTC
  century_pivot = 69
  buffer_size = 32768
  advance = scanned
  start_policy = exact

  [input]
  file = /var/log/app.log
  mmap = false

  [output]
  file = -
  compression = none
  report = none

  [log]
  level = warn
  file = /var/log/log-find-time.log
  max_size_mb = 100
  max_backups = 3
  max_age_days = 28
  compress = false

Example:
  log-find-time "240115 09:00:00" "240115 10:00:00" /var/log/app.log
  log-find-time --config=my-config.ini --output=slice.log.zst --compress=zstd
  log-find-time --location=UTC --start=0 --stop="240115 10:00:00" --input=/var/log/app.log
`
	fmt.Fprintln(w, helpText)
}

func loadConfig(path string) (*config, error) {
	cfg := defaultConfig()

	// Check if config file exists
	if _, err := os.Stat(path); err != nil {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, errors.Annotate(err, "failed to load config file")
	}

	search := iniFile.Section("search")
	cfg.Start = search.Key("start").MustString(cfg.Start)
	cfg.Stop = search.Key("stop").MustString(cfg.Stop)
	cfg.Location = search.Key("location").MustString(cfg.Location)
	cfg.CenturyPivot = search.Key("century_pivot").MustInt(cfg.CenturyPivot)
	cfg.BufferSize = search.Key("buffer_size").MustInt(cfg.BufferSize)
	cfg.Advance = search.Key("advance").In(cfg.Advance, []string{"scanned", "stride"})
	cfg.StartPolicy = search.Key("start_policy").In(cfg.StartPolicy, []string{"exact", "nearest"})

	input := iniFile.Section("input")
	cfg.Input = input.Key("file").MustString(cfg.Input)
	cfg.Mmap = input.Key("mmap").MustBool(cfg.Mmap)

	output := iniFile.Section("output")
	cfg.Output = output.Key("file").MustString(cfg.Output)
	cfg.Compression = output.Key("compression").In(cfg.Compression, []string{"none", "gzip", "zstd"})
	cfg.Report = output.Key("report").In(cfg.Report, []string{"none", "json"})

	logSection := iniFile.Section("log")
	cfg.Log.Level = logSection.Key("level").MustString(cfg.Log.Level)
	cfg.Log.File = logSection.Key("file").MustString(cfg.Log.File)
	cfg.Log.MaxSizeMB = logSection.Key("max_size_mb").MustInt(cfg.Log.MaxSizeMB)
	cfg.Log.MaxBackups = logSection.Key("max_backups").MustInt(cfg.Log.MaxBackups)
	cfg.Log.MaxAgeDays = logSection.Key("max_age_days").MustInt(cfg.Log.MaxAgeDays)
	cfg.Log.Compress = logSection.Key("compress").MustBool(cfg.Log.Compress)

	return cfg, nil
}

// parseArgs layers flags and positional arguments over the config file.
// It returns a nil config when only help was requested.
func parseArgs(args []string, stderr io.Writer) (*config, error) {
	fs := flag.NewFlagSet("log-find-time", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printHelp(stderr) }

	configFile := fs.String("config", getDefaultConfigPath(), "Path to configuration file")
	help := fs.Bool("help", false, "Display help message")
	start := fs.String("start", "", "Start of the range")
	stop := fs.String("stop", "", "Stop of the range")
	input := fs.String("input", "", "Log file to search")
	output := fs.String("output", "", "Output file")
	location := fs.String("location", "", "Time zone of the log headers")
	pivot := fs.Int("century-pivot", 0, "First two digit year read as 19yy")
	bufferSize := fs.Int("buffer-size", 0, "Read chunk size")
	advance := fs.String("advance", "", "Advance policy")
	startPolicy := fs.String("start-policy", "", "Start policy")
	useMmap := fs.Bool("mmap", false, "Memory map the input file")
	compress := fs.String("compress", "", "Output compression")
	report := fs.String("report", "", "Summary format")
	logLevel := fs.String("log-level", "", "Diagnostic level")
	logFile := fs.String("log-file", "", "Diagnostic log file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Check if help flag is set or no arguments provided
	if *help || len(args) == 0 {
		printHelp(stderr)
		return nil, nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// Override config with command line flags if provided
	if set["start"] {
		cfg.Start = *start
	}
	if set["stop"] {
		cfg.Stop = *stop
	}
	if set["input"] {
		cfg.Input = *input
	}
	if set["output"] {
		cfg.Output = *output
	}
	if set["location"] {
		cfg.Location = *location
	}
	if set["century-pivot"] {
		cfg.CenturyPivot = *pivot
	}
	if set["buffer-size"] {
		cfg.BufferSize = *bufferSize
	}
	if set["advance"] {
		cfg.Advance = *advance
	}
	if set["start-policy"] {
		cfg.StartPolicy = *startPolicy
	}
	if set["mmap"] {
		cfg.Mmap = *useMmap
	}
	if set["compress"] {
		cfg.Compression = *compress
	}
	if set["report"] {
		cfg.Report = *report
	}
	if set["log-level"] {
		cfg.Log.Level = *logLevel
	}
	if set["log-file"] {
		cfg.Log.File = *logFile
	}

	switch rest := fs.Args(); len(rest) {
	case 0:
	case 3, 4:
		cfg.Start, cfg.Stop, cfg.Input = rest[0], rest[1], rest[2]
		if len(rest) == 4 {
			cfg.Output = rest[3]
		}
	default:
		return nil, errors.Errorf("expected START STOP INPUT [OUTPUT], got %d arguments", len(rest))
	}

	if cfg.Start == "" || cfg.Stop == "" || cfg.Input == "" {
		return nil, errors.New("start, stop and input are required")
	}
	return cfg, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// getDefaultConfigPath returns the path to the default config file in the user's home directory
func getDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return defaultConfigFile
	}
	return filepath.Join(homeDir, defaultConfigFile)
}
