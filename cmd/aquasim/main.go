// Package main is the entry point for the aquasim simulation CLI.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/openhydro/aquasim/internal/buildinfo"
	"github.com/openhydro/aquasim/internal/config"
	"github.com/openhydro/aquasim/internal/harness"
	"github.com/openhydro/aquasim/internal/history"
	"github.com/openhydro/aquasim/internal/scenario"
	"github.com/openhydro/aquasim/internal/simerr"

	_ "github.com/mattn/go-sqlite3"
)

// Exit codes, per spec section 6's CLI surface.
const (
	exitOK             = 0
	exitInvalidConfig  = 2
	exitWiringError    = 3
	exitCycleDetected  = 4
	exitRuntimeFailure = 5
)

func main() {
	configFlag := flag.String("config", "", "path to process-level config file (optional)")
	outFlag := flag.String("out", "", "path to write the output record (default: stdout)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if flag.NArg() == 0 {
		printUsage()
		os.Exit(exitInvalidConfig)
	}

	switch flag.Arg(0) {
	case "run-scenario":
		if flag.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "usage: aquasim run-scenario <config-path>")
			os.Exit(exitInvalidConfig)
		}
		os.Exit(runScenario(logger, *configFlag, flag.Arg(1), *outFlag))
	case "version":
		fmt.Println(buildinfo.String())
		for k, v := range buildinfo.BuildInfo() {
			fmt.Printf("  %-12s %s\n", k+":", v)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", flag.Arg(0))
		printUsage()
		os.Exit(exitInvalidConfig)
	}
}

func printUsage() {
	fmt.Println("aquasim - discrete-time hydraulic simulation engine")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run-scenario <config-path>   Run a scenario to completion")
	fmt.Println("  version                      Show version")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

// outputRecord is the structured artifact emitted at completion, per
// spec section 6.
type outputRecord struct {
	DT         float64      `json:"dt"`
	NumSteps   int          `json:"num_steps"`
	Components []string     `json:"components"`
	History    []tickRecord `json:"history"`
}

type tickRecord struct {
	Time   float64        `json:"time"`
	States map[string]any `json:"states"`
}

func runScenario(logger *slog.Logger, configPath, scenarioPath, outPath string) int {
	var procCfg *config.Config
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			logger.Error("config load failed", "path", configPath, "error", err)
			return exitInvalidConfig
		}
		procCfg = cfg
	} else {
		procCfg = config.Default()
	}

	if lvl, err := config.ParseLogLevel(procCfg.LogLevel); err == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:       lvl,
			ReplaceAttr: config.ReplaceLogLevelNames,
		}))
	}

	loader := scenario.NewLoader(logger)
	result, err := loader.LoadFile(scenarioPath)
	if err != nil {
		return reportFatal(logger, err)
	}

	if procCfg.History.SinkPath != "" {
		if err := os.MkdirAll(filepath.Dir(procCfg.History.SinkPath), 0o755); err != nil {
			logger.Error("history sink directory", "error", err)
			return exitRuntimeFailure
		}
		sink, err := history.NewSQLiteSink(procCfg.History.SinkPath)
		if err != nil {
			logger.Error("history sink open failed", "path", procCfg.History.SinkPath, "error", err)
			return exitRuntimeFailure
		}
		result.Harness.SetSink(sink, procCfg.History.FlushInterval, procCfg.History.RetainTicks)
	}

	start := time.Now()
	runErr := result.Harness.Run(result.Mode)
	elapsed := time.Since(start)

	if runErr != nil {
		code := reportFatal(logger, runErr)
		return code
	}

	logger.Info("run complete", "started", humanize.Time(start), "elapsed", elapsed, "ticks", result.Harness.NumSteps())

	record := buildOutputRecord(result.Harness)
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		logger.Error("marshal output record", "error", err)
		return exitRuntimeFailure
	}

	if outPath == "" {
		fmt.Println(string(data))
		return exitOK
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		logger.Error("write output record", "path", outPath, "error", err)
		return exitRuntimeFailure
	}
	logger.Info("output record written", "path", outPath, "bytes", humanize.Bytes(uint64(len(data))), "elapsed", elapsed)
	fmt.Println(outPath)
	return exitOK
}

func buildOutputRecord(h *harness.Harness) outputRecord {
	ids := make([]string, 0, len(h.Components()))
	for id := range h.Components() {
		ids = append(ids, id)
	}
	hist := h.History()
	ticks := make([]tickRecord, 0, len(hist))
	for _, t := range hist {
		states := make(map[string]any, len(t.States))
		for id, s := range t.States {
			states[id] = s
		}
		ticks = append(ticks, tickRecord{Time: t.Time, States: states})
	}
	return outputRecord{
		DT:         h.DT(),
		NumSteps:   h.NumSteps(),
		Components: ids,
		History:    ticks,
	}
}

// reportFatal prints a single structured error line naming the error
// kind, offending ID, and tick (spec section 7's "user-visible failure
// behavior"), and returns the matching exit code (spec section 6).
func reportFatal(logger *slog.Logger, err error) int {
	switch e := err.(type) {
	case *simerr.InvalidConfig:
		logger.Error("fatal", "kind", "InvalidConfig", "path", e.Path, "reason", e.Reason)
		return exitInvalidConfig
	case *simerr.UnknownClass:
		logger.Error("fatal", "kind", "UnknownClass", "family", e.Family, "class", e.Class)
		return exitInvalidConfig
	case *simerr.InvalidParameter:
		logger.Error("fatal", "kind", "InvalidParameter", "component", e.ComponentID, "name", e.Name, "value", e.Value, "reason", e.Reason)
		return exitInvalidConfig
	case *simerr.WiringError:
		logger.Error("fatal", "kind", "WiringError", "referrer", e.ReferrerID, "missing", e.MissingID, "context", e.Context)
		return exitWiringError
	case *simerr.CycleDetected:
		logger.Error("fatal", "kind", "CycleDetected", "remaining", e.Remaining)
		return exitCycleDetected
	case *simerr.StepFault:
		logger.Error("fatal", "kind", "StepFault", "tick", e.Tick, "component", e.ComponentID, "cause", e.Cause)
		return exitRuntimeFailure
	default:
		logger.Error("fatal", "kind", "RuntimeFailure", "error", err)
		return exitRuntimeFailure
	}
}
