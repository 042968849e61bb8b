// rcc compiles serialized R bytecode fixtures into SSA control-flow graphs
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/VictoriaMetrics/metrics"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/PRL-PRG/r-compile-server-sub002/bc"
	"github.com/PRL-PRG/r-compile-server-sub002/compiler"
	"github.com/PRL-PRG/r-compile-server-sub002/config"
	"github.com/PRL-PRG/r-compile-server-sub002/ir"
	"github.com/PRL-PRG/r-compile-server-sub002/report"
)

var log = commonlog.GetLogger("rcompile.rcc")

func main() {
	configDir := flag.String("config", ".", "Directory to search (upwards) for "+config.FileName)
	verbose := flag.Int("v", -1, "Log verbosity (overrides the config file)")
	verify := flag.Bool("verify", false, "Verify every graph and fail on any problem")
	disasm := flag.Bool("disasm", false, "Print the bytecode before the graph")
	history := flag.String("history", "", "Directory to write per-fixture edit histories (CBOR)")
	reportDB := flag.String("report", "", "SQLite database to record results in (overrides the config file)")
	metricsFile := flag.String("metrics", "", "File to write Prometheus metrics to (overrides the config file)")
	quiet := flag.Bool("q", false, "Don't print graphs")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rcc [options] fixtures...\n\n")
		fmt.Fprintf(os.Stderr, "Compiles CBOR-encoded bytecode fixtures and prints the resulting graphs.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  rcc f.rbc                        # Print the graph of f\n")
		fmt.Fprintf(os.Stderr, "  rcc -verify -q fixtures/*.rbc    # Check a corpus\n")
		fmt.Fprintf(os.Stderr, "  rcc -report runs.db fixtures/*.rbc  # Record results\n")
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.FindAndLoad(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if *verbose >= 0 {
		cfg.Log.Verbosity = *verbose
	}
	if *verify {
		cfg.Compiler.Verify = true
	}
	if *reportDB != "" {
		cfg.Report.Database = *reportDB
	}
	if *metricsFile != "" {
		cfg.Metrics.File = *metricsFile
	}

	var logPath *string
	if cfg.Log.File != "" {
		p := cfg.Path(cfg.Log.File)
		logPath = &p
	}
	commonlog.Configure(cfg.Log.Verbosity, logPath)

	r := &runner{
		cfg:     cfg,
		opts:    cfg.CompilerOptions(),
		run:     uuid.New(),
		disasm:  *disasm,
		quiet:   *quiet,
		history: *history,
	}
	if db := cfg.Path(cfg.Report.Database); db != "" {
		r.store, err = report.Open(db)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer r.store.Close()
	}

	failed := 0
	for _, path := range flag.Args() {
		if !r.compileFile(path) {
			failed++
		}
	}

	if f := cfg.Path(cfg.Metrics.File); f != "" {
		if err := writeMetrics(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			failed++
		}
	}
	if r.store != nil {
		if counts, err := r.store.Counts(r.run); err == nil {
			log.Infof("run %s: %v", r.run, counts)
		}
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d fixtures failed\n", failed, flag.NArg())
		os.Exit(1)
	}
}

type runner struct {
	cfg     *config.Config
	opts    compiler.Options
	run     uuid.UUID
	store   *report.Store
	disasm  bool
	quiet   bool
	history string
}

// compileFile compiles one fixture and reports whether it succeeded.
func (r *runner) compileFile(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	code, err := bc.UnmarshalCode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
		return false
	}
	if code.Name == "" {
		code.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if r.disasm {
		fmt.Print(code.Disassemble())
	}

	g, err := compiler.Compile(code, r.opts)
	ok := r.handle(path, g, err)

	if r.store != nil {
		if err := r.store.Save(report.New(r.run, path, g, err)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			ok = false
		}
	}
	if r.history != "" && g != nil {
		if err := writeHistory(r.history, code.Name, g.History()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			ok = false
		}
	}
	return ok
}

func (r *runner) handle(path string, g *ir.CFG, err error) bool {
	var (
		unsupported *compiler.UnsupportedError
		internal    *compiler.InternalError
	)
	switch {
	case err == nil:
		if !r.quiet {
			fmt.Print(g.Format())
		}
		return true
	case errors.As(err, &unsupported) && r.cfg.Compiler.SoftUnsupported:
		log.Warningf("%s: %v", path, err)
		return true
	case errors.As(err, &internal):
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
		for _, p := range internal.Problems {
			fmt.Fprintf(os.Stderr, "  %s\n", p)
		}
		if g != nil {
			fmt.Fprintf(os.Stderr, "partial graph:\n%s", g.Format())
		}
		return false
	default:
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
		return false
	}
}

func writeHistory(dir, name string, h []ir.HistoryEntry) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}
	data, err := cbor.Marshal(h)
	if err != nil {
		return fmt.Errorf("encoding history of %s: %w", name, err)
	}
	file := filepath.Join(dir, strings.ReplaceAll(name, "/", "_")+".history.cbor")
	return os.WriteFile(file, data, 0o644)
}

func writeMetrics(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating metrics file: %w", err)
	}
	metrics.WritePrometheus(f, false)
	return f.Close()
}
