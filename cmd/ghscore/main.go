// Command ghscore ranks GitHub repositories by pull requests opened and commits
// pushed across a set of GH Archive hourly files
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ghscore/internal/adapters/ingest/gharchive"
	"ghscore/internal/core/report"
	"ghscore/internal/core/version"
	"ghscore/internal/modkit"
	"ghscore/internal/modkit/module"
	"ghscore/internal/platform/config"
	perr "ghscore/internal/platform/errors"
	"ghscore/internal/platform/logger"
	"ghscore/internal/platform/metrics"

	aggdomain "ghscore/internal/services/aggregate/domain"
	aggmod "ghscore/internal/services/aggregate/module"

	"github.com/google/uuid"
)

// exit codes
const (
	exitOK          = 0
	exitConfig      = 1
	exitAllFailed   = 2
	exitInterrupted = 130
)

// flagEnv maps flags onto the env keys the aggregate module reads
var flagEnv = map[string]string{
	"workers":   "CORE_AGGREGATE_WORKERS",
	"timeout":   "CORE_AGGREGATE_RUN_TIMEOUT",
	"threshold": "CORE_AGGREGATE_THRESHOLD",
	"top":       "CORE_AGGREGATE_TOP",
	"codec":     "CORE_INGEST_CODEC",
}

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("ghscore", flag.ContinueOnError)
	var (
		fDir     = fs.String("dir", ".", "directory holding the archive files")
		fPrefix  = fs.String("prefix", "", "only files whose name starts with this, e.g. 2022-08-01")
		fExt     = fs.String("ext", "gz", "required file extension")
		_        = fs.Int("threshold", report.DefaultThreshold, "minimum prs opened + pushes + commits to be listed")
		_        = fs.Int("top", report.DefaultTop, "number of repositories listed; 0 lists all")
		_        = fs.Int("workers", 0, "files processed in parallel; 0 uses GOMAXPROCS")
		_        = fs.Duration("timeout", 0, "budget for the whole run; 0 means none")
		_        = fs.String("codec", gharchive.CodecGzip, "decompressor: "+strings.Join(gharchive.Codecs(), " | "))
		fFormat  = fs.String("format", "text", "report format: text | json")
		fVersion = fs.Bool("version", false, "print version and exit")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitConfig
	}

	if *fVersion {
		bi := version.Info()
		_, _ = fmt.Fprintf(stdout, "%s %s (%s, %s)\n", bi.Service, bi.Version, bi.Commit, bi.Date)
		return exitOK
	}

	l := logger.Get()

	if *fFormat != "text" && *fFormat != "json" {
		l.Error().Str("format", *fFormat).Msg("ghscore: -format must be text or json")
		return exitConfig
	}

	// Surface explicit flags to the module, which reads FromConfig
	fs.Visit(func(f *flag.Flag) {
		if key, ok := flagEnv[f.Name]; ok {
			mustSetEnv(key, f.Value.String())
		}
	})

	deps := modkit.Deps{
		Cfg:     config.New(),
		Log:     *l,
		Metrics: metrics.New(),
	}
	agg, err := aggmod.New(deps)
	if err != nil {
		l.Error().Err(err).Msg("ghscore: invalid configuration")
		return exitConfig
	}
	module.Register(agg.Name(), agg.Ports())
	runner := module.MustPortsOf[aggdomain.RunnerPort](agg)

	paths, err := gharchive.SelectFiles(*fDir, *fPrefix, *fExt)
	if err != nil {
		l.Error().Err(err).Msg("ghscore: cannot list input files")
		return exitConfig
	}
	if len(paths) == 0 {
		l.Error().Str("dir", *fDir).Str("prefix", *fPrefix).Str("ext", *fExt).Msg("ghscore: no files matched")
		return exitConfig
	}

	runID := uuid.NewString()
	ctx = logger.WithRun(ctx, runID)

	start := time.Now()
	st, rep, runErr := runner.Run(ctx, paths)

	t := rep.Totals()
	sum := report.Summary{
		RunID:           runID,
		Selected:        len(paths),
		Skipped:         rep.Skipped,
		Files:           t.Files,
		FilesFailed:     t.Failed,
		Lines:           t.Lines,
		Unclassified:    t.Unclassified,
		BadLines:        t.BadLines,
		Bytes:           t.Bytes,
		CompressedBytes: t.CompressedBytes,
		Repos:           st.Len(),
		NameConflicts:   st.NameConflicts(),
		Elapsed:         time.Since(start),
	}
	if hours := rep.Hours(); len(hours) > 0 {
		sum.Hours = len(hours)
		sum.FirstHour = hours[0].String()
		sum.LastHour = hours[len(hours)-1].String()
	}
	rows := report.Rank(st, agg.Options().Report())

	render := report.Render
	if *fFormat == "json" {
		render = report.RenderJSON
	}
	if err := render(stdout, rows, sum); err != nil {
		l.Error().Err(err).Msg("ghscore: writing report failed")
	}

	switch {
	case perr.IsCode(runErr, perr.ErrorCodeCanceled):
		logger.C(ctx).Warn().Int("skipped", rep.Skipped).Msg("ghscore: interrupted, report is partial")
		return exitInterrupted
	case perr.IsCode(runErr, perr.ErrorCodeUnavailable):
		logger.C(ctx).Error().Err(runErr).Int("skipped", rep.Skipped).Msg("ghscore: run budget exceeded, report is partial")
		return exitAllFailed
	case runErr != nil:
		logger.C(ctx).Error().Err(runErr).Msg("ghscore: run failed")
		return exitAllFailed
	case rep.AllFailed():
		logger.C(ctx).Error().Int("files", t.Files).Msg("ghscore: every file failed")
		return exitAllFailed
	}
	return exitOK
}
