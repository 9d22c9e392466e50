/*

Rateshift tests every alignment site for a shift of the substitution
rate between foreground and background branches of a tree.

Options are given as key=value pairs, or in an option file:

	rateshift param=rateshift.bpp foreground_branches=1,4-6

First, write the tree with branch ids to select the foreground
branches:

	rateshift input.sequence.file=ali.fst input.tree.file=tree.nwk output.tree_ids.file=ids.nwk

Then run the test:

	rateshift input.sequence.file=ali.fst input.tree.file=tree.nwk \
		model='HKY85(kappa=2)' rate_distribution='Gamma(n=4, alpha=0.5)' \
		foreground_branches=2,3 output.file=sites.tsv

Environment variables RATESHIFT_<KEY>, with dots replaced by
underscores, override the options.

*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"

	"github.com/op/go-logging"
	"github.com/rotisserie/eris"
	"gopkg.in/alecthomas/kingpin.v2"

	"bitbucket.org/Davydov/rateshift/config"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("rateshift")
var formatter = logging.MustStringFormatter(`%{message}`)

// modules are the loggers which follow --loglevel.
var modules = []string{"rateshift", "config", "bio", "tree", "smodel", "likelihood", "optimize", "shift", "checkpoint", "report"}

// command-line options
var (
	app = kingpin.New("rateshift", "per-site test of substitution rate shifts between foreground and background branches").Version(version)

	options = app.Arg("options", "key=value options, param=<file> reads options from a file").Strings()

	nThreads   = app.Flag("nt", "number of threads to use, 0 for all CPUs").Default("1").Int()
	cpuProfile = app.Flag("cpuprofile", "write cpu profile to file").String()
	outLogF    = app.Flag("log", "write log to a file").String()
	logLevel   = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
)

// setupLogging sets the formatter, the backend and the level of all
// the loggers. The returned function closes the log file.
func setupLogging(fn, levelName string) (func(), error) {
	logging.SetFormatter(formatter)

	closer := func() {}
	var backend *logging.LogBackend
	if fn != "" {
		f, err := os.OpenFile(fn, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return closer, eris.Wrap(err, "creating log file")
		}
		closer = func() { f.Close() }
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(levelName)
	if err != nil {
		return closer, eris.Wrap(err, "log level")
	}
	for _, m := range modules {
		logging.SetLevel(level, m)
	}
	return closer, nil
}

// execute runs the program and returns the exit code.
func execute() int {
	closeLog, err := setupLogging(*outLogF, *logLevel)
	defer closeLog()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	if *nThreads > 0 {
		runtime.GOMAXPROCS(*nThreads)
	}
	effectiveNThreads := runtime.GOMAXPROCS(0)
	log.Infof("Using threads: %d.", effectiveNThreads)

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintln(os.Stderr, eris.Wrap(err, "creating cpu profile"))
			return 1
		}
		defer f.Close()
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := config.New()
	err = opts.ParseArgs(*options)
	if err == nil {
		err = runOptions(ctx, opts, effectiveNThreads)
	}
	if err != nil {
		log.Error("Error:", err)
		fmt.Fprintln(os.Stderr, eris.ToString(err, *logLevel == "debug"))
		return 1
	}
	return 0
}

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))
	os.Exit(execute())
}
