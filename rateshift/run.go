package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"

	"bitbucket.org/Davydov/rateshift/bio"
	"bitbucket.org/Davydov/rateshift/checkpoint"
	"bitbucket.org/Davydov/rateshift/config"
	"bitbucket.org/Davydov/rateshift/dist"
	"bitbucket.org/Davydov/rateshift/likelihood"
	"bitbucket.org/Davydov/rateshift/optimize"
	"bitbucket.org/Davydov/rateshift/report"
	"bitbucket.org/Davydov/rateshift/shift"
	"bitbucket.org/Davydov/rateshift/smodel"
	"bitbucket.org/Davydov/rateshift/tree"
)

const (
	// boundaryEps is the relative distance to a boundary for the
	// estimated parameters check.
	boundaryEps = 1e-6
	// checkpointSeconds is the period of optimization checkpoints.
	checkpointSeconds = 30
)

// runOptions validates the options and runs the test.
func runOptions(ctx context.Context, opts *config.Options, threads int) error {
	opts.Log()
	s, err := opts.Settings()
	if err != nil {
		return err
	}
	summary, err := run(ctx, s, threads)
	if err != nil || summary == nil {
		return err
	}
	summary.Version = version
	summary.CommandLine = os.Args
	if s.JSONFile != "" {
		if err := report.WriteJSON(s.JSONFile, summary); err != nil {
			return err
		}
		log.Infof("Summary written to %s", s.JSONFile)
	}
	return nil
}

// newAlphabet creates an alphabet from a description like DNA or
// Codon(letter=DNA).
func newAlphabet(desc, gcodeName string) (*bio.Alphabet, error) {
	name, args, err := config.ParseCall(desc)
	if err != nil {
		return nil, &config.ConfigError{Key: config.KeyAlphabet, Err: err}
	}
	var gcode *bio.GeneticCode
	if strings.EqualFold(name, "codon") {
		if letter, ok := args["letter"]; ok && !strings.EqualFold(letter, "DNA") && !strings.EqualFold(letter, "RNA") {
			return nil, &config.ConfigError{Key: config.KeyAlphabet, Err: eris.Errorf("unsupported codon letter %q", letter)}
		}
		if gcode, err = bio.GeneticCodeByName(gcodeName); err != nil {
			return nil, &config.ConfigError{Key: config.KeyGeneticCode, Err: err}
		}
		log.Infof("Genetic code: %d, \"%s\"", gcode.ID, gcode.Name)
	}
	alphabet, err := bio.AlphabetByName(name, gcode)
	if err != nil {
		return nil, &config.ConfigError{Key: config.KeyAlphabet, Err: err}
	}
	log.Infof("Alphabet: %s", alphabet.Name())
	return alphabet, nil
}

// newRateDistribution creates a rate distribution from a description
// like Gamma(n=4, alpha=0.5).
func newRateDistribution(desc string) (dist.RateDistribution, error) {
	name, args, err := config.ParseCall(desc)
	if err != nil {
		return nil, &config.ConfigError{Key: config.KeyRateDistribution, Err: err}
	}
	switch strings.ToLower(name) {
	case "constant":
		return dist.NewConstant(), nil
	case "gamma":
		n, alpha := 4, 1.0
		for k, v := range args {
			switch k {
			case "n":
				n, err = strconv.Atoi(v)
			case "alpha":
				alpha, err = strconv.ParseFloat(v, 64)
			default:
				err = eris.Errorf("unknown argument %q", k)
			}
			if err != nil {
				return nil, &config.ConfigError{Key: config.KeyRateDistribution, Err: err}
			}
		}
		g, err := dist.NewGamma(n, alpha)
		if err != nil {
			return nil, &config.ConfigError{Key: config.KeyRateDistribution, Err: err}
		}
		return g, nil
	}
	return nil, &config.ConfigError{Key: config.KeyRateDistribution, Err: eris.Errorf("unknown rate distribution %q", name)}
}

// ignored returns a function matching parameters excluded from the
// optimization. BrLen matches all branch lengths, a trailing * matches
// a prefix.
func ignored(names []string) func(string) bool {
	return func(par string) bool {
		for _, n := range names {
			switch {
			case n == likelihood.BrLenPrefix && strings.HasPrefix(par, likelihood.BrLenPrefix):
				return true
			case strings.HasSuffix(n, "*") && strings.HasPrefix(par, strings.TrimSuffix(n, "*")):
				return true
			case n == par:
				return true
			}
		}
		return false
	}
}

// optimizeBase maximizes the whole-alignment likelihood over all the
// parameters which are not ignored.
func optimizeBase(tl *likelihood.TreeLikelihood, s *config.Settings, store *checkpoint.Store) (optimize.Optimizer, error) {
	o := optimize.Exclude(tl, ignored(s.Ignore))
	log.Infof("Optimizing %d parameters: %s", len(o.GetFloatParameters()), o.GetFloatParameters().NamesString())

	method := s.Optimization
	var cio *checkpoint.CheckpointIO
	if store != nil {
		cio = store.Optimization(checkpointSeconds)
		data, err := cio.GetParameters()
		if err != nil {
			return nil, err
		}
		if data != nil {
			pars := o.GetFloatParameters()
			if err := pars.SetValuesMap(data.Parameters); err != nil {
				return nil, eris.Wrap(err, "restoring parameters from checkpoint")
			}
			if data.Final {
				method = "none"
			}
		}
		o = checkpoint.Watch(o, cio)
	}

	opt, err := optimize.NewOptimizer(method, s.Tolerance)
	if err != nil {
		return nil, &config.ConfigError{Key: config.KeyOptimization, Err: err}
	}
	log.Infof("Using %s optimization.", method)
	opt.SetOptimizable(o)
	opt.SetReportPeriod(s.ReportPeriod)
	// SIGUSR2 stops the optimization keeping the best point
	opt.WatchSignals(syscall.SIGUSR2)
	if s.Profiler != "" {
		f, err := os.Create(s.Profiler)
		if err != nil {
			return nil, eris.Wrap(err, "creating optimization profiler")
		}
		defer f.Close()
		opt.SetOutput(f)
	}
	opt.Run(s.MaxEval)
	if !opt.Converged() {
		log.Warning("Whole-alignment optimization did not converge")
	}

	if cio != nil {
		err := cio.Save(&checkpoint.CheckpointData{
			Parameters: o.GetFloatParameters().ValuesMap(),
			Likelihood: opt.GetMaxL(),
			Final:      true,
		})
		if err != nil {
			return nil, err
		}
	}
	return opt, nil
}

// checkEstimated warns about parameters at their boundaries.
func checkEstimated(pars optimize.FloatParameters) {
	for _, name := range pars.AtBoundary(boundaryEps) {
		if strings.HasPrefix(name, likelihood.BrLenPrefix) {
			log.Debugf("Branch length %s is at the boundary", name)
			continue
		}
		log.Warningf("Parameter %s is at its boundary (%v)", name, pars.Get(name).Get())
	}
}

// foreground returns foreground branch ids from the settings or,
// if none are given, the branches marked with #1 in the tree.
func foreground(s *config.Settings, t *tree.Tree) []int {
	if len(s.Foreground) > 0 {
		return s.Foreground
	}
	var fg []int
	for node := range t.ClassNodes(1) {
		fg = append(fg, node.Id)
	}
	if len(fg) > 0 {
		log.Infof("Foreground branches from the tree class marks: %v", fg)
	}
	return fg
}

// writeFile creates a file with the content.
func writeFile(fn, content string) error {
	if err := os.WriteFile(fn, []byte(content), 0644); err != nil {
		return eris.Wrapf(err, "writing %s", fn)
	}
	return nil
}

// run performs the whole analysis. The summary is nil if only the
// tagged tree was written.
func run(ctx context.Context, s *config.Settings, threads int) (*report.Summary, error) {
	startTime := time.Now()

	alphabet, err := newAlphabet(s.Alphabet, s.GeneticCode)
	if err != nil {
		return nil, err
	}

	seqData, err := os.ReadFile(s.SequenceFile)
	if err != nil {
		return nil, eris.Wrap(err, "reading alignment")
	}
	seqs, err := bio.ParseFasta(bytes.NewReader(seqData))
	if err != nil {
		return nil, eris.Wrapf(err, "parsing %s", s.SequenceFile)
	}
	// gaps are encoded as unknown characters
	ali, err := bio.NewAlignment(seqs, alphabet)
	if err != nil {
		return nil, eris.Wrapf(err, "parsing %s", s.SequenceFile)
	}
	if ali.NSites() == 0 {
		return nil, eris.New("zero length alignment")
	}
	log.Infof("Read alignment of %d sequences, %d sites, %d fixed sites", ali.NSeqs(), ali.NSites(), ali.NFixed())

	treeData, err := os.ReadFile(s.TreeFile)
	if err != nil {
		return nil, eris.Wrap(err, "reading tree")
	}
	t, err := tree.ParseNewick(bytes.NewReader(treeData))
	if err != nil {
		return nil, eris.Wrapf(err, "parsing %s", s.TreeFile)
	}
	log.Debugf("intree=%s", t)
	log.Debugf("brtree=%s", t.StringBr())
	log.Debugf("tree nodes:\n%s", t.FullString())
	if !t.IsRooted() {
		log.Infof("Tree is unrooted, the root has %d children", len(t.ChildNodes()))
	}

	if s.TreeIDsFile != "" {
		log.Noticef("Writing tagged tree to %s", s.TreeIDsFile)
		return nil, writeFile(s.TreeIDsFile, t.IDString()+"\n")
	}

	name, args, err := config.ParseCall(s.Model)
	if err != nil {
		return nil, &config.ConfigError{Key: config.KeyModel, Err: err}
	}
	model, err := smodel.New(name, args, alphabet, ali)
	if err != nil {
		return nil, &config.ConfigError{Key: config.KeyModel, Err: err}
	}
	rdist, err := newRateDistribution(s.RateDistribution)
	if err != nil {
		return nil, err
	}
	log.Infof("Substitution model: %v", model)
	log.Infof("Rate distribution: %v", rdist)

	var store *checkpoint.Store
	if s.CheckpointFile != "" {
		fp := checkpoint.Fingerprint(string(seqData), string(treeData), alphabet.Name(),
			model.String(), rdist.String(), s.Optimization,
			strings.Join(s.Ignore, ","), strconv.FormatFloat(s.Tolerance, 'g', -1, 64),
			strconv.Itoa(s.MaxEval), fmt.Sprint(s.Foreground))
		store, err = checkpoint.Open(s.CheckpointFile, fp)
		if err != nil {
			return nil, err
		}
		defer store.Close()
	}

	tl, err := likelihood.NewHomogeneous(t, model, rdist)
	if err != nil {
		return nil, err
	}
	tl.SetOptimizeBranchLengths()
	if err := tl.SetData(ali); err != nil {
		return nil, eris.Wrap(err, "binding alignment to the tree")
	}

	opt, err := optimizeBase(tl, s, store)
	if err != nil {
		return nil, err
	}

	lnL := tl.Likelihood()
	optTree := tl.Tree()
	log.Noticef("Log likelihood: %.15g", lnL)
	for _, par := range tl.Models()[0].Parameters() {
		log.Noticef("%s: %v", par.Name(), par.Get())
	}
	for _, par := range tl.RateDistribution().Parameters() {
		log.Noticef("%s: %v", par.Name(), par.Get())
	}
	checkEstimated(tl.GetFloatParameters())
	log.Infof("outtree=%s", optTree)

	if s.OutputTreeFile != "" {
		if err := writeFile(s.OutputTreeFile, optTree.String()+"\n"); err != nil {
			return nil, err
		}
		log.Infof("Optimized tree written to %s", s.OutputTreeFile)
	}

	part, err := shift.Partition(optTree.BranchIDs(), foreground(s, t))
	if err != nil {
		return nil, err
	}
	log.Noticef("Number of foreground branches: %d", len(part.Foreground))
	log.Noticef("Number of background branches: %d", len(part.Background))

	one, two, err := shift.BuildModels(tl.Models()[0].Copy(), optTree, part)
	if err != nil {
		return nil, err
	}

	log.Noticef("Writing results to %s", s.OutputFile)
	sink, err := shift.NewSink(s.OutputFile)
	if err != nil {
		return nil, err
	}
	rc := shift.RunConfig{
		Data:          ali,
		One:           one,
		Two:           two,
		Sink:          sink,
		Threads:       threads,
		Fit:           shift.DefaultFitSettings(),
		ProgressEvery: s.Progress,
	}
	if store != nil {
		rc.Store = store
	}
	results, err := shift.Run(ctx, rc)
	if cerr := sink.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}

	sites, err := report.Summarize(results, s.Alpha)
	if err != nil {
		return nil, err
	}
	log.Noticef("%d of %d sites have p-value < %v", sites.NSignificant, sites.NSites, s.Alpha)
	if sites.NNotConverged > 0 {
		log.Warningf("Rate optimization did not converge for %d sites", sites.NNotConverged)
	}

	if s.PlotFile != "" {
		if err := report.SavePlot(results, s.Alpha, s.PlotFile); err != nil {
			return nil, err
		}
	}

	summary := &report.Summary{
		NThreads:         threads,
		Model:            tl.Models()[0].String(),
		RateDistribution: tl.RateDistribution().String(),
		LnL:              lnL,
		Parameters:       tl.GetFloatParameters(),
		Optimizer:        opt.Summary(),
		Tree:             optTree.String(),
		Foreground:       part.Foreground,
		Background:       part.Background,
		Sites:            sites,
	}
	if s.JSONResults {
		summary.Results = results
	}

	deltaT := time.Since(startTime)
	log.Noticef("Running time: %v", deltaT)
	summary.Time = deltaT.Seconds()
	return summary, nil
}
