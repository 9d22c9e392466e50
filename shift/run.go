package shift

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"bitbucket.org/Davydov/rateshift/bio"
)

// SiteResult is the test result for a single site.
type SiteResult struct {
	// Index is the column number in the alignment.
	Index int `json:"index"`
	// Position is the site label.
	Position int     `json:"position"`
	Rate     float64 `json:"r"`
	RateFg   float64 `json:"rFg"`
	RateBg   float64 `json:"rBg"`
	LnL1     float64 `json:"lnL1"`
	LnL2     float64 `json:"lnL2"`
	Statistic
	// Converged is false if any of the two fits hit the
	// iteration limit.
	Converged bool `json:"converged"`
}

// ResultStore keeps finished sites between runs.
type ResultStore interface {
	// Get returns a stored result for the site index.
	Get(index int) (SiteResult, bool, error)
	// Put stores a result.
	Put(r SiteResult) error
}

// RunConfig describes a test of all the alignment sites.
type RunConfig struct {
	Data *bio.Alignment
	One  *OneRateModel
	Two  *TwoRateModel
	// Sink receives rows in the site order, can be nil.
	Sink *Sink
	// Threads is the number of sites processed in parallel.
	Threads int
	Fit     FitSettings
	// Store is an optional checkpoint of finished sites.
	Store ResultStore
	// ProgressEvery sets how often (in sites) progress is logged,
	// zero disables it.
	ProgressEvery int
}

// processSite fits both models to the site and computes the test.
func processSite(one, two LikelihoodModel, data *bio.Alignment, i int, fit FitSettings) (SiteResult, error) {
	site := data.Site(i)
	pos := site.Positions[0]

	f1, err := FitSite(one, site, []float64{1}, fit)
	if err != nil {
		return SiteResult{}, eris.Wrapf(err, "site %d", pos)
	}
	// starting from the one-rate optimum guarantees L2 >= L1
	f2, err := FitSite(two, site, []float64{f1.Rates[0], f1.Rates[0]}, fit)
	if err != nil {
		return SiteResult{}, eris.Wrapf(err, "site %d", pos)
	}

	res := SiteResult{
		Index:     i,
		Position:  pos,
		Rate:      f1.Rates[0],
		RateFg:    f2.Rates[0],
		RateBg:    f2.Rates[1],
		LnL1:      f1.LnL,
		LnL2:      f2.LnL,
		Statistic: NewStatistic(f1.LnL, f2.LnL),
		Converged: f1.Converged && f2.Converged,
	}
	if !res.Converged {
		log.Warningf("Site %d: rate optimization did not converge", pos)
	}
	log.Debugf("Site %d: r=%v, r.fg=%v, r.bg=%v, diffLnL=%v", pos, res.Rate, res.RateFg, res.RateBg, res.DiffLnL)
	return res, nil
}

// writer passes ordered results to the sink and the store.
type writer struct {
	cfg     *RunConfig
	results []SiteResult
	start   time.Time
}

func (w *writer) write(r SiteResult, cached bool) error {
	if w.cfg.Sink != nil {
		if err := w.cfg.Sink.Write(r); err != nil {
			return err
		}
	}
	if w.cfg.Store != nil && !cached {
		if err := w.cfg.Store.Put(r); err != nil {
			return eris.Wrapf(err, "saving site %d", r.Position)
		}
	}
	w.results = append(w.results, r)
	n := len(w.results)
	if w.cfg.ProgressEvery > 0 && (n%w.cfg.ProgressEvery == 0 || n == w.cfg.Data.NSites()) {
		log.Noticef("%d/%d sites done (%v)", n, w.cfg.Data.NSites(), time.Since(w.start).Round(time.Second))
	}
	return nil
}

// cached returns a stored result if there is one.
func (cfg *RunConfig) cached(i int) (SiteResult, bool, error) {
	if cfg.Store == nil {
		return SiteResult{}, false, nil
	}
	r, ok, err := cfg.Store.Get(i)
	if err != nil {
		return SiteResult{}, false, eris.Wrapf(err, "reading checkpoint for site %d", i)
	}
	return r, ok, nil
}

// Run tests all the sites. Results are written to the sink in the
// site order and returned. The first error stops the run; rows
// written before it stay in the sink.
func Run(ctx context.Context, cfg RunConfig) ([]SiteResult, error) {
	if cfg.Data == nil || cfg.One == nil || cfg.Two == nil {
		return nil, eris.New("data and both models are required")
	}
	if cfg.Fit.MaxIterations == 0 {
		cfg.Fit = DefaultFitSettings()
	}
	w := &writer{
		cfg:     &cfg,
		results: make([]SiteResult, 0, cfg.Data.NSites()),
		start:   time.Now(),
	}
	log.Noticef("Testing %d sites", cfg.Data.NSites())
	var err error
	if cfg.Threads <= 1 {
		err = runSequential(ctx, &cfg, w)
	} else {
		err = runParallel(ctx, &cfg, w)
	}
	if err != nil {
		return w.results, err
	}
	log.Noticef("Finished testing sites in %v", time.Since(w.start).Round(time.Millisecond))
	return w.results, nil
}

func runSequential(ctx context.Context, cfg *RunConfig, w *writer) error {
	for i := 0; i < cfg.Data.NSites(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, ok, err := cfg.cached(i)
		if err != nil {
			return err
		}
		if !ok {
			r, err = processSite(cfg.One, cfg.Two, cfg.Data, i, cfg.Fit)
			if err != nil {
				return err
			}
		}
		if err := w.write(r, ok); err != nil {
			return err
		}
	}
	return nil
}

// result is a processed site sent to the writer.
type result struct {
	SiteResult
	cached bool
}

// runParallel processes sites with a pool of workers, each having its
// own copies of the models. Results are reordered before writing.
func runParallel(ctx context.Context, cfg *RunConfig, w *writer) error {
	g, gctx := errgroup.WithContext(ctx)
	tasks := make(chan int)
	results := make(chan result)

	// copies are created before starting goroutines
	ones := make([]LikelihoodModel, cfg.Threads)
	twos := make([]LikelihoodModel, cfg.Threads)
	for i := range ones {
		ones[i] = cfg.One.Copy()
		twos[i] = cfg.Two.Copy()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	g.Go(func() error {
		defer wg.Done()
		defer close(tasks)
		for i := 0; i < cfg.Data.NSites(); i++ {
			r, ok, err := cfg.cached(i)
			if err != nil {
				return err
			}
			if ok {
				select {
				case results <- result{r, true}:
				case <-gctx.Done():
					return gctx.Err()
				}
				continue
			}
			select {
			case tasks <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for wi := 0; wi < cfg.Threads; wi++ {
		one, two := ones[wi], twos[wi]
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for i := range tasks {
				r, err := processSite(one, two, cfg.Data, i, cfg.Fit)
				if err != nil {
					return err
				}
				select {
				case results <- result{r, false}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	g.Go(func() error {
		pending := make(map[int]result)
		next := 0
		for r := range results {
			pending[r.Index] = r
			for {
				p, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				if err := w.write(p.SiteResult, p.cached); err != nil {
					return err
				}
				next++
			}
		}
		return nil
	})

	return g.Wait()
}
