// Package likelihood computes phylogenetic tree likelihoods with the
// Felsenstein pruning algorithm. Branches can evolve under different
// substitution models, rates among sites follow a discrete rate
// distribution.
package likelihood

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"strconv"
	"sync"

	"github.com/op/go-logging"

	"bitbucket.org/Davydov/rateshift/bio"
	"bitbucket.org/Davydov/rateshift/dist"
	"bitbucket.org/Davydov/rateshift/optimize"
	"bitbucket.org/Davydov/rateshift/smodel"
	"bitbucket.org/Davydov/rateshift/tree"
)

var log = logging.MustGetLogger("likelihood")

const (
	// If the proportion of a rate category is less than this
	// number no need to compute probability.
	smallProp = 1e-20
	// Branch length boundaries for the optimization.
	MinBrLen = 1e-6
	MaxBrLen = 100
	// BrLenPrefix is the prefix of branch length parameter names.
	BrLenPrefix = "BrLen"
)

// pKey identifies a computed transition matrix.
type pKey struct {
	version uint64
	t       float64
}

// TreeLikelihood is a likelihood of an alignment given a tree, a
// set of substitution models assigned to branches and a rate
// distribution. TreeLikelihood implements optimize.Optimizable.
type TreeLikelihood struct {
	tree   *tree.Tree
	models []smodel.Model
	labels []string
	// assign maps node id to the model of the branch above it.
	assign []int
	rdist  dist.RateDistribution
	n      int

	optBranch  bool
	parameters optimize.FloatParameters

	data    *bio.Alignment
	leaves  []*tree.Node
	leafRow []int

	// transition matrices by rate category and node id
	p    [][][]float64
	pKey [][]pKey

	l   []float64
	plh [][]float64
}

// New creates a likelihood for the tree. Models are assigned to
// branches with assign which is indexed by node id (the root value is
// ignored). Parameters of model i are suffixed with labels[i]. The
// tree is copied.
func New(t *tree.Tree, models []smodel.Model, labels []string, assign []int, rdist dist.RateDistribution) (*TreeLikelihood, error) {
	if len(models) == 0 {
		return nil, errors.New("no substitution models")
	}
	if len(labels) != len(models) {
		return nil, errors.New("number of labels should match number of models")
	}
	n := models[0].NStates()
	for _, m := range models[1:] {
		if m.NStates() != n || m.Alphabet().Name() != models[0].Alphabet().Name() {
			return nil, errors.New("all the models must have the same alphabet")
		}
	}
	t = t.Copy()
	if len(assign) != t.NNodes() {
		return nil, fmt.Errorf("model assignment has %d nodes, tree has %d", len(assign), t.NNodes())
	}
	used := make([]bool, len(models))
	for _, node := range t.Nodes() {
		if node.IsRoot() {
			continue
		}
		a := assign[node.Id]
		if a < 0 || a >= len(models) {
			return nil, fmt.Errorf("branch %d has no model", node.Id)
		}
		used[a] = true
	}
	for i, u := range used {
		if !u {
			return nil, fmt.Errorf("model %s%s is not assigned to any branch", models[i].Name(), labels[i])
		}
	}

	tl := &TreeLikelihood{
		tree:   t,
		models: models,
		labels: labels,
		assign: append([]int(nil), assign...),
		rdist:  rdist,
		n:      n,
	}
	tl.tree.NodeOrder()
	for node := range tl.tree.Terminals() {
		tl.leaves = append(tl.leaves, node)
	}
	tl.setupMatrices()
	tl.setupParameters()
	return tl, nil
}

// NewHomogeneous creates a likelihood with a single model on every
// branch.
func NewHomogeneous(t *tree.Tree, model smodel.Model, rdist dist.RateDistribution) (*TreeLikelihood, error) {
	return New(t, []smodel.Model{model}, []string{""}, make([]int, t.NNodes()), rdist)
}

func (tl *TreeLikelihood) setupMatrices() {
	ncat := tl.rdist.NCategories()
	nNodes := tl.tree.NNodes()
	tl.p = make([][][]float64, ncat)
	tl.pKey = make([][]pKey, ncat)
	for c := range tl.p {
		tl.p[c] = make([][]float64, nNodes)
		tl.pKey[c] = make([]pKey, nNodes)
		for i := range tl.p[c] {
			tl.p[c][i] = make([]float64, tl.n*tl.n)
			tl.pKey[c][i].t = math.NaN()
		}
	}
}

// setupParameters first deletes all the parameters and then adds
// them.
func (tl *TreeLikelihood) setupParameters() {
	tl.parameters = nil
	if tl.optBranch {
		for _, node := range tl.tree.Nodes() {
			// Root branch is not optimized
			if node.IsRoot() {
				continue
			}
			par := optimize.NewBasicFloatParameter(&node.BranchLength, BrLenPrefix+strconv.Itoa(node.Id))
			par.SetMin(MinBrLen)
			par.SetMax(MaxBrLen)
			tl.parameters.Append(par)
		}
	}
	for i, m := range tl.models {
		for _, par := range m.Parameters() {
			if tl.labels[i] != "" {
				par = optimize.Rename(par, par.Name()+tl.labels[i])
			}
			tl.parameters.Append(par)
		}
	}
	tl.parameters = append(tl.parameters, tl.rdist.Parameters()...)
}

// SetOptimizeBranchLengths enables branch-length parameters. Branch
// lengths are moved inside the boundaries.
func (tl *TreeLikelihood) SetOptimizeBranchLengths() {
	tl.optBranch = true
	for _, node := range tl.tree.Nodes() {
		if node.IsRoot() {
			continue
		}
		if node.BranchLength < MinBrLen {
			log.Debugf("Branch %d length %v set to %v", node.Id, node.BranchLength, MinBrLen)
			node.BranchLength = MinBrLen
		}
		if node.BranchLength > MaxBrLen {
			node.BranchLength = MaxBrLen
		}
	}
	tl.setupParameters()
}

// RefreshParameters rebuilds the parameter list, it has to be called
// after adding parameters to the models.
func (tl *TreeLikelihood) RefreshParameters() {
	tl.setupParameters()
}

// GetFloatParameters returns all the parameters.
func (tl *TreeLikelihood) GetFloatParameters() optimize.FloatParameters {
	return tl.parameters
}

// Models returns the substitution models.
func (tl *TreeLikelihood) Models() []smodel.Model {
	return tl.models
}

// RateDistribution returns the rate distribution.
func (tl *TreeLikelihood) RateDistribution() dist.RateDistribution {
	return tl.rdist
}

// Tree returns a copy of the tree with the current branch lengths.
func (tl *TreeLikelihood) Tree() *tree.Tree {
	return tl.tree.Copy()
}

// SetData binds an alignment. Every leaf must have a sequence with
// the same name and every sequence must be in the tree.
func (tl *TreeLikelihood) SetData(ali *bio.Alignment) error {
	if ali.Alphabet.Size() != tl.n {
		return fmt.Errorf("alignment alphabet %s does not match the model", ali.Alphabet.Name())
	}
	if ali.NSeqs() != len(tl.leaves) {
		return fmt.Errorf("tree has %d leaves, alignment has %d sequences", len(tl.leaves), ali.NSeqs())
	}
	leafRow := make([]int, tl.tree.NNodes())
	for _, node := range tl.leaves {
		row := ali.Row(node.Name)
		if row < 0 {
			return fmt.Errorf("no sequence found for the leaf <%s>", node.Name)
		}
		leafRow[node.Id] = row
	}
	tl.data = ali
	tl.leafRow = leafRow
	if cap(tl.l) < ali.NSites() {
		tl.l = make([]float64, ali.NSites())
	}
	tl.l = tl.l[:ali.NSites()]
	return nil
}

// Data returns the bound alignment.
func (tl *TreeLikelihood) Data() *bio.Alignment {
	return tl.data
}

// updateMatrices recomputes transition matrices for the branches
// where the model, the branch length or the category rate changed.
func (tl *TreeLikelihood) updateMatrices() error {
	rates := tl.rdist.Rates()
	for c, rate := range rates {
		for _, node := range tl.tree.Nodes() {
			if node.IsRoot() {
				continue
			}
			m := tl.models[tl.assign[node.Id]]
			key := pKey{version: m.Version(), t: node.BranchLength * rate}
			if tl.pKey[c][node.Id] == key {
				continue
			}
			if err := m.Transition(key.t, tl.p[c][node.Id]); err != nil {
				tl.pKey[c][node.Id].t = math.NaN()
				return err
			}
			tl.pKey[c][node.Id] = key
		}
	}
	return nil
}

// rootFrequencies returns the frequencies of the model below the
// root.
func (tl *TreeLikelihood) rootFrequencies() []float64 {
	return tl.models[tl.assign[tl.tree.ChildNodes()[0].Id]].Frequencies()
}

// newPartials allocates partial likelihood storage.
func (tl *TreeLikelihood) newPartials() [][]float64 {
	plh := make([][]float64, tl.tree.NNodes())
	for i := range plh {
		plh[i] = make([]float64, tl.n)
	}
	return plh
}

// Compute calculates the log likelihood.
func (tl *TreeLikelihood) Compute() (lnL float64, err error) {
	if tl.data == nil {
		return 0, errors.New("no data")
	}
	log.Debugf("x=%v", tl.parameters.Values(nil))
	if err := tl.updateMatrices(); err != nil {
		return math.Inf(-1), err
	}
	freq := tl.rootFrequencies()
	probs := tl.rdist.Probabilities()

	nPos := tl.data.NSites()
	nWorkers := runtime.GOMAXPROCS(0)
	if nWorkers > nPos {
		nWorkers = nPos
	}

	if nWorkers <= 1 {
		if tl.plh == nil {
			tl.plh = tl.newPartials()
		}
		for pos := 0; pos < nPos; pos++ {
			tl.l[pos] = tl.siteLikelihood(pos, probs, freq, tl.plh)
		}
	} else {
		tasks := make(chan int, nPos)
		var wg sync.WaitGroup
		for i := 0; i < nWorkers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				plh := tl.newPartials()
				for pos := range tasks {
					tl.l[pos] = tl.siteLikelihood(pos, probs, freq, plh)
				}
			}()
		}
		for pos := 0; pos < nPos; pos++ {
			tasks <- pos
		}
		close(tasks)
		wg.Wait()
	}

	for _, l := range tl.l {
		lnL += l
	}
	if math.IsNaN(lnL) {
		lnL = math.Inf(-1)
	}
	log.Debugf("L=%v", lnL)
	return lnL, nil
}

// Likelihood calculates the log likelihood. Errors are logged and
// result in -Inf.
func (tl *TreeLikelihood) Likelihood() float64 {
	lnL, err := tl.Compute()
	if err != nil {
		log.Errorf("Error computing likelihood: %v", err)
		return math.Inf(-1)
	}
	return lnL
}

// siteLikelihood computes the log likelihood of a site summed over
// rate categories.
func (tl *TreeLikelihood) siteLikelihood(pos int, probs, freq []float64, plh [][]float64) float64 {
	res := math.Inf(-1)
	for class, p := range probs {
		if p <= smallProp {
			continue
		}
		l, lnScale := tl.prune(class, pos, freq, plh)
		res = logAdd(res, math.Log(p)+math.Log(l)+lnScale)
	}
	return res
}

// prune computes the scaled likelihood of a site for a rate
// category. Partial likelihoods of every internal node are divided
// by their maximum, log of the scaling factors is returned.
func (tl *TreeLikelihood) prune(class, pos int, freq []float64, plh [][]float64) (res, lnScale float64) {
	n := tl.n
	ali := tl.data
	for _, node := range tl.leaves {
		copy(plh[node.Id], ali.Alphabet.Compatible(ali.Data[tl.leafRow[node.Id]][pos]))
	}

	for _, node := range tl.tree.NodeOrder() {
		x := plh[node.Id]
		max := 0.0
		for l1 := 0; l1 < n; l1++ {
			l := 1.0
			for _, child := range node.ChildNodes() {
				// get the row
				q := tl.p[class][child.Id][l1*n : (l1+1)*n]
				// get child partial likelhiood
				cplh := plh[child.Id]
				s := 0.0
				for l2, v := range q {
					s += v * cplh[l2]
				}
				l *= s
			}
			x[l1] = l
			if l > max {
				max = l
			}
		}
		if max > 0 && max != 1 {
			for l := range x {
				x[l] /= max
			}
			lnScale += math.Log(max)
		}
	}

	root := plh[tl.tree.Id]
	for l := 0; l < n; l++ {
		res += freq[l] * root[l]
	}
	return
}

// logAdd returns log(e^a + e^b).
func logAdd(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	if a < b {
		a, b = b, a
	}
	return a + math.Log1p(math.Exp(b-a))
}

// Clone creates an independent copy. Models, the rate distribution
// and branch lengths are copied, the bound data is shared.
func (tl *TreeLikelihood) Clone() *TreeLikelihood {
	models := make([]smodel.Model, len(tl.models))
	for i, m := range tl.models {
		models[i] = m.Copy()
	}
	newTL, err := New(tl.tree, models, tl.labels, tl.assign, tl.rdist.Copy())
	if err != nil {
		panic(err)
	}
	if tl.optBranch {
		newTL.SetOptimizeBranchLengths()
	}
	if tl.data != nil {
		newTL.data = tl.data
		newTL.leafRow = tl.leafRow
		newTL.l = make([]float64, len(tl.l))
	}
	return newTL
}

// Copy returns Clone as optimize.Optimizable.
func (tl *TreeLikelihood) Copy() optimize.Optimizable {
	return tl.Clone()
}
