package likelihood

import (
	"bytes"
	"fmt"
	"math"
	"runtime"
	"strings"
	"testing"

	"bitbucket.org/Davydov/rateshift/bio"
	"bitbucket.org/Davydov/rateshift/dist"
	"bitbucket.org/Davydov/rateshift/smodel"
	"bitbucket.org/Davydov/rateshift/tree"
)

const smallDiff = 1e-9

func parseTree(tst *testing.T, s string) *tree.Tree {
	t, err := tree.ParseNewick(bytes.NewBufferString(s))
	if err != nil {
		tst.Fatal("Error parsing tree:", err)
	}
	return t
}

func alignment(tst *testing.T, names []string, seqs []string) *bio.Alignment {
	var ss bio.Sequences
	for i, n := range names {
		ss = append(ss, bio.Sequence{Name: n, Sequence: seqs[i]})
	}
	ali, err := bio.NewAlignment(ss, bio.NewDNA())
	if err != nil {
		tst.Fatal(err)
	}
	return ali
}

func jc69(tst *testing.T) smodel.Model {
	m, err := smodel.New("JC69", nil, bio.NewDNA(), nil)
	if err != nil {
		tst.Fatal(err)
	}
	return m
}

func TestTwoTaxa(tst *testing.T) {
	t := parseTree(tst, "(a:0.1,b:0.2);")
	tl, err := NewHomogeneous(t, jc69(tst), dist.NewConstant())
	if err != nil {
		tst.Fatal(err)
	}
	ali := alignment(tst, []string{"b", "a"}, []string{"AAN", "ACA"})
	e := math.Exp(-4. / 3. * 0.3)
	same := math.Log(0.25 * (0.25 + 0.75*e))
	diff := math.Log(0.25 * (0.25 - 0.25*e))
	sl := make([]float64, ali.NSites())
	for i := range sl {
		if err := tl.SetData(ali.Site(i)); err != nil {
			tst.Fatal(err)
		}
		sl[i] = tl.Likelihood()
	}
	if err := tl.SetData(ali); err != nil {
		tst.Fatal(err)
	}
	l := tl.Likelihood()
	if math.Abs(sl[0]-same) > smallDiff || math.Abs(sl[1]-diff) > smallDiff {
		tst.Error("Wrong site likelihoods:", sl, same, diff)
	}
	// unknown character gives the probability of the other one
	if math.Abs(sl[2]-math.Log(0.25)) > smallDiff {
		tst.Error("Wrong likelihood for unknown character:", sl[2])
	}
	if math.Abs(l-(same+diff+math.Log(0.25))) > smallDiff {
		tst.Error("Wrong likelihood:", l)
	}
}

func TestGammaCategories(tst *testing.T) {
	t := parseTree(tst, "(a:0.1,b:0.2);")
	g, err := dist.NewGamma(4, 0.5)
	if err != nil {
		tst.Fatal(err)
	}
	tl, err := NewHomogeneous(t, jc69(tst), g)
	if err != nil {
		tst.Fatal(err)
	}
	if err := tl.SetData(alignment(tst, []string{"a", "b"}, []string{"A", "C"})); err != nil {
		tst.Fatal(err)
	}
	exp := 0.0
	for _, r := range g.Rates() {
		e := math.Exp(-4. / 3. * 0.3 * r)
		exp += 0.25 * 0.25 * (0.25 - 0.25*e)
	}
	if l := tl.Likelihood(); math.Abs(l-math.Log(exp)) > smallDiff {
		tst.Error("Wrong likelihood with gamma:", l, math.Log(exp))
	}
	if tl.GetFloatParameters().Get("Gamma.alpha") == nil {
		tst.Error("No gamma parameter")
	}
}

// bigTree creates a caterpillar tree with n leaves.
func bigTree(n int) (string, []string) {
	s := "s0:0.5"
	names := []string{"s0"}
	for i := 1; i < n; i++ {
		name := fmt.Sprintf("s%d", i)
		names = append(names, name)
		s = fmt.Sprintf("(%s,%s:0.5):0.1", s, name)
	}
	return s + ";", names
}

func TestScaling(tst *testing.T) {
	s, names := bigTree(400)
	t := parseTree(tst, s)
	seqs := make([]string, len(names))
	for i := range seqs {
		seqs[i] = []string{"AC", "CA", "GT", "TG"}[i%4]
	}
	tl, err := NewHomogeneous(t, jc69(tst), dist.NewConstant())
	if err != nil {
		tst.Fatal(err)
	}
	if err := tl.SetData(alignment(tst, names, seqs)); err != nil {
		tst.Fatal(err)
	}
	l := tl.Likelihood()
	if math.IsInf(l, 0) || math.IsNaN(l) || l > 0 {
		tst.Error("Likelihood underflow:", l)
	}
}

func TestParallel(tst *testing.T) {
	s, names := bigTree(20)
	t := parseTree(tst, s)
	seqs := make([]string, len(names))
	for i := range seqs {
		seqs[i] = strings.Repeat([]string{"ACGTA", "CAGTT", "GTACA", "TGCAC"}[i%4], 10)
	}
	ali := alignment(tst, names, seqs)
	tl, err := NewHomogeneous(t, jc69(tst), dist.NewConstant())
	if err != nil {
		tst.Fatal(err)
	}
	if err := tl.SetData(ali); err != nil {
		tst.Fatal(err)
	}
	old := runtime.GOMAXPROCS(1)
	l1 := tl.Likelihood()
	runtime.GOMAXPROCS(4)
	l2 := tl.Likelihood()
	runtime.GOMAXPROCS(old)
	if l1 != l2 {
		tst.Error("Parallel likelihood differs:", l1, l2)
	}
}

func TestBranchLengths(tst *testing.T) {
	t := parseTree(tst, "((a:0.1,b:0):0.2,c:0.3);")
	tl, err := NewHomogeneous(t, jc69(tst), dist.NewConstant())
	if err != nil {
		tst.Fatal(err)
	}
	tl.SetOptimizeBranchLengths()
	pars := tl.GetFloatParameters()
	if len(pars) != 4 || pars[0].Name() != "BrLen1" {
		tst.Fatal("Wrong branch length parameters:", pars.Names(nil))
	}
	if tl.Tree().Nodes()[3].BranchLength != MinBrLen {
		tst.Error("Zero branch length was not moved to the minimum")
	}
	if err := tl.SetData(alignment(tst, []string{"a", "b", "c"}, []string{"AC", "AC", "AG"})); err != nil {
		tst.Fatal(err)
	}
	l1 := tl.Likelihood()
	c := tl.Clone()
	c.GetFloatParameters()[0].Set(2)
	if tl.Likelihood() != l1 {
		tst.Error("Changing the copy has changed the original")
	}
	if c.Likelihood() == l1 {
		tst.Error("Changing branch length has no effect")
	}
	if t.Nodes()[1].BranchLength != 0.2 {
		tst.Error("Original tree was modified")
	}
}

func TestTwoModels(tst *testing.T) {
	t := parseTree(tst, "(a:0.1,b:0.2);")
	m := jc69(tst)
	if err := m.AddRateParameter(); err != nil {
		tst.Fatal(err)
	}
	assign := []int{0, 0, 1}
	tl, err := New(t, []smodel.Model{m.Copy(), m.Copy()}, []string{"_fg", "_bg"}, assign, dist.NewConstant())
	if err != nil {
		tst.Fatal(err)
	}
	if err := tl.SetData(alignment(tst, []string{"a", "b"}, []string{"A", "C"})); err != nil {
		tst.Fatal(err)
	}
	pars := tl.GetFloatParameters()
	fg, bg := pars.Get("JC69.rate_fg"), pars.Get("JC69.rate_bg")
	if fg == nil || bg == nil {
		tst.Fatal("No rate parameters:", pars.Names(nil))
	}
	fg.Set(3)
	bg.Set(0.5)
	e := math.Exp(-4. / 3. * (0.1*3 + 0.2*0.5))
	exp := math.Log(0.25 * (0.25 - 0.25*e))
	if l := tl.Likelihood(); math.Abs(l-exp) > smallDiff {
		tst.Error("Wrong two model likelihood:", l, exp)
	}
	if m.Rate() != 1 {
		tst.Error("Template model has changed")
	}

	if _, err := New(t, []smodel.Model{m, m.Copy()}, []string{"_fg", "_bg"}, []int{0, 0, 0}, dist.NewConstant()); err == nil {
		tst.Error("Expected an error for an unused model")
	}
}

func TestSetDataErrors(tst *testing.T) {
	t := parseTree(tst, "(a:0.1,b:0.2);")
	tl, err := NewHomogeneous(t, jc69(tst), dist.NewConstant())
	if err != nil {
		tst.Fatal(err)
	}
	if err := tl.SetData(alignment(tst, []string{"a", "c"}, []string{"A", "C"})); err == nil {
		tst.Error("Expected an error for a missing leaf")
	}
	if err := tl.SetData(alignment(tst, []string{"a", "b", "c"}, []string{"A", "C", "G"})); err == nil {
		tst.Error("Expected an error for an extra sequence")
	}
	if _, err := tl.Compute(); err == nil {
		tst.Error("Expected an error without data")
	}
}
