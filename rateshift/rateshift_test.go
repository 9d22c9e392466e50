package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/Davydov/rateshift/config"
	"bitbucket.org/Davydov/rateshift/dist"
	"bitbucket.org/Davydov/rateshift/shift"
)

const (
	testFasta = `>a
ACGTACGTAAGCTTGAACGT
>b
ACGTACGAAAGCTAGAACGA
>c
ACGTTCGTGAGCATCAACCT
>d
ACCTTGGTGTGCATCC-CCT
`
	testTree = "((a:0.1,b:0.2):0.05,(c:0.15,d:0.1):0.05);\n"
)

// inputs writes the test alignment and tree, returning the options
// pointing to them.
func inputs(t *testing.T) (string, []string) {
	dir := t.TempDir()
	fst := filepath.Join(dir, "ali.fst")
	nwk := filepath.Join(dir, "tree.nwk")
	require.NoError(t, os.WriteFile(fst, []byte(testFasta), 0644))
	require.NoError(t, os.WriteFile(nwk, []byte(testTree), 0644))
	return dir, []string{
		"input.sequence.file=" + fst,
		"input.tree.file=" + nwk,
	}
}

func settings(t *testing.T, args []string) *config.Settings {
	o := config.New()
	require.NoError(t, o.ParseArgs(args))
	s, err := o.Settings()
	require.NoError(t, err)
	return s
}

func TestTaggedTree(t *testing.T) {
	dir, args := inputs(t)
	ids := filepath.Join(dir, "ids.nwk")
	out := filepath.Join(dir, "out.tsv")
	s := settings(t, append(args, "output.tree_ids.file="+ids, "output.file="+out))

	summary, err := run(context.Background(), s, 1)
	require.NoError(t, err)
	assert.Nil(t, summary)

	b, err := os.ReadFile(ids)
	require.NoError(t, err)
	assert.Equal(t, "((2_a:0.100000,3_b:0.200000)1:0.050000,(5_c:0.150000,6_d:0.100000)4:0.050000):0.000000;\n", string(b))

	// nothing else is done
	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestRun(t *testing.T) {
	dir, args := inputs(t)
	out := filepath.Join(dir, "out.tsv")
	js := filepath.Join(dir, "summary.json")
	outTree := filepath.Join(dir, "opt.nwk")
	s := settings(t, append(args,
		"model=HKY85(kappa=2)",
		"rate_distribution=Gamma(n=2, alpha=1)",
		"foreground_branches=1-3",
		"output.file="+out,
		"output.tree.file="+outTree,
		"output.json.file="+js,
		"output.json.results=true",
		"output.plot.file="+filepath.Join(dir, "sites.png"),
		"optimization.profiler="+filepath.Join(dir, "profile.tsv"),
		"optimization.report=1",
	))

	summary, err := run(context.Background(), s, 2)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, []int{1, 2, 3}, summary.Foreground)
	assert.Equal(t, []int{4, 5, 6}, summary.Background)
	assert.Equal(t, 20, summary.Sites.NSites)
	for _, name := range []string{"HKY85.kappa", "Gamma.alpha", "BrLen1"} {
		assert.NotNil(t, summary.Parameters.Get(name), name)
	}
	assert.Less(t, summary.LnL, 0.0)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 21)
	assert.Equal(t, shift.Header, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "[1]\t"))
	assert.True(t, strings.HasPrefix(lines[20], "[20]\t"))
	for _, r := range summary.Results {
		assert.GreaterOrEqual(t, r.LnL2, r.LnL1)
	}

	_, err = os.Stat(outTree)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "sites.png"))
	assert.NoError(t, err)

	prof, err := os.ReadFile(filepath.Join(dir, "profile.tsv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(prof), "iteration\tlikelihood\t"))
}

func TestRunOptions(t *testing.T) {
	dir, args := inputs(t)
	js := filepath.Join(dir, "summary.json")
	o := config.New()
	require.NoError(t, o.ParseArgs(append(args,
		"model=JC69",
		"optimization=none",
		"foreground_branches=2,3",
		"output.file="+filepath.Join(dir, "out.tsv"),
		"output.json.file="+js,
	)))
	require.NoError(t, runOptions(context.Background(), o, 1))

	var parsed map[string]interface{}
	j, err := os.ReadFile(js)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(j, &parsed))
	assert.Contains(t, parsed, "sites")
	assert.Contains(t, parsed, "version")
	assert.NotContains(t, parsed, "results")
	assert.Equal(t, "Constant", parsed["rateDistribution"])
}

func TestThreadsFlag(t *testing.T) {
	_, err := app.Parse([]string{"model=JC69"})
	require.NoError(t, err)
	assert.Equal(t, 1, *nThreads)
	assert.Equal(t, []string{"model=JC69"}, *options)

	_, err = app.Parse([]string{"--nt=0"})
	require.NoError(t, err)
	assert.Equal(t, 0, *nThreads)
}

func TestClassMarks(t *testing.T) {
	dir, args := inputs(t)
	nwk := filepath.Join(dir, "marked.nwk")
	require.NoError(t, os.WriteFile(nwk, []byte("((a:0.1,b:0.2)#1:0.05,(c:0.15,d:0.1):0.05);\n"), 0644))
	s := settings(t, append(args,
		"input.tree.file="+nwk,
		"model=K80",
		"optimization=none",
		"output.file="+filepath.Join(dir, "out.tsv"),
	))
	summary, err := run(context.Background(), s, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, summary.Foreground)
}

func TestResume(t *testing.T) {
	dir, args := inputs(t)
	args = append(args,
		"model=JC69",
		"foreground_branches=4",
		"output.checkpoint.file="+filepath.Join(dir, "run.db"),
	)
	first := filepath.Join(dir, "first.tsv")
	second := filepath.Join(dir, "second.tsv")

	s1, err := run(context.Background(), settings(t, append(args, "output.file="+first)), 1)
	require.NoError(t, err)
	s2, err := run(context.Background(), settings(t, append(args, "output.file="+second)), 3)
	require.NoError(t, err)

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, s1.LnL, s2.LnL)
}

func TestErrors(t *testing.T) {
	dir, args := inputs(t)
	out := "output.file=" + filepath.Join(dir, "out.tsv")

	var perr *shift.InvalidPartitionError
	_, err := run(context.Background(), settings(t, append(args, out, "foreground_branches=1,42", "optimization=none")), 1)
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, []int{42}, perr.IDs)

	// no foreground given and no class marks
	_, err = run(context.Background(), settings(t, append(args, out, "optimization=none")), 1)
	require.True(t, errors.As(err, &perr))

	var cerr *config.ConfigError
	_, err = run(context.Background(), settings(t, append(args, out, "model=WAG01")), 1)
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, config.KeyModel, cerr.Key)

	_, err = run(context.Background(), settings(t, append(args, out, "alphabet=Binary")), 1)
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, config.KeyAlphabet, cerr.Key)

	_, err = run(context.Background(), settings(t, append(args, out, "rate_distribution=Gamma(n=4, beta=2)")), 1)
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, config.KeyRateDistribution, cerr.Key)

	var serr *shift.SinkWriteError
	_, err = run(context.Background(), settings(t, append(args,
		"output.file="+filepath.Join(dir, "missing", "out.tsv"),
		"foreground_branches=1", "optimization=none")), 1)
	require.True(t, errors.As(err, &serr))
}

func TestRateDistribution(t *testing.T) {
	r, err := newRateDistribution("Constant")
	require.NoError(t, err)
	assert.Equal(t, 1, r.NCategories())

	r, err = newRateDistribution("Gamma(n=3, alpha=0.5)")
	require.NoError(t, err)
	require.IsType(t, &dist.Gamma{}, r)
	assert.Equal(t, 3, r.NCategories())
	assert.Equal(t, 0.5, r.(*dist.Gamma).Alpha())

	_, err = newRateDistribution("Gamma(n=x)")
	assert.Error(t, err)
	_, err = newRateDistribution("Beta")
	assert.Error(t, err)
}

func TestIgnored(t *testing.T) {
	f := ignored([]string{"BrLen", "HKY85.kappa", "Gamma.*"})
	assert.True(t, f("BrLen3"))
	assert.True(t, f("HKY85.kappa"))
	assert.True(t, f("Gamma.alpha"))
	assert.False(t, f("HKY85.rate"))
	assert.False(t, ignored(nil)("BrLen1"))
}
