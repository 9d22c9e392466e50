package checkpoint

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/Davydov/rateshift/optimize"
	"bitbucket.org/Davydov/rateshift/shift"
)

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint("a", "b"), Fingerprint("a", "b"))
	assert.NotEqual(t, Fingerprint("a", "b"), Fingerprint("b", "a"))
	// parts are length-prefixed
	assert.NotEqual(t, Fingerprint("ab", ""), Fingerprint("a", "b"))
	assert.Len(t, Fingerprint(), 64)
}

func TestSites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.db")
	s, err := Open(path, "fp1")
	require.NoError(t, err)

	_, ok, err := s.Get(0)
	require.NoError(t, err)
	assert.False(t, ok)

	r := shift.SiteResult{
		Index: 3, Position: 4, Rate: 1.5, RateFg: 2, RateBg: 1.2,
		LnL1: -10, LnL2: -9, Statistic: shift.NewStatistic(-10, -9), Converged: true,
	}
	require.NoError(t, s.Put(r))
	assert.Equal(t, 1, s.NSites())

	// non-finite results are skipped
	require.NoError(t, s.Put(shift.SiteResult{Index: 5, LnL1: math.Inf(-1)}))
	assert.Equal(t, 1, s.NSites())
	require.NoError(t, s.Close())

	s, err = Open(path, "fp1")
	require.NoError(t, err)
	got, ok, err := s.Get(3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, r, got)
	require.NoError(t, s.Close())

	s, err = Open(path, "fp2")
	require.NoError(t, err)
	_, ok, err = s.Get(3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, s.NSites())
	require.NoError(t, s.Close())
}

func TestOptimization(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "run.db"), "fp")
	require.NoError(t, err)
	defer s.Close()

	cio := s.Optimization(60)
	data, err := cio.GetParameters()
	require.NoError(t, err)
	assert.Nil(t, data)

	saved := &CheckpointData{
		Parameters: map[string]float64{"HKY85.kappa": 3.5, "BrLen1": 0.1},
		Likelihood: -123.4,
		Final:      true,
	}
	require.NoError(t, cio.Save(saved))
	data, err = cio.GetParameters()
	require.NoError(t, err)
	assert.Equal(t, saved, data)
}

func TestNilDB(t *testing.T) {
	require.NoError(t, SaveData(nil, MAIN, []byte("k"), []byte("v")))
	b, err := LoadData(nil, MAIN, []byte("k"))
	require.NoError(t, err)
	assert.Nil(t, b)
}

// quadratic is a likelihood with the maximum at x=1.
type quadratic struct {
	x    float64
	pars optimize.FloatParameters
}

func newQuadratic() *quadratic {
	q := &quadratic{}
	q.pars.Append(optimize.NewBasicFloatParameter(&q.x, "x"))
	return q
}

func (q *quadratic) GetFloatParameters() optimize.FloatParameters { return q.pars }
func (q *quadratic) Copy() optimize.Optimizable                   { return newQuadratic() }
func (q *quadratic) Likelihood() float64                          { return -(q.x - 1) * (q.x - 1) }

func TestWatch(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "run.db"), "fp")
	require.NoError(t, err)
	defer s.Close()

	// zero period saves on every evaluation
	cio := s.Optimization(0)
	q := newQuadratic()
	w := Watch(q, cio)
	for _, x := range []float64{3, 0.5, 2} {
		q.x = x
		w.Likelihood()
		time.Sleep(time.Millisecond)
	}
	data, err := cio.GetParameters()
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.False(t, data.Final)
	assert.Equal(t, 0.5, data.Parameters["x"])
	assert.Equal(t, -0.25, data.Likelihood)
}
