package optimize

import (
	"encoding/json"
	"math"
	"testing"
)

const (
	parsJSON = `{"HKY85.kappa":2.5,"HKY85.rate":0.000001,"BrLen1":0,"Gamma.alpha":0.999999}`
)

// testParameters returns model-like parameters backed by vals.
func testParameters(vals []float64) (pars FloatParameters) {
	for i, name := range []string{"HKY85.kappa", "HKY85.rate", "BrLen1", "Gamma.alpha"} {
		par := NewBasicFloatParameter(&vals[i], name)
		par.SetMin(0)
		par.SetMax(1000)
		pars.Append(par)
	}
	return
}

func TestMarshalParameters(tst *testing.T) {
	pars := testParameters([]float64{2.5, 1e-6, 0, 0.999999})
	j, err := json.Marshal(pars)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if string(j) != parsJSON {
		tst.Errorf("Expected %s, got %s", parsJSON, j)
	}

	vals := []float64{1, 1, 1, 1}
	pars = testParameters(vals)
	if err := json.Unmarshal([]byte(parsJSON), &pars); err != nil {
		tst.Fatal("Error: ", err)
	}
	if vals[0] != 2.5 || vals[3] != 0.999999 {
		tst.Error("Values were not set:", vals)
	}
	if err := json.Unmarshal([]byte(`{"HKY85.omega":1}`), &pars); err == nil {
		tst.Error("Unknown parameter should be an error")
	}
}

func TestSubset(tst *testing.T) {
	vals := []float64{2, 1, 0.1, 0.5}
	pars := testParameters(vals)
	sub, err := pars.Subset([]string{"Gamma.alpha", "HKY85.rate"})
	if err != nil {
		tst.Fatal(err)
	}
	if sub.NamesString() != "Gamma.alpha\tHKY85.rate" {
		tst.Error("Wrong subset order:", sub.NamesString())
	}
	if err := sub.SetValues([]float64{0.7, 3}); err != nil {
		tst.Fatal(err)
	}
	if vals[3] != 0.7 || vals[1] != 3 {
		tst.Error("Subset does not share values:", vals)
	}
	if _, err := pars.Subset([]string{"BrLen7"}); err == nil {
		tst.Error("Missing parameter should be an error")
	}
}

func TestParametersAtBoundary(tst *testing.T) {
	pars := testParameters([]float64{2, 1e-12, 0.1, 1000})
	b := pars.AtBoundary(1e-6)
	if len(b) != 2 || b[0] != "HKY85.rate" || b[1] != "Gamma.alpha" {
		tst.Error("Wrong parameters at boundary:", b)
	}

	x := 0.0
	var free FloatParameters
	free.Append(NewBasicFloatParameter(&x, "x"))
	if len(free.AtBoundary(1e-6)) != 0 {
		tst.Error("Unbounded parameter cannot be at a boundary")
	}
}

func TestValuesMap(tst *testing.T) {
	vals := []float64{2, 1, 0.1, 0.5}
	pars := testParameters(vals)
	m := pars.ValuesMap()
	if len(m) != 4 || m["BrLen1"] != 0.1 {
		tst.Error("Wrong values map:", m)
	}

	m["BrLen1"] = 0.3
	if err := pars.SetValuesMap(m); err != nil {
		tst.Fatal(err)
	}
	if vals[2] != 0.3 {
		tst.Error("Value was not set:", vals)
	}
	delete(m, "HKY85.kappa")
	if err := pars.SetValuesMap(m); err == nil {
		tst.Error("Missing value should be an error")
	}
}

func TestRename(tst *testing.T) {
	rate := 1.0
	changed := 0
	par := NewBasicFloatParameter(&rate, "HKY85.rate")
	par.SetMin(1e-6)
	par.SetOnChange(func() { changed++ })

	fg := Rename(par, "HKY85.rate_fg")
	if fg.Name() != "HKY85.rate_fg" || par.Name() != "HKY85.rate" {
		tst.Error("Wrong names:", fg.Name(), par.Name())
	}
	fg.Set(2)
	fg.Set(2)
	if rate != 2 || changed != 1 {
		tst.Error("Renamed parameter should share value and callback:", rate, changed)
	}
	if fg.ValueInRange(0) || !math.IsInf(fg.GetMax(), 1) {
		tst.Error("Renamed parameter should share boundaries")
	}
}
