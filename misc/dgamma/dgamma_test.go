package main

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"
)

func TestCategories(tst *testing.T) {
	for _, median := range []bool{false, true} {
		r, err := categories(0.5, 4, median)
		if err != nil {
			tst.Fatal(err)
		}
		mean := 0.0
		for i, v := range r {
			mean += v / 4
			if i > 0 && r[i-1] >= v {
				tst.Error("Rates should increase:", r)
			}
		}
		if math.Abs(mean-1) > 1e-6 {
			tst.Error("Mean rate should be 1, got", mean)
		}
	}
	if _, err := categories(0, 4, false); err == nil {
		tst.Error("Expected error for alpha=0")
	}
}

func TestPrint(tst *testing.T) {
	var b bytes.Buffer
	printCategories(&b, []float64{0.5, 1.5})
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if len(lines) != 3 || lines[2] != "2\t1.5\t0.5" {
		tst.Error("Wrong output:", b.String())
	}
}

func TestPlot(tst *testing.T) {
	r, _ := categories(1, 4, false)
	if err := savePlot(r, filepath.Join(tst.TempDir(), "gamma.png")); err != nil {
		tst.Error(err)
	}
}
