package main

import (
	"bytes"
	"strings"
	"testing"

	"bitbucket.org/Davydov/rateshift/tree"
)

const testTree = "((a:0.1,b:0.2)#1:0.3,c:0.4);"

func parse(tst *testing.T) *tree.Tree {
	t, err := tree.ParseNewick(strings.NewReader(testTree))
	if err != nil {
		tst.Fatal("Error parsing tree:", err)
	}
	return t
}

func TestExport(tst *testing.T) {
	t := parse(tst)
	tests := []struct {
		mode, fg, out string
	}{
		{"brlen", "", "BrLen1=0.300000\nBrLen2=0.100000\nBrLen3=0.200000\nBrLen4=0.400000\n"},
		{"ids", "", "((2_a:0.100000,3_b:0.200000)1:0.300000,4_c:0.400000):0.000000;\n"},
		{"brtree", "", "((a#2:0.100000,b#3:0.200000)#1:0.300000,c#4:0.400000)#0:0.000000;\n"},
		{"partition", "2-3", "foreground=2,3\nbackground=1,4\n"},
		{"partition", "", "foreground=1\nbackground=2,3,4\n"},
	}
	for _, test := range tests {
		var b bytes.Buffer
		if err := export(&b, t, test.mode, test.fg); err != nil {
			tst.Error("Error in mode", test.mode, err)
			continue
		}
		if b.String() != test.out {
			tst.Errorf("Mode %s: expected %q, got %q", test.mode, test.out, b.String())
		}
	}
}

func TestExportErrors(tst *testing.T) {
	t := parse(tst)
	var b bytes.Buffer
	if err := export(&b, t, "partition", "1-4"); err == nil {
		tst.Error("Empty background should be an error")
	}
	if err := export(&b, t, "partition", "x"); err == nil {
		tst.Error("Bad id list should be an error")
	}
	if err := export(&b, t, "selectome", ""); err == nil {
		tst.Error("Unknown mode should be an error")
	}
}
