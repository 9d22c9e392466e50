package tree

import (
	"bytes"
	"reflect"
	"testing"
)

const (
	tree2 = "((a:1,b:2)#1:3,c:1):0;"
	tree3 = "((a:0.1,b:0.2)95:0.3,(c:0.1,d:0.1)80:0.2);"
)

func TestParse(tst *testing.T) {
	t, err := ParseNewick(bytes.NewBufferString(tree2))
	if err != nil {
		tst.Fatal("Error parsing tree", err)
	}
	if t.NNodes() != 5 || t.NLeaves() != 3 {
		tst.Error("Wrong number of nodes:", t.NNodes(), t.NLeaves())
	}
	if ids := t.BranchIDs(); !reflect.DeepEqual(ids, []int{1, 2, 3, 4}) {
		tst.Error("Wrong branch ids:", ids)
	}
	nodes := t.Nodes()
	if nodes[2].Name != "a" || nodes[3].Name != "b" || nodes[4].Name != "c" {
		tst.Error("Wrong node ids:", t.FullString())
	}
	if nodes[1].Class != 1 || nodes[1].BranchLength != 3 {
		tst.Error("Wrong internal node:", nodes[1].LongString())
	}
	if nodes[2].LeafId != 0 || nodes[4].LeafId != 2 || nodes[1].LeafId != -1 {
		tst.Error("Wrong leaf ids")
	}
	order := t.NodeOrder()
	if len(order) != 2 || order[0].Id != 1 || order[1].Id != 0 {
		tst.Error("Wrong node order")
	}
	if !t.IsRooted() {
		tst.Error("Tree should be rooted")
	}
	n := 0
	for node := range t.ClassNodes(1) {
		if node.Id != 1 {
			tst.Error("Wrong class node", node.Id)
		}
		n++
	}
	if n != 1 {
		tst.Error("Expected one class node")
	}
}

func TestInternalLabels(tst *testing.T) {
	t, err := ParseNewick(bytes.NewBufferString(tree3))
	if err != nil {
		tst.Fatal("Error parsing tree", err)
	}
	if t.Nodes()[1].Name != "95" {
		tst.Error("Internal label is lost:", t.FullString())
	}
	if s := t.String(); s != "((a:0.100000,b:0.200000)95:0.300000,(c:0.100000,d:0.100000)80:0.200000):0.000000;" {
		tst.Error("Wrong tree string:", s)
	}
}

func TestIDString(tst *testing.T) {
	t, err := ParseNewick(bytes.NewBufferString(tree2))
	if err != nil {
		tst.Fatal("Error parsing tree", err)
	}
	exp := "((2_a:1.000000,3_b:2.000000)1:3.000000,4_c:1.000000):0.000000;"
	if s := t.IDString(); s != exp {
		tst.Error("Wrong tagged tree:", s)
	}
	var b bytes.Buffer
	if err := t.WriteTagged(&b); err != nil {
		tst.Fatal(err)
	}
	if b.String() != exp+"\n" {
		tst.Error("Wrong tagged output:", b.String())
	}
	if s := t.ClassString(); s != "((a:1.000000,b:2.000000)#1:3.000000,c:1.000000):0.000000;" {
		tst.Error("Wrong class string:", s)
	}
}

func TestParseErrors(tst *testing.T) {
	for _, s := range []string{
		"((a:1,b:2):1,c:1",
		"((a:1,b:2):1,c:1));",
		"(a:x,b:1);",
		"(a:1,:1);",
		"a;",
	} {
		if _, err := ParseNewick(bytes.NewBufferString(s)); err == nil {
			tst.Errorf("Expected an error for %q", s)
		}
	}
}
