package tree

import (
	"bytes"
	"testing"
)

const (
	treeCopy = "((a:0.1,b:0.2)#1:0.05,((c:0.15,d:0.1)#1:0.02,e:0.3):0.05);"
)

func TestCopy(tst *testing.T) {
	t, err := ParseNewick(bytes.NewBufferString(treeCopy))
	if err != nil {
		tst.Fatal("Error parsing tree", err)
	}
	c := t.Copy()

	if c.String() != t.String() || c.IDString() != t.IDString() {
		tst.Error("Copy differs:", c.IDString())
	}
	if c.NNodes() != t.NNodes() || len(c.NodeOrder()) != len(t.NodeOrder()) {
		tst.Error("Wrong number of nodes in the copy")
	}

	for i, node := range c.Nodes() {
		orig := t.Nodes()[i]
		if node == orig {
			tst.Error("Node is shared between copies:", i)
		}
		if node.Id != i || node.LeafId != orig.LeafId || node.Class != orig.Class {
			tst.Error("Node differs:", node.LongString(), orig.LongString())
		}
		if !node.IsRoot() && node.Parent.Id != orig.Parent.Id {
			tst.Error("Wrong parent of node", i)
		}
	}

	n := 0
	for range c.ClassNodes(1) {
		n++
	}
	if n != 2 {
		tst.Error("Expected two marked branches, got", n)
	}

	for _, node := range c.Nodes() {
		node.BranchLength = 1
	}
	if t.Nodes()[2].BranchLength != 0.1 {
		tst.Error("Changing the copy changed the original")
	}
}

func TestNodeOrder(tst *testing.T) {
	t, err := ParseNewick(bytes.NewBufferString(treeCopy))
	if err != nil {
		tst.Fatal("Error parsing tree", err)
	}
	order := t.NodeOrder()
	if len(order) != t.NNodes()-t.NLeaves() {
		tst.Fatal("Wrong number of internal nodes:", len(order))
	}
	seen := make(map[*Node]bool)
	for _, node := range order {
		for _, child := range node.ChildNodes() {
			if !child.IsTerminal() && !seen[child] {
				tst.Error("Node", node.Id, "comes before its child", child.Id)
			}
		}
		seen[node] = true
	}
	if order[len(order)-1] != t.Node {
		tst.Error("Root should be the last node")
	}
}
