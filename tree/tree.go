// Package tree implements newick trees. Nodes are stored in an array
// indexed by node id; ids are assigned in the parse order, the root
// has id 0. The branch above a node has the same id as the node.
package tree

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("tree")

// Mode is the newick parser state.
type Mode int

const (
	NORMAL Mode = iota
	LENGTH
	CLASS
)

// Tree is a rooted tree; the embedded node is the root.
type Tree struct {
	*Node
	nNodes    int
	nodes     []*Node
	nodeOrder []*Node
}

// NNodes returns the number of nodes including the root.
func (tree *Tree) NNodes() int {
	if tree.nNodes == 0 {
		tree.nNodes = tree.NSubNodes()
	}
	return tree.nNodes
}

// Nodes returns nodes indexed by node id.
func (tree *Tree) Nodes() []*Node {
	if tree.nodes == nil {
		tree.nodes = make([]*Node, tree.NNodes())
		for node := range tree.Walker(nil) {
			tree.nodes[node.Id] = node
		}
	}
	return tree.nodes
}

// BranchIDs returns ids of all the branches (all the nodes except
// the root) in the increasing order.
func (tree *Tree) BranchIDs() []int {
	ids := make([]int, 0, tree.NNodes()-1)
	for _, node := range tree.Nodes() {
		if !node.IsRoot() {
			ids = append(ids, node.Id)
		}
	}
	sort.Ints(ids)
	return ids
}

// Terminals returns a channel with all the leaves.
func (tree *Tree) Terminals() <-chan *Node {
	return tree.Walker(func(n *Node) bool {
		return n.IsTerminal()
	})
}

// ClassNodes returns a channel with nodes marked with the class.
func (tree *Tree) ClassNodes(class int) <-chan *Node {
	return tree.Walker(func(node *Node) bool {
		return node.Class == class
	})
}

// NLeaves returns the number of leaves.
func (tree *Tree) NLeaves() (i int) {
	for range tree.Terminals() {
		i++
	}
	return
}

// IsRooted returns true if the root has two children.
func (tree *Tree) IsRooted() bool {
	return len(tree.Node.childNodes) == 2
}

// Walker returns a channel with nodes in the preorder, filter can
// be nil.
func (tree *Tree) Walker(filter func(*Node) bool) <-chan *Node {
	ch := make(chan *Node, tree.NNodes())
	tree.Walk(ch, filter)
	close(ch)
	return ch
}

// Copy creates an independent copy of the tree keeping node ids.
func (tree *Tree) Copy() *Tree {
	newTree := &Tree{Node: tree.Node.copySubtree(nil)}
	if newTree.NNodes() != tree.NNodes() || newTree.Nodes()[0] != newTree.Node {
		panic("node id mismatch")
	}
	return newTree
}

// copySubtree copies the node with all its descendants.
func (node *Node) copySubtree(parent *Node) *Node {
	c := node.Copy()
	if parent != nil {
		parent.AddChild(c)
	}
	for _, child := range node.childNodes {
		child.copySubtree(c)
	}
	return c
}

// NodeOrder returns internal nodes in an order where every node
// follows all its children (the root is the last one).
func (tree *Tree) NodeOrder() []*Node {
	if tree.nodeOrder == nil {
		tree.nodeOrder = make([]*Node, 0, tree.NNodes()-tree.NLeaves())
		tree.Node.postorder(func(node *Node) {
			if !node.IsTerminal() {
				tree.nodeOrder = append(tree.nodeOrder, node)
			}
		})
	}
	return tree.nodeOrder
}

// postorder calls f for the subtree nodes, children first.
func (node *Node) postorder(f func(*Node)) {
	for _, child := range node.childNodes {
		child.postorder(f)
	}
	f(node)
}

// IDString returns a newick string where leaves are named
// <id>_<name> and internal nodes are labeled with their ids.
func (tree *Tree) IDString() string {
	var b strings.Builder
	tree.Node.writeNewick(&b, func(node *Node) string {
		switch {
		case node.IsTerminal():
			return fmt.Sprintf("%d_%s", node.Id, node.Name)
		case node.IsRoot():
			return ""
		}
		return strconv.Itoa(node.Id)
	})
	return b.String()
}

// WriteTagged writes the tree returned by IDString followed by a
// newline.
func (tree *Tree) WriteTagged(w io.Writer) error {
	_, err := fmt.Fprintln(w, tree.IDString())
	return err
}

// Node is a tree node. Branch length is the length of the branch
// leading to the node.
type Node struct {
	Name         string
	BranchLength float64
	Parent       *Node
	childNodes   []*Node
	Id           int
	LeafId       int
	Class        int
}

// NewNode creates a node.
func NewNode(parent *Node, nodeId int) (node *Node) {
	node = &Node{Parent: parent, Id: nodeId, LeafId: -1}
	return
}

// Copy creates copy of node with empty parent and children.
func (node *Node) Copy() *Node {
	return &Node{
		Name:         node.Name,
		BranchLength: node.BranchLength,
		childNodes:   make([]*Node, 0, len(node.childNodes)),
		Id:           node.Id,
		LeafId:       node.LeafId,
		Class:        node.Class,
	}
}

// AddChild adds a child node.
func (node *Node) AddChild(subNode *Node) {
	subNode.Parent = node
	node.childNodes = append(node.childNodes, subNode)
}

// writeNewick writes the subtree; label returns a node label.
func (node *Node) writeNewick(b *strings.Builder, label func(*Node) string) {
	if !node.IsTerminal() {
		b.WriteByte('(')
		for i, child := range node.childNodes {
			if i != 0 {
				b.WriteByte(',')
			}
			child.writeNewick(b, label)
		}
		b.WriteByte(')')
	}
	b.WriteString(label(node))
	fmt.Fprintf(b, ":%0.6f", node.BranchLength)
	if node.IsRoot() {
		b.WriteByte(';')
	}
}

// StringBr returns a newick string with branch ids as class marks.
func (node *Node) StringBr() string {
	var b strings.Builder
	node.writeNewick(&b, func(n *Node) string {
		return fmt.Sprintf("%s#%d", n.Name, n.Id)
	})
	return b.String()
}

// ClassString returns a newick string with class marks.
func (node *Node) ClassString() string {
	var b strings.Builder
	node.writeNewick(&b, func(n *Node) string {
		if n.Class != 0 {
			return fmt.Sprintf("%s#%d", n.Name, n.Class)
		}
		return n.Name
	})
	return b.String()
}

func (node *Node) String() string {
	var b strings.Builder
	node.writeNewick(&b, func(n *Node) string {
		return n.Name
	})
	return b.String()
}

// LongString returns a description of the node.
func (node *Node) LongString() (s string) {
	s = "<"
	if node.Parent == nil {
		s += "root, "
	}
	if node.Name != "" {
		s += "name=" + node.Name + ", "
	}
	s += fmt.Sprintf("Id=%v, BranchLength=%v", node.Id, node.BranchLength)
	if node.IsTerminal() {
		s += fmt.Sprintf(", TipId=%v", node.LeafId)
	}
	if node.Class != 0 {
		s += fmt.Sprintf(", Class=%v", node.Class)
	}
	s += ">"
	return
}

// FullString returns an indented description of the subtree.
func (node *Node) FullString() string {
	return strings.TrimSpace(node.prefixString(""))
}

func (node *Node) prefixString(prefix string) (s string) {
	s = prefix + node.LongString() + "\n"
	for _, node := range node.childNodes {
		s += node.prefixString(prefix + "    ")
	}
	return
}

// ChildNodes returns children of the node.
func (node *Node) ChildNodes() []*Node {
	return node.childNodes
}

// Walk sends the subtree nodes to the channel in the preorder.
func (node *Node) Walk(ch chan *Node, filter func(*Node) bool) {
	if filter == nil || filter(node) {
		ch <- node
	}
	for _, node := range node.childNodes {
		node.Walk(ch, filter)
	}
}

// NSubNodes returns the number of nodes in the subtree.
func (node *Node) NSubNodes() (size int) {
	for _, node := range node.childNodes {
		size += node.NSubNodes()
	}
	return size + 1
}

func (node *Node) IsRoot() bool {
	return node.Parent == nil
}

func (node *Node) IsTerminal() bool {
	return len(node.childNodes) == 0
}

// IsSpecial returns true for newick control characters.
func IsSpecial(c rune) bool {
	switch c {
	case '(', ')', ':', '#', ';', ',':
		return true
	}
	return false
}

// NewickSplit is a bufio.SplitFunc splitting newick into tokens.
func NewickSplit(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	// Skip leading spaces; and return 1-char tokens.
	for width := 0; start < len(data); start += width {
		var r rune
		r, width = utf8.DecodeRune(data[start:])
		if IsSpecial(r) {
			return start + width, data[start : start+width], nil
		}
		if !unicode.IsSpace(r) {
			break
		}
	}
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// Scan until space or special character.
	for width, i := 0, start; i < len(data); i += width {
		var r rune
		r, width = utf8.DecodeRune(data[i:])
		if unicode.IsSpace(r) || IsSpecial(r) {
			return i, data[start:i], nil
		}
	}
	// If we're at EOF, we have a final, non-empty, non-terminated word. Return it.
	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	// Request more data.
	return 0, nil, nil
}

// ParseNewick reads a tree in the newick format. Internal node
// labels are kept as node names. Leaves get LeafId in the order of
// appearance.
func ParseNewick(rd io.Reader) (tree *Tree, err error) {
	scanner := bufio.NewScanner(rd)
	scanner.Split(NewickSplit)

	nodeId := 0

	node := NewNode(nil, nodeId)
	tree = &Tree{Node: node}
	nodeId++

	mode := NORMAL
	finished := false

	for !finished && scanner.Scan() {
		text := scanner.Text()
		switch text {
		case "(":
			subNode := NewNode(nil, nodeId)
			nodeId++
			node.AddChild(subNode)
			node = subNode

		case ",":
			if node.Parent == nil {
				return nil, errors.New("top level comma mismatch")
			}
			subNode := NewNode(nil, nodeId)
			nodeId++

			node.Parent.AddChild(subNode)
			node = subNode

		case ")":
			if node.Parent == nil {
				return nil, errors.New("brackets mismatch")
			}
			node = node.Parent
		case "#":
			mode = CLASS
		case ":":
			mode = LENGTH
		case ";":
			finished = true
		default:
			switch mode {
			case LENGTH:
				l, err := strconv.ParseFloat(text, 64)
				if err != nil {
					return nil, fmt.Errorf("wrong branch length %q: %v", text, err)
				}
				node.BranchLength = l
				mode = NORMAL
			case CLASS:
				cl, err := strconv.ParseInt(text, 0, 0)
				if err != nil {
					return nil, fmt.Errorf("wrong class mark %q: %v", text, err)
				}
				node.Class = int(cl)
				mode = NORMAL
			default:
				node.Name = text
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !finished {
		return nil, errors.New("newick tree should end with ';'")
	}
	if node != tree.Node {
		return nil, errors.New("brackets mismatch")
	}
	if tree.NNodes() < 2 {
		return nil, errors.New("tree has no branches")
	}

	leafId := 0
	for _, node := range tree.Nodes() {
		if node.IsTerminal() {
			if node.Name == "" {
				return nil, fmt.Errorf("leaf %d has no name", node.Id)
			}
			node.LeafId = leafId
			leafId++
		}
	}
	log.Debugf("Parsed tree with %d nodes and %d leaves", tree.NNodes(), leafId)

	return
}
