/*
Brexp helps selecting foreground branches. It has four modes: "brlen"
exports all the branch lengths as BrLen parameters, "ids" writes the
tree with leaves named <id>_<name> and internal nodes labeled with
their ids, "brtree" writes the tree with ids as class marks and
"partition" prints foreground and background branches for a list of
foreground ids (or for the #1 marks in the tree).
*/
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/op/go-logging"
	"gopkg.in/alecthomas/kingpin.v2"

	"bitbucket.org/Davydov/rateshift/config"
	"bitbucket.org/Davydov/rateshift/likelihood"
	"bitbucket.org/Davydov/rateshift/shift"
	"bitbucket.org/Davydov/rateshift/tree"
)

var log = logging.MustGetLogger("brexp")

var (
	app        = kingpin.New("brexp", "branch ids and lengths of a newick tree")
	inFileName = app.Flag("in", "input filename, stdin by default").ExistingFile()
	mode       = app.Flag("mode", "program mode").Default("brlen").Enum("brlen", "ids", "brtree", "partition")
	fg         = app.Flag("fg", "foreground branch ids for the partition mode, e.g. 1,4-6").String()
)

// export writes the tree in the given mode.
func export(w io.Writer, t *tree.Tree, mode, fgList string) error {
	switch mode {
	case "brlen":
		for _, id := range t.BranchIDs() {
			fmt.Fprintf(w, "%s%d=%f\n", likelihood.BrLenPrefix, id, t.Nodes()[id].BranchLength)
		}
	case "ids":
		return t.WriteTagged(w)
	case "brtree":
		fmt.Fprintln(w, t.StringBr())
	case "partition":
		ids, err := config.ParseIDList(fgList)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			for node := range t.ClassNodes(1) {
				ids = append(ids, node.Id)
			}
		}
		part, err := shift.Partition(t.BranchIDs(), ids)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "foreground=%s\n", joinIDs(part.Foreground))
		fmt.Fprintf(w, "background=%s\n", joinIDs(part.Background))
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
	return nil
}

func joinIDs(ids []int) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = fmt.Sprint(id)
	}
	return strings.Join(s, ",")
}

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))
	logging.SetBackend(logging.NewLogBackend(os.Stderr, "", 0))

	infile := os.Stdin
	if *inFileName != "" {
		f, err := os.Open(*inFileName)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		infile = f
	}

	t, err := tree.ParseNewick(infile)
	if err != nil {
		log.Fatal(err)
	}
	if err := export(os.Stdout, t, *mode, *fg); err != nil {
		log.Fatal(err)
	}
}
