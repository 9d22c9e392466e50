// Package bio provides sequences, alphabets, genetic codes and
// alignments.
package bio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("bio")

// Sequence is a named sequence as read from a file.
type Sequence struct {
	Name     string
	Sequence string
}

// Sequences are sequences in the file order.
type Sequences []Sequence

// ParseFasta reads FASTA sequences. Names are the header lines
// without the '>', sequence lines are upper-cased with the
// whitespace removed. Empty files and data before the first header
// are errors.
func ParseFasta(rd io.Reader) (Sequences, error) {
	var seqs Sequences
	var b strings.Builder
	flush := func() {
		if len(seqs) > 0 {
			seqs[len(seqs)-1].Sequence = b.String()
		}
		b.Reset()
	}

	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line[0] == '>':
			flush()
			name := strings.TrimSpace(line[1:])
			if name == "" {
				return nil, fmt.Errorf("line %d: empty sequence name", lineNo)
			}
			seqs = append(seqs, Sequence{Name: name})
		case len(seqs) == 0:
			return nil, fmt.Errorf("line %d: sequence without a header", lineNo)
		default:
			for _, c := range line {
				if !unicode.IsSpace(c) {
					b.WriteRune(unicode.ToUpper(c))
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	if len(seqs) == 0 {
		return nil, errors.New("no sequences found")
	}
	log.Debugf("Read %d sequences", len(seqs))
	return seqs, nil
}
