package shift

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
)

// Header is the result table header.
const Header = "Group\tr\tr.fg\tr.bg\tAIC1\tAIC2\tdiffLnL\tP.value"

// Sink writes site results as a tab-separated table. Every row is
// flushed after it is written, so an interrupted run leaves a valid
// partial table.
type Sink struct {
	path   string
	w      *bufio.Writer
	closer io.Closer
}

// NewSink creates the file and writes the header.
func NewSink(path string) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &SinkWriteError{Path: path, Err: err}
	}
	s := &Sink{path: path, w: bufio.NewWriter(f), closer: f}
	if err := s.writeLine(Header); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// NewWriterSink writes the header and returns a sink writing to w.
func NewWriterSink(w io.Writer) (*Sink, error) {
	s := &Sink{w: bufio.NewWriter(w)}
	if err := s.writeLine(Header); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sink) writeLine(line string) error {
	if _, err := s.w.WriteString(line + "\n"); err != nil {
		return &SinkWriteError{Path: s.path, Err: err}
	}
	if err := s.w.Flush(); err != nil {
		return &SinkWriteError{Path: s.path, Err: err}
	}
	return nil
}

// Write writes a row for the site.
func (s *Sink) Write(r SiteResult) error {
	return s.writeLine(FormatRow(r))
}

// Close flushes and closes the underlying file.
func (s *Sink) Close() error {
	if err := s.w.Flush(); err != nil {
		return &SinkWriteError{Path: s.path, Err: err}
	}
	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			return &SinkWriteError{Path: s.path, Err: err}
		}
	}
	return nil
}

// FormatRow renders a table row; the group is the site position in
// brackets.
func FormatRow(r SiteResult) string {
	b := make([]byte, 0, 128)
	b = append(b, '[')
	b = strconv.AppendInt(b, int64(r.Position), 10)
	b = append(b, ']')
	for _, v := range []float64{r.Rate, r.RateFg, r.RateBg, r.AIC1, r.AIC2, r.DiffLnL, r.PValue} {
		b = append(b, '\t')
		b = append(b, FormatFloat(v)...)
	}
	return string(b)
}

// FormatFloat formats a number with six significant digits.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}
