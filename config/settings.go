package config

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

// Option names.
const (
	KeyAlphabet         = "alphabet"
	KeyGeneticCode      = "genetic_code"
	KeySequenceFile     = "input.sequence.file"
	KeySequenceFormat   = "input.sequence.format"
	KeyTreeFile         = "input.tree.file"
	KeyTreeFormat       = "input.tree.format"
	KeyTreeIDsFile      = "output.tree_ids.file"
	KeyModel            = "model"
	KeyRateDistribution = "rate_distribution"
	KeyOptimization     = "optimization"
	KeyTolerance        = "optimization.tolerance"
	KeyMaxEval          = "optimization.max_number_f_eval"
	KeyIgnore           = "optimization.ignore_parameters"
	KeyProfiler         = "optimization.profiler"
	KeyReport           = "optimization.report"
	KeyOutputTreeFile   = "output.tree.file"
	KeyForeground       = "foreground_branches"
	KeyOutputFile       = "output.file"
	KeyCheckpointFile   = "output.checkpoint.file"
	KeyPlotFile         = "output.plot.file"
	KeyJSONFile         = "output.json.file"
	KeyJSONResults      = "output.json.results"
	KeyAlpha            = "output.alpha"
	KeyProgress         = "output.progress"
)

// none is the value of an unset file option.
const none = "none"

var defaults = map[string]interface{}{
	KeyAlphabet:         "DNA",
	KeyGeneticCode:      "Standard",
	KeySequenceFormat:   "Fasta",
	KeyTreeFormat:       "Newick",
	KeyTreeIDsFile:      none,
	KeyModel:            "HKY85",
	KeyRateDistribution: "Constant",
	KeyOptimization:     "lbfgsb",
	KeyTolerance:        "0.000001",
	KeyMaxEval:          "1000000",
	KeyProfiler:         none,
	KeyReport:           "10",
	KeyOutputTreeFile:   none,
	KeyCheckpointFile:   none,
	KeyPlotFile:         none,
	KeyJSONFile:         none,
	KeyJSONResults:      "false",
	KeyAlpha:            "0.05",
	KeyProgress:         "100",
}

// Settings are the typed program settings.
type Settings struct {
	Alphabet       string `validate:"required"`
	GeneticCode    string `validate:"required"`
	SequenceFile   string `validate:"required,file"`
	SequenceFormat string `validate:"eq=Fasta"`
	TreeFile       string `validate:"required,file"`
	TreeFormat     string `validate:"eq=Newick"`
	// TreeIDsFile is the tagged tree output; when set, nothing else
	// is done.
	TreeIDsFile      string
	Model            string  `validate:"required"`
	RateDistribution string  `validate:"required"`
	Optimization     string  `validate:"oneof=bfgs lbfgsb simplex newton none"`
	Tolerance        float64 `validate:"gt=0"`
	MaxEval          int     `validate:"gt=0"`
	// Profiler is the optimization trajectory output, written every
	// ReportPeriod iterations.
	Profiler     string
	ReportPeriod int `validate:"gt=0"`
	// Ignore lists parameters excluded from the optimization, BrLen
	// stands for all branch lengths.
	Ignore         []string
	OutputTreeFile string
	Foreground     []int
	OutputFile     string `validate:"required_without=TreeIDsFile"`
	CheckpointFile string
	PlotFile       string
	JSONFile       string
	JSONResults    bool
	Alpha          float64 `validate:"gt=0,lt=1"`
	Progress       int     `validate:"gte=0"`
}

var validate = validator.New()

// Settings converts and validates the options.
func (o *Options) Settings() (*Settings, error) {
	var s Settings
	var err error

	str := func(key string) string {
		if err != nil {
			return ""
		}
		var v string
		v, err = o.Get(key)
		return v
	}
	file := func(key string) string {
		v := str(key)
		if v == none {
			return ""
		}
		return v
	}

	s.Alphabet = str(KeyAlphabet)
	s.GeneticCode = str(KeyGeneticCode)
	s.SequenceFile = file(KeySequenceFile)
	s.SequenceFormat = str(KeySequenceFormat)
	s.TreeFile = file(KeyTreeFile)
	s.TreeFormat = str(KeyTreeFormat)
	s.TreeIDsFile = file(KeyTreeIDsFile)
	s.Model = str(KeyModel)
	s.RateDistribution = str(KeyRateDistribution)
	s.Optimization = str(KeyOptimization)
	s.OutputTreeFile = file(KeyOutputTreeFile)
	s.OutputFile = file(KeyOutputFile)
	s.CheckpointFile = file(KeyCheckpointFile)
	s.PlotFile = file(KeyPlotFile)
	s.JSONFile = file(KeyJSONFile)
	s.Profiler = file(KeyProfiler)
	ignore := str(KeyIgnore)
	fg := str(KeyForeground)
	tol := str(KeyTolerance)
	maxEval := str(KeyMaxEval)
	report := str(KeyReport)
	jsonResults := str(KeyJSONResults)
	alpha := str(KeyAlpha)
	progress := str(KeyProgress)
	if err != nil {
		return nil, err
	}

	for _, p := range strings.Split(ignore, ",") {
		if p = strings.TrimSpace(p); p != "" {
			s.Ignore = append(s.Ignore, p)
		}
	}
	if s.Foreground, err = ParseIDList(fg); err != nil {
		return nil, &ConfigError{Key: KeyForeground, Err: err}
	}
	if s.Tolerance, err = strconv.ParseFloat(tol, 64); err != nil {
		return nil, &ConfigError{Key: KeyTolerance, Err: err}
	}
	if s.MaxEval, err = strconv.Atoi(maxEval); err != nil {
		return nil, &ConfigError{Key: KeyMaxEval, Err: err}
	}
	if s.ReportPeriod, err = strconv.Atoi(report); err != nil {
		return nil, &ConfigError{Key: KeyReport, Err: err}
	}
	if s.JSONResults, err = strconv.ParseBool(jsonResults); err != nil {
		return nil, &ConfigError{Key: KeyJSONResults, Err: err}
	}
	if s.Alpha, err = strconv.ParseFloat(alpha, 64); err != nil {
		return nil, &ConfigError{Key: KeyAlpha, Err: err}
	}
	if s.Progress, err = strconv.Atoi(progress); err != nil {
		return nil, &ConfigError{Key: KeyProgress, Err: err}
	}

	if err := validate.Struct(&s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, &ConfigError{Key: fieldKeys[fe.Field()], Err: eris.Errorf("failed %q check (value %v)", fe.Tag(), fe.Value())}
		}
		return nil, &ConfigError{Err: err}
	}
	return &s, nil
}

// fieldKeys maps Settings fields to option names for error messages.
var fieldKeys = map[string]string{
	"Alphabet":         KeyAlphabet,
	"GeneticCode":      KeyGeneticCode,
	"SequenceFile":     KeySequenceFile,
	"SequenceFormat":   KeySequenceFormat,
	"TreeFile":         KeyTreeFile,
	"TreeFormat":       KeyTreeFormat,
	"Model":            KeyModel,
	"RateDistribution": KeyRateDistribution,
	"Optimization":     KeyOptimization,
	"Tolerance":        KeyTolerance,
	"MaxEval":          KeyMaxEval,
	"ReportPeriod":     KeyReport,
	"OutputFile":       KeyOutputFile,
	"Alpha":            KeyAlpha,
	"Progress":         KeyProgress,
}

// ParseCall parses a description like HKY85(kappa=2, theta=0.5) into
// the name and the arguments. Argument values may contain
// parentheses.
func ParseCall(desc string) (name string, args map[string]string, err error) {
	desc = strings.TrimSpace(desc)
	i := strings.IndexByte(desc, '(')
	if i < 0 {
		if desc == "" || strings.ContainsAny(desc, ")=,") {
			return "", nil, eris.Errorf("bad description %q", desc)
		}
		return desc, map[string]string{}, nil
	}
	if !strings.HasSuffix(desc, ")") {
		return "", nil, eris.Errorf("missing ')' in %q", desc)
	}
	name = strings.TrimSpace(desc[:i])
	if name == "" {
		return "", nil, eris.Errorf("missing name in %q", desc)
	}
	args = make(map[string]string)
	body := desc[i+1 : len(desc)-1]
	depth, start := 0, 0
	add := func(part string) error {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil
		}
		k, v, ok := strings.Cut(part, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return eris.Errorf("argument %q is not key=value in %q", part, desc)
		}
		if _, dup := args[k]; dup {
			return eris.Errorf("duplicate argument %q in %q", k, desc)
		}
		args[k] = strings.TrimSpace(v)
		return nil
	}
	for j, c := range body {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return "", nil, eris.Errorf("unbalanced parentheses in %q", desc)
			}
		case ',':
			if depth == 0 {
				if err := add(body[start:j]); err != nil {
					return "", nil, err
				}
				start = j + 1
			}
		}
	}
	if depth != 0 {
		return "", nil, eris.Errorf("unbalanced parentheses in %q", desc)
	}
	if err := add(body[start:]); err != nil {
		return "", nil, err
	}
	return name, args, nil
}

// ParseIDList parses a list of ids separated by commas; a-b stands
// for all ids from a to b inclusive.
func ParseIDList(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		from, to, isRange := strings.Cut(part, "-")
		a, err := strconv.Atoi(strings.TrimSpace(from))
		if err != nil {
			return nil, eris.Errorf("bad id %q", part)
		}
		if !isRange {
			ids = append(ids, a)
			continue
		}
		b, err := strconv.Atoi(strings.TrimSpace(to))
		if err != nil || b < a {
			return nil, eris.Errorf("bad range %q", part)
		}
		for id := a; id <= b; id++ {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
