// Package config reads program options. Options are key=value pairs
// given on the command line or in option files, with environment
// overrides, and are converted to validated Settings.
package config

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/op/go-logging"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

var log = logging.MustGetLogger("config")

const (
	// EnvPrefix is the prefix of environment variables overriding
	// options, e.g. RATESHIFT_OUTPUT_FILE for output.file.
	EnvPrefix = "RATESHIFT"
	// IncludeKey names an option file to read.
	IncludeKey = "param"
	// maxDepth limits nested includes and variable substitution.
	maxDepth = 20
)

// ConfigError is an invalid or missing option.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return "configuration: " + e.Err.Error()
	}
	return "option " + e.Key + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Options is a set of string options.
type Options struct {
	v *viper.Viper
}

// New creates an empty set of options with defaults.
func New() *Options {
	// keys contain dots, so nesting is disabled
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	return &Options{v: v}
}

// Set sets an option. Later values override earlier ones.
func (o *Options) Set(key, value string) {
	key = strings.TrimSpace(key)
	if err := o.v.MergeConfigMap(map[string]interface{}{key: strings.TrimSpace(value)}); err != nil {
		// merging a flat map cannot fail
		panic(err)
	}
}

// ParseArgs reads command line arguments of the form key=value.
// Options from a file given by param=<file> are read first, so the
// other arguments override them.
func (o *Options) ParseArgs(args []string) error {
	var rest [][2]string
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return &ConfigError{Err: eris.Errorf("argument %q is not key=value", arg)}
		}
		key = strings.TrimSpace(key)
		if key == IncludeKey {
			if err := o.ReadFile(strings.TrimSpace(value)); err != nil {
				return err
			}
			continue
		}
		rest = append(rest, [2]string{key, value})
	}
	for _, kv := range rest {
		o.Set(kv[0], kv[1])
	}
	return nil
}

// ReadFile reads an option file.
func (o *Options) ReadFile(path string) error {
	return o.readFile(path, 0)
}

func (o *Options) readFile(path string, depth int) error {
	if depth > maxDepth {
		return &ConfigError{Key: IncludeKey, Err: eris.Errorf("too many nested includes at %s", path)}
	}
	f, err := os.Open(path)
	if err != nil {
		return &ConfigError{Key: IncludeKey, Err: eris.Wrap(err, "reading option file")}
	}
	defer f.Close()
	log.Infof("Reading options from %s", path)
	return o.read(f, path, depth)
}

// Read reads options in the option file format: key = value lines,
// text after # is a comment, a trailing backslash continues the line.
func (o *Options) Read(r io.Reader, name string) error {
	return o.read(r, name, 0)
}

func (o *Options) read(r io.Reader, name string, depth int) error {
	scanner := bufio.NewScanner(r)
	var line strings.Builder
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimRight(text, " \t\r")
		if strings.HasSuffix(text, "\\") {
			line.WriteString(strings.TrimSuffix(text, "\\"))
			continue
		}
		line.WriteString(text)
		full := strings.TrimSpace(line.String())
		line.Reset()
		if full == "" {
			continue
		}
		key, value, ok := strings.Cut(full, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return &ConfigError{Err: eris.Errorf("%s:%d: expected key = value", name, lineNo)}
		}
		key = strings.TrimSpace(key)
		if key == IncludeKey {
			inc := strings.TrimSpace(value)
			if !filepath.IsAbs(inc) && name != "" {
				if _, err := os.Stat(inc); err != nil {
					inc = filepath.Join(filepath.Dir(name), inc)
				}
			}
			if err := o.readFile(inc, depth+1); err != nil {
				return err
			}
			continue
		}
		o.Set(key, value)
	}
	if err := scanner.Err(); err != nil {
		return &ConfigError{Err: eris.Wrapf(err, "reading %s", name)}
	}
	if line.Len() > 0 {
		return &ConfigError{Err: eris.Errorf("%s: continuation at the end of file", name)}
	}
	return nil
}

// Raw returns an option value without variable substitution.
func (o *Options) Raw(key string) string {
	return o.v.GetString(key)
}

// Get returns an option value. $(NAME) is replaced by the value of
// the option NAME.
func (o *Options) Get(key string) (string, error) {
	return o.resolve(key, o.v.GetString(key), 0)
}

func (o *Options) resolve(key, value string, depth int) (string, error) {
	if depth > maxDepth {
		return "", &ConfigError{Key: key, Err: eris.New("recursive variable substitution")}
	}
	var b strings.Builder
	for {
		i := strings.Index(value, "$(")
		if i < 0 {
			b.WriteString(value)
			break
		}
		j := strings.IndexByte(value[i:], ')')
		if j < 0 {
			return "", &ConfigError{Key: key, Err: eris.Errorf("unterminated variable in %q", value)}
		}
		name := value[i+2 : i+j]
		if !o.v.IsSet(name) {
			return "", &ConfigError{Key: key, Err: eris.Errorf("undefined variable %q", name)}
		}
		sub, err := o.resolve(key, o.v.GetString(name), depth+1)
		if err != nil {
			return "", err
		}
		b.WriteString(value[:i])
		b.WriteString(sub)
		value = value[i+j+1:]
	}
	return b.String(), nil
}

// Keys returns all the option names, sorted.
func (o *Options) Keys() []string {
	keys := o.v.AllKeys()
	sort.Strings(keys)
	return keys
}

// Log prints all options at the info level.
func (o *Options) Log() {
	for _, k := range o.Keys() {
		log.Infof("%s = %s", k, o.Raw(k))
	}
}
