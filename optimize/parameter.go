package optimize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// FloatParameter is a named real-valued parameter stored somewhere in
// a model. Setting a new value calls the onChange callback, which is
// used by models to invalidate their caches.
type FloatParameter interface {
	Name() string
	String() string
	SetMin(float64)
	SetMax(float64)
	GetMin() float64
	GetMax() float64
	SetOnChange(func())
	Get() float64
	Set(float64)
	InRange() bool
	ValueInRange(float64) bool
}

// FloatParameterGenerator creates a parameter from a pointer and a
// name.
type FloatParameterGenerator func(*float64, string) FloatParameter

// FloatParameters is an ordered list of parameters.
type FloatParameters []FloatParameter

// Append adds a parameter to the list.
func (p *FloatParameters) Append(par FloatParameter) {
	*p = append(*p, par)
}

// Names returns parameter names.
func (p FloatParameters) Names(is []string) (s []string) {
	if is == nil {
		s = make([]string, len(p))
	} else {
		s = is
	}
	for i, par := range p {
		s[i] = par.Name()
	}
	return
}

// Values returns parameter values. If iv is not nil, it is used for
// storage.
func (p *FloatParameters) Values(iv []float64) (v []float64) {
	if iv == nil {
		v = make([]float64, len(*p))
	} else {
		v = iv
	}
	for i, par := range *p {
		v[i] = par.Get()
	}
	return
}

// ValuesInRange checks that all the values are within the parameter
// boundaries.
func (p *FloatParameters) ValuesInRange(vals []float64) bool {
	if len(vals) != len(*p) {
		panic("Incorrect number of parameters")
	}
	for i, par := range *p {
		if !par.ValueInRange(vals[i]) {
			return false
		}
	}
	return true
}

// SetValues sets all the parameter values.
func (p *FloatParameters) SetValues(v []float64) error {
	if len(v) != len(*p) {
		return fmt.Errorf("incorrect number of parameters: %d instead of %d", len(v), len(*p))
	}
	for i, par := range *p {
		par.Set(v[i])
	}
	return nil
}

// Update copies values from another parameter list of the same
// structure.
func (p *FloatParameters) Update(pSrc *FloatParameters) {
	for i := range *p {
		(*p)[i].Set((*pSrc)[i].Get())
	}
}

// InRange checks if all the parameters are within their boundaries.
func (p *FloatParameters) InRange() bool {
	for _, par := range *p {
		if !par.InRange() {
			return false
		}
	}
	return true
}

// Get finds a parameter by name, returns nil if not found.
func (p FloatParameters) Get(name string) FloatParameter {
	for _, par := range p {
		if par.Name() == name {
			return par
		}
	}
	return nil
}

// Subset returns parameters with the given names in the given order.
func (p *FloatParameters) Subset(names []string) (FloatParameters, error) {
	sub := make(FloatParameters, 0, len(names))
	for _, name := range names {
		par := p.Get(name)
		if par == nil {
			return nil, fmt.Errorf("unknown parameter %q", name)
		}
		sub = append(sub, par)
	}
	return sub, nil
}

// AtBoundary returns the names of parameters which are closer than
// eps (relative to the range, or absolute for infinite ranges) to one
// of their boundaries.
func (p *FloatParameters) AtBoundary(eps float64) (names []string) {
	for _, par := range *p {
		v := par.Get()
		min, max := par.GetMin(), par.GetMax()
		d := eps
		if !math.IsInf(min, 0) && !math.IsInf(max, 0) {
			d = eps * (max - min)
		}
		if v-min < d || max-v < d {
			names = append(names, par.Name())
		}
	}
	return
}

// NamesString returns tab-separated parameter names.
func (p FloatParameters) NamesString() (s string) {
	for i, par := range p {
		if i != 0 {
			s += "\t"
		}
		s += par.Name()
	}
	return
}

// ValuesString returns tab-separated parameter values.
func (p *FloatParameters) ValuesString() (s string) {
	for i, par := range *p {
		if i != 0 {
			s += "\t"
		}
		s += par.String()
	}
	return
}

// ValuesMap returns parameter values indexed by names.
func (p FloatParameters) ValuesMap() map[string]float64 {
	m := make(map[string]float64, len(p))
	for _, par := range p {
		m[par.Name()] = par.Get()
	}
	return m
}

// SetValuesMap sets parameters from a map; all the parameters must
// be present.
func (p FloatParameters) SetValuesMap(m map[string]float64) error {
	for _, par := range p {
		v, ok := m[par.Name()]
		if !ok {
			return fmt.Errorf("no value for parameter %q", par.Name())
		}
		par.Set(v)
	}
	return nil
}

// MarshalJSON encodes parameters as an object keeping parameter
// order.
func (p FloatParameters) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, par := range p {
		if i != 0 {
			b.WriteByte(',')
		}
		name, err := json.Marshal(par.Name())
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(par.Get())
		if err != nil {
			return nil, err
		}
		b.Write(name)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON sets parameter values from a JSON object. Unknown
// names are an error.
func (p *FloatParameters) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for name, v := range m {
		par := p.Get(name)
		if par == nil {
			return fmt.Errorf("unknown parameter %q", name)
		}
		par.Set(v)
	}
	return nil
}

// BasicFloatParameter is a parameter pointing to a float64 value.
type BasicFloatParameter struct {
	*float64
	name     string
	min      float64
	max      float64
	onChange func()
}

// NewBasicFloatParameter creates a parameter without boundaries.
func NewBasicFloatParameter(par *float64, name string) *BasicFloatParameter {
	return &BasicFloatParameter{
		float64: par,
		name:    name,
		min:     math.Inf(-1),
		max:     math.Inf(+1),
	}
}

// BasicFloatParameterGenerator is a FloatParameterGenerator creating
// BasicFloatParameter.
func BasicFloatParameterGenerator(par *float64, name string) FloatParameter {
	return NewBasicFloatParameter(par, name)
}

func (p *BasicFloatParameter) SetMin(min float64) {
	p.min = min
}

func (p *BasicFloatParameter) SetMax(max float64) {
	p.max = max
}

func (p *BasicFloatParameter) SetOnChange(f func()) {
	p.onChange = f
}

func (p *BasicFloatParameter) Get() float64 {
	return *p.float64
}

func (p *BasicFloatParameter) Set(v float64) {
	if *p.float64 == v {
		// do nothing if value has not changed
		return
	}
	*p.float64 = v
	if p.onChange != nil {
		p.onChange()
	}
}

func (p *BasicFloatParameter) GetMin() float64 {
	return p.min
}

func (p *BasicFloatParameter) GetMax() float64 {
	return p.max
}

func (p *BasicFloatParameter) ValueInRange(v float64) bool {
	return v >= p.min && v <= p.max
}

func (p *BasicFloatParameter) InRange() bool {
	return p.ValueInRange(*p.float64)
}

func (p *BasicFloatParameter) Name() string {
	return p.name
}

func (p *BasicFloatParameter) String() string {
	return strconv.FormatFloat(*p.float64, 'f', 6, 64)
}

// renamedParameter exposes a parameter under a different name.
type renamedParameter struct {
	FloatParameter
	name string
}

// Rename returns a view of the parameter with another name. Values,
// boundaries and callbacks are shared with the original.
func Rename(par FloatParameter, name string) FloatParameter {
	return &renamedParameter{FloatParameter: par, name: name}
}

func (p *renamedParameter) Name() string {
	return p.name
}
