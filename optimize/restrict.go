package optimize

// restricted is an Optimizable exposing a subset of the parameters of
// another Optimizable; other parameters stay fixed.
type restricted struct {
	Optimizable
	names      []string
	parameters FloatParameters
}

// Restrict returns an Optimizable which only exposes the named
// parameters.
func Restrict(o Optimizable, names []string) (Optimizable, error) {
	all := o.GetFloatParameters()
	pars, err := all.Subset(names)
	if err != nil {
		return nil, err
	}
	return &restricted{
		Optimizable: o,
		names:       names,
		parameters:  pars,
	}, nil
}

// Exclude returns an Optimizable exposing all the parameters except
// the named ones.
func Exclude(o Optimizable, ignore func(name string) bool) Optimizable {
	all := o.GetFloatParameters()
	var names []string
	for _, par := range all {
		if !ignore(par.Name()) {
			names = append(names, par.Name())
		}
	}
	r, _ := Restrict(o, names)
	return r
}

func (r *restricted) GetFloatParameters() FloatParameters {
	return r.parameters
}

func (r *restricted) Copy() Optimizable {
	n, err := Restrict(r.Optimizable.Copy(), r.names)
	if err != nil {
		panic(err)
	}
	return n
}
