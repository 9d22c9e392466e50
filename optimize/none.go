package optimize

// None is an optimizer which computes initial value and exits.
type None struct {
	BaseOptimizer
}

// NewNone creates an optimizer which computes initial likelihood only.
func NewNone() *None {
	return &None{}
}

// Run computes the likelihood.
func (n *None) Run(iterations int) {
	n.PrintHeader()
	n.evaluate(n.parameters.Values(nil))
	n.converged = true
	n.PrintLine(n.parameters, n.l)
	n.PrintFinal()
}
