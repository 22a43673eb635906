package main

// Program is the top-level IR container: an ordered function list and an
// optional pointer to main (spec.md §3).
type Program struct {
	Functions []*Function
	Main      *Function

	// InSSA tracks whether the program currently holds SSA-form IR, used to
	// enforce the mutual exclusion between classical and SSA passes
	// (spec.md §5, §7).
	InSSA bool
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{}
}

// AddFunction appends fn, marking it Main if requested.
func (p *Program) AddFunction(fn *Function, isMain bool) {
	p.Functions = append(p.Functions, fn)
	if isMain {
		fn.IsMain = true
		p.Main = fn
	}
}
