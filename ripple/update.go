package ripple

// Update advances the wave simulation by one step.
func (r *Ripples) Update() {
	if !r.Enabled() {
		return
	}
	r.apply(r.fieldPass(r.updateProgram), nil)
	r.field.Swap()
}
