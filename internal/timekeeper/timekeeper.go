package timekeeper

// Timekeeper tracks simulated time for the fixed-step update loop. One
// StepTime call corresponds to exactly one physics step; wall-clock pacing is
// the caller's concern.
type Timekeeper struct {
	stepSize float64 // seconds advanced per physics step
	elapsed  float64
	steps    int64
}

// New creates a Timekeeper with the given step size in seconds.
func New(stepSize float64) *Timekeeper {
	return &Timekeeper{stepSize: stepSize}
}

// StepSize returns the fixed step size in seconds.
func (t *Timekeeper) StepSize() float64 { return t.stepSize }

// SetStepSize changes the step size for subsequent steps.
func (t *Timekeeper) SetStepSize(s float64) { t.stepSize = s }

// StepTime advances elapsed simulation time by one step.
func (t *Timekeeper) StepTime() {
	t.elapsed += t.stepSize
	t.steps++
}

// Elapsed returns total simulated seconds since start.
func (t *Timekeeper) Elapsed() float64 { return t.elapsed }

// StepCount returns the number of completed steps.
func (t *Timekeeper) StepCount() int64 { return t.steps }
