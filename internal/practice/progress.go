package practice

// Wizard steps, 1-indexed.
const (
	StepSubject   = 1
	StepType      = 2
	StepGoal      = 3
	StepQuestions = 4

	TotalSteps = 4
)

// Progress is the practice wizard cursor shared by the wizard screens.
// Selections stay nil until their step completes.
type Progress struct {
	CurrentStep int     `json:"currentStep"`
	TotalSteps  int     `json:"totalSteps"`
	Subject     *string `json:"subject"`
	Type        *Type   `json:"type"`
	Goal        *int    `json:"goal"`
	SessionID   *string `json:"sessionId"`
}

// StepInfo is a partial update for Progress. Nil fields are left untouched.
type StepInfo struct {
	Subject   *string
	Type      *Type
	Goal      *int
	SessionID *string
}

// NewProgress returns the wizard at its first step with nothing selected.
func NewProgress() Progress {
	return Progress{CurrentStep: StepSubject, TotalSteps: TotalSteps}
}

// SetStep moves the cursor. An optional total overrides TotalSteps. The
// step is clamped to [1, TotalSteps].
func (p *Progress) SetStep(step int, totalSteps ...int) {
	if len(totalSteps) > 0 && totalSteps[0] > 0 {
		p.TotalSteps = totalSteps[0]
	}
	if p.TotalSteps < 1 {
		p.TotalSteps = TotalSteps
	}
	p.CurrentStep = max(1, min(step, p.TotalSteps))
}

// UpdateStepInfo shallow-merges info into p, so earlier selections survive
// later steps.
func (p *Progress) UpdateStepInfo(info StepInfo) {
	if info.Subject != nil {
		p.Subject = Ptr(*info.Subject)
	}
	if info.Type != nil {
		p.Type = Ptr(*info.Type)
	}
	if info.Goal != nil {
		p.Goal = Ptr(*info.Goal)
	}
	if info.SessionID != nil {
		p.SessionID = Ptr(*info.SessionID)
	}
}

// Reset restores the defaults.
func (p *Progress) Reset() {
	*p = NewProgress()
}

// Clone returns a deep copy of p.
func (p Progress) Clone() Progress {
	c := p
	if p.Subject != nil {
		c.Subject = Ptr(*p.Subject)
	}
	if p.Type != nil {
		c.Type = Ptr(*p.Type)
	}
	if p.Goal != nil {
		c.Goal = Ptr(*p.Goal)
	}
	if p.SessionID != nil {
		c.SessionID = Ptr(*p.SessionID)
	}
	return c
}

// Normalize repairs a hydrated cursor: out-of-range steps are clamped and an
// unknown type is dropped.
func (p Progress) Normalize() Progress {
	c := p.Clone()
	if c.TotalSteps < 1 {
		c.TotalSteps = TotalSteps
	}
	c.CurrentStep = max(1, min(c.CurrentStep, c.TotalSteps))
	if c.Type != nil && !c.Type.Valid() {
		c.Type = nil
	}
	return c
}

// Ptr returns a pointer to v, for building StepInfo values.
func Ptr[T any](v T) *T {
	return &v
}
