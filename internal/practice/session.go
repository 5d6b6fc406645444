package practice

// Session mirrors the active practice session. It is created when a session
// starts and reset when it ends.
//
// CurrentXP stays within [0, XPGoal] and CorrectAnswers never exceeds
// QuestionsAnswered.
type Session struct {
	Subject           string `json:"subject"`
	PracticeType      Type   `json:"practiceType"`
	XPGoal            int    `json:"xpGoal"`
	CurrentXP         int    `json:"currentXP"`
	QuestionsAnswered int    `json:"questionsAnswered"`
	CorrectAnswers    int    `json:"correctAnswers"`
	TimeSpent         int    `json:"timeSpent"` // seconds
}

// AddXP adds xp, clamped so CurrentXP never exceeds XPGoal or drops.
func (s *Session) AddXP(xp int) {
	if xp <= 0 {
		return
	}
	s.CurrentXP = min(s.CurrentXP+xp, s.XPGoal)
}

// GoalReached reports whether the XP goal has been met.
func (s Session) GoalReached() bool {
	return s.XPGoal > 0 && s.CurrentXP >= s.XPGoal
}

// Accuracy returns CorrectAnswers / QuestionsAnswered, or 0 with no answers.
func (s Session) Accuracy() float64 {
	if s.QuestionsAnswered == 0 {
		return 0
	}
	return float64(s.CorrectAnswers) / float64(s.QuestionsAnswered)
}

// Normalize repairs a hydrated session so its invariants hold.
func (s Session) Normalize() Session {
	s.XPGoal = max(s.XPGoal, 0)
	s.CurrentXP = max(0, min(s.CurrentXP, s.XPGoal))
	s.QuestionsAnswered = max(s.QuestionsAnswered, 0)
	s.CorrectAnswers = max(0, min(s.CorrectAnswers, s.QuestionsAnswered))
	s.TimeSpent = max(s.TimeSpent, 0)
	if s.PracticeType != "" && !s.PracticeType.Valid() {
		s.PracticeType = ""
	}
	return s
}
