package practice

import "fmt"

// Type is a practice difficulty mode.
type Type string

const (
	TypeRecall  Type = "recall"
	TypeRefine  Type = "refine"
	TypeConquer Type = "conquer"
)

// AllTypes returns every practice type in display order.
func AllTypes() []Type {
	return []Type{TypeRecall, TypeRefine, TypeConquer}
}

// ParseType parses s into a Type.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeRecall, TypeRefine, TypeConquer:
		return t, nil
	}
	return "", fmt.Errorf("unknown practice type %q", s)
}

// Valid reports whether t is a known practice type.
func (t Type) Valid() bool {
	_, err := ParseType(string(t))
	return err == nil
}

// DisplayName returns a human-readable label for the practice type.
func (t Type) DisplayName() string {
	switch t {
	case TypeRecall:
		return "Recall"
	case TypeRefine:
		return "Refine"
	case TypeConquer:
		return "Conquer"
	default:
		return string(t)
	}
}

// Description returns the one-line pitch shown on the type selection step.
func (t Type) Description() string {
	switch t {
	case TypeRecall:
		return "Warm up with questions you have seen before"
	case TypeRefine:
		return "Sharpen weak spots with harder variants"
	case TypeConquer:
		return "Exam-level questions, no hints"
	default:
		return ""
	}
}

// Subject is a selectable exam subject.
type Subject struct {
	ID   string
	Name string
}

// Subjects offered on the subject step.
var Subjects = []Subject{
	{ID: "physics", Name: "Physics"},
	{ID: "chemistry", Name: "Chemistry"},
	{ID: "mathematics", Name: "Mathematics"},
	{ID: "biology", Name: "Biology"},
}

// SubjectName returns the display name for a subject id, or the id itself.
func SubjectName(id string) string {
	for _, s := range Subjects {
		if s.ID == id {
			return s.Name
		}
	}
	return id
}

// LookupSubject returns the subject with the given id.
func LookupSubject(id string) (Subject, bool) {
	for _, s := range Subjects {
		if s.ID == id {
			return s, true
		}
	}
	return Subject{}, false
}

// GoalPresets are the XP goals offered on the goal step.
var GoalPresets = []int{50, 100, 150, 200}

// DefaultGoal is preselected on the goal step.
const DefaultGoal = 100
