// Package pet simulates the virtual pet's hunger, temperature and mood.
//
// Every function is a pure transition: it takes a State by value and returns
// the next State. Mood is derived from food and temperature after every
// transition and is never set on its own.
package pet

import "time"

// Mood is the pet's displayed disposition.
type Mood string

const (
	MoodHappy   Mood = "happy"
	MoodNeutral Mood = "neutral"
	MoodSad     Mood = "sad"
)

// Emoji returns the display glyph for the mood.
func (m Mood) Emoji() string {
	switch m {
	case MoodHappy:
		return "😺"
	case MoodSad:
		return "😿"
	default:
		return "🐱"
	}
}

const (
	MinFood = 0
	MaxFood = 100
	MinTemp = 10
	MaxTemp = 100

	FeedAmount    = 15
	PlayCooling   = 5
	RewardCooling = 15

	DefaultFood = 50
	DefaultTemp = 20

	// DriftInterval is the elapsed time that raises temperature by one degree.
	DriftInterval = time.Minute
)

// State is the durable pet record.
type State struct {
	FoodLevel             int       `json:"foodLevel"`
	Temperature           int       `json:"temperature"`
	Mood                  Mood      `json:"mood"`
	LastTemperatureUpdate time.Time `json:"lastTemperatureUpdate"`
}

// Default returns a freshly adopted pet.
func Default(now time.Time) State {
	return withMood(State{
		FoodLevel:             DefaultFood,
		Temperature:           DefaultTemp,
		LastTemperatureUpdate: now,
	})
}

// MoodFor derives the mood from food level and temperature.
func MoodFor(food, temperature int) Mood {
	switch {
	case food > 70 && temperature < 30:
		return MoodHappy
	case food < 30 || temperature > 60:
		return MoodSad
	default:
		return MoodNeutral
	}
}

// Feed raises the food level, capped at MaxFood.
func Feed(s State) State {
	s.FoodLevel = min(s.FoodLevel+FeedAmount, MaxFood)
	return withMood(s)
}

// Play cools the pet down and restarts the drift clock.
func Play(s State, now time.Time) State {
	s.Temperature = max(s.Temperature-PlayCooling, MinTemp)
	s.LastTemperatureUpdate = now
	return withMood(s)
}

// Reward applies the cooling granted by completing a practice session.
func Reward(s State) State {
	s.Temperature = max(s.Temperature-RewardCooling, MinTemp)
	return withMood(s)
}

// Tick applies temperature drift for whole minutes elapsed since the last
// update. Calls less than DriftInterval apart change nothing, so repeated
// rapid ticks cannot apply the same drift twice.
func Tick(s State, now time.Time) State {
	delta := now.Sub(s.LastTemperatureUpdate)
	if delta < DriftInterval {
		return withMood(s)
	}
	minutes := int(delta / DriftInterval)
	s.Temperature = min(s.Temperature+minutes, MaxTemp)
	s.LastTemperatureUpdate = now
	return withMood(s)
}

// Normalize clamps a hydrated state into range and recomputes mood. A zero
// LastTemperatureUpdate is replaced with now so a legacy record does not
// jump straight to MaxTemp.
func Normalize(s State, now time.Time) State {
	s.FoodLevel = clamp(s.FoodLevel, MinFood, MaxFood)
	s.Temperature = clamp(s.Temperature, MinTemp, MaxTemp)
	if s.LastTemperatureUpdate.IsZero() {
		s.LastTemperatureUpdate = now
	}
	return withMood(s)
}

func withMood(s State) State {
	s.Mood = MoodFor(s.FoodLevel, s.Temperature)
	return s
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
