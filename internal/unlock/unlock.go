// Package unlock decides which practice types a learner may select.
package unlock

import (
	"time"

	"github.com/abhisek/examquest/internal/practice"
)

// Attempt thresholds for threshold-based unlocks.
const (
	RefineRecallThreshold  = 50
	ConquerRecallThreshold = 100
	ConquerRefineThreshold = 100
)

// Stats are the per-user attempt counters. The backend is the only writer;
// each counter only grows.
type Stats struct {
	RecallAttempts  int `json:"recall_attempts"`
	RefineAttempts  int `json:"refine_attempts"`
	ConquerAttempts int `json:"conquer_attempts"`
}

// Attempts returns the counter for t.
func (s Stats) Attempts(t practice.Type) int {
	switch t {
	case practice.TypeRecall:
		return s.RecallAttempts
	case practice.TypeRefine:
		return s.RefineAttempts
	case practice.TypeConquer:
		return s.ConquerAttempts
	}
	return 0
}

// Merge returns the element-wise maximum of s and o, so a stale read-back
// never lowers a counter.
func (s Stats) Merge(o Stats) Stats {
	return Stats{
		RecallAttempts:  max(s.RecallAttempts, o.RecallAttempts),
		RefineAttempts:  max(s.RefineAttempts, o.RefineAttempts),
		ConquerAttempts: max(s.ConquerAttempts, o.ConquerAttempts),
	}
}

// Unlock is a durable grant for a practice type. Once recorded it is never
// revoked.
type Unlock struct {
	PracticeType practice.Type `json:"practice_type"`
	UnlockedAt   time.Time     `json:"unlocked_at"`
}

// Availability lists which practice types can be selected.
type Availability struct {
	Recall  bool `json:"recall"`
	Refine  bool `json:"refine"`
	Conquer bool `json:"conquer"`
}

// Allows reports whether t is available.
func (a Availability) Allows(t practice.Type) bool {
	switch t {
	case practice.TypeRecall:
		return a.Recall
	case practice.TypeRefine:
		return a.Refine
	case practice.TypeConquer:
		return a.Conquer
	}
	return false
}

// Evaluate maps attempt counters and unlock records to the available
// practice types. An unlock record grants its type regardless of counters;
// thresholds cover users whose record has not been written yet.
func Evaluate(stats Stats, unlocks []Unlock) Availability {
	recorded := make(map[practice.Type]bool, len(unlocks))
	for _, u := range unlocks {
		recorded[u.PracticeType] = true
	}

	return Availability{
		Recall: true,
		Refine: recorded[practice.TypeRefine] ||
			stats.RecallAttempts >= RefineRecallThreshold,
		Conquer: recorded[practice.TypeConquer] ||
			(stats.RecallAttempts >= ConquerRecallThreshold && stats.RefineAttempts >= ConquerRefineThreshold),
	}
}

// Newly returns the practice types available in next but not in prev, in
// display order.
func Newly(prev, next Availability) []practice.Type {
	var out []practice.Type
	for _, t := range practice.AllTypes() {
		if next.Allows(t) && !prev.Allows(t) {
			out = append(out, t)
		}
	}
	return out
}

// Requirement describes progress toward one threshold.
type Requirement struct {
	Counter practice.Type // whose attempts count
	Have    int
	Need    int
}

// Met reports whether the requirement is satisfied.
func (r Requirement) Met() bool {
	return r.Have >= r.Need
}

// Requirements returns the threshold requirements for t. Recall has none.
func Requirements(t practice.Type, stats Stats) []Requirement {
	switch t {
	case practice.TypeRefine:
		return []Requirement{
			{Counter: practice.TypeRecall, Have: stats.RecallAttempts, Need: RefineRecallThreshold},
		}
	case practice.TypeConquer:
		return []Requirement{
			{Counter: practice.TypeRecall, Have: stats.RecallAttempts, Need: ConquerRecallThreshold},
			{Counter: practice.TypeRefine, Have: stats.RefineAttempts, Need: ConquerRefineThreshold},
		}
	}
	return nil
}

// Progress returns the fraction (0.0-1.0) of t's thresholds met, averaging
// multiple requirements. Recall always reports 1.
func Progress(t practice.Type, stats Stats) float64 {
	reqs := Requirements(t, stats)
	if len(reqs) == 0 {
		return 1
	}
	var sum float64
	for _, r := range reqs {
		sum += min(float64(r.Have)/float64(r.Need), 1)
	}
	return sum / float64(len(reqs))
}

// AppendUnlock adds a record for t unless one already exists.
func AppendUnlock(unlocks []Unlock, t practice.Type, at time.Time) []Unlock {
	for _, u := range unlocks {
		if u.PracticeType == t {
			return unlocks
		}
	}
	return append(unlocks, Unlock{PracticeType: t, UnlockedAt: at})
}
