package services

import "sort"

// neutralScore is the score assigned when an entity has no observations.
const neutralScore = 0.5

type tally struct {
	positive int
	negative int
}

// scoreAccumulator tracks positive/negative attributions per entity key and
// reduces them to ratio scores. One accumulator per preference type per
// analysis pass.
type scoreAccumulator struct {
	tallies map[string]*tally
}

func newScoreAccumulator() *scoreAccumulator {
	return &scoreAccumulator{tallies: make(map[string]*tally)}
}

// Observe attributes one feedback signal to every given key.
func (a *scoreAccumulator) Observe(keys []string, positive bool) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		t := a.tallies[k]
		if t == nil {
			t = &tally{}
			a.tallies[k] = t
		}
		if positive {
			t.positive++
		} else {
			t.negative++
		}
	}
}

// Merge folds another accumulator's tallies into this one.
func (a *scoreAccumulator) Merge(other *scoreAccumulator) {
	if other == nil {
		return
	}
	for k, t := range other.tallies {
		dst := a.tallies[k]
		if dst == nil {
			dst = &tally{}
			a.tallies[k] = dst
		}
		dst.positive += t.positive
		dst.negative += t.negative
	}
}

// Observations returns positive+negative count for a key.
func (a *scoreAccumulator) Observations(key string) int {
	t := a.tallies[key]
	if t == nil {
		return 0
	}
	return t.positive + t.negative
}

// Scores reduces tallies to positive/(positive+negative) per key. Keys with no
// observations score the neutral default. The ratio is deliberately unsmoothed.
func (a *scoreAccumulator) Scores() map[string]float64 {
	out := make(map[string]float64, len(a.tallies))
	for k, t := range a.tallies {
		total := t.positive + t.negative
		if total == 0 {
			out[k] = neutralScore
			continue
		}
		out[k] = float64(t.positive) / float64(total)
	}
	return out
}

// Partition splits scored keys into preferred and disliked lists. Keys with
// fewer than minObservations are scored but listed in neither.
func (a *scoreAccumulator) Partition(highThreshold, lowThreshold float64, minObservations int) (preferred, disliked []string) {
	for k, score := range a.Scores() {
		if a.Observations(k) < minObservations {
			continue
		}
		switch {
		case score >= highThreshold:
			preferred = append(preferred, k)
		case score <= lowThreshold:
			disliked = append(disliked, k)
		}
	}
	sort.Strings(preferred)
	sort.Strings(disliked)
	return preferred, disliked
}
