// Package scheduler implements SM-2 spaced-repetition scheduling for
// flashcards and quiz questions.
package scheduler

import (
	"fmt"
	"math"
	"time"

	"github.com/seanblong/lernsearch/pkg/models"
)

const (
	// DefaultEaseFactor is the ease factor for a freshly created item.
	DefaultEaseFactor = 2.5
	// MinEaseFactor is the floor the ease factor never drops below.
	MinEaseFactor = 1.3

	// PassingQuality is the lowest quality counted as a successful recall.
	PassingQuality = 3
	// MaxQuality is the best possible recall quality.
	MaxQuality = 5
)

// NewState returns the scheduling state for an item on first exposure.
func NewState() models.ReviewState {
	return models.ReviewState{
		EaseFactor:  DefaultEaseFactor,
		Interval:    0,
		Repetitions: 0,
	}
}

// Review applies one recall event to the scheduling state and returns the
// new state. Quality is expected in [0, 5]; validating that is the caller's
// job. The function is pure: identical inputs yield identical outputs.
func Review(quality int, state models.ReviewState, now time.Time) models.ReviewState {
	next := state

	if quality >= PassingQuality {
		next.Repetitions = state.Repetitions + 1
		switch next.Repetitions {
		case 1:
			next.Interval = 1
		case 2:
			next.Interval = 6
		default:
			next.Interval = int(math.Round(float64(state.Interval) * state.EaseFactor))
		}

		q := float64(quality)
		next.EaseFactor = state.EaseFactor + (0.1 - (5-q)*(0.08+(5-q)*0.02))
	} else {
		next.Repetitions = 0
		next.Interval = 1
	}

	if next.EaseFactor < MinEaseFactor {
		next.EaseFactor = MinEaseFactor
	}

	next.NextReviewAt = now.AddDate(0, 0, next.Interval)
	return next
}

// QualityFromScore maps a graded free-text answer score in [0, 1] to a
// recall quality.
func QualityFromScore(score float64) int {
	switch {
	case score >= 0.8:
		return 5
	case score >= 0.5:
		return 3
	default:
		return 1
	}
}

// QualityFromCorrect maps a plain right/wrong answer to a recall quality.
func QualityFromCorrect(correct bool) int {
	if correct {
		return 5
	}
	return 1
}

// FormatInterval renders a day count as a short German interval label.
func FormatInterval(days float64) string {
	switch {
	case days < 1.0/24:
		mins := math.Round(days * 24 * 60)
		if mins < 1 {
			mins = 1
		}
		return fmt.Sprintf("%.0f min", mins)
	case days < 1:
		return fmt.Sprintf("%.0f h", math.Round(days*24))
	case days < 30:
		return fmt.Sprintf("%.0f T", math.Round(days))
	case days < 365:
		months := days / 30
		if months >= 10 {
			return fmt.Sprintf("%.0f M", math.Round(months))
		}
		return fmt.Sprintf("%.1f M", months)
	default:
		years := days / 365
		if years >= 10 {
			return fmt.Sprintf("%.0f J", math.Round(years))
		}
		return fmt.Sprintf("%.1f J", years)
	}
}
