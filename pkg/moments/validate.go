package moments

import (
	"errors"
	"math/rand/v2"
	"strings"
)

// MaxImages is how many images one moment may carry.
const MaxImages = 3

var (
	ErrEmptyMoment   = errors.New("a moment needs text or at least one image")
	ErrTooManyImages = errors.New("a moment can carry at most 3 images")
)

// Validate checks a draft before it is handed to SaveMoment.
func Validate(content string, images []string) error {
	if strings.TrimSpace(content) == "" && len(images) == 0 {
		return ErrEmptyMoment
	}
	if len(images) > MaxImages {
		return ErrTooManyImages
	}
	return nil
}

var PresetTags = []string{
	"#small-joys",
	"#small-wins",
	"#loved",
	"#good-weather",
	"#good-food",
	"#self-discipline",
}

var Inspirations = []string{
	"What little thing made you smile today?",
	"When did you last notice the wind?",
	"What was the most delicious bite you had today?",
	"Look up at the sky. What color is it?",
	"Did anyone make you feel warm today?",
	"How does your body feel right now?",
	"Write one line of encouragement for today's you.",
}

// RandomInspiration picks a writing prompt.
func RandomInspiration() string {
	return Inspirations[rand.IntN(len(Inspirations))]
}
