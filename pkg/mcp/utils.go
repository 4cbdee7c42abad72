package mcp

import (
	"strings"

	"github.com/unowned-ai/alive/pkg/moments"
)

// parseTags splits a comma-separated tag list, dropping blanks.
func parseTags(tagsStr string) []string {
	tags := []string{}
	for _, t := range strings.Split(tagsStr, ",") {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}

// parseImages splits one data URL per line. Data URLs contain commas, so the
// tag separator cannot be reused.
func parseImages(imagesStr string) []string {
	var images []string
	for _, line := range strings.Split(imagesStr, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			images = append(images, trimmed)
		}
	}
	return images
}

func findMoment(ms []moments.Moment, id string) (moments.Moment, bool) {
	for _, m := range ms {
		if m.ID == id {
			return m, true
		}
	}
	return moments.Moment{}, false
}

// nonNil keeps empty lists serialized as [] rather than null.
func nonNil(ms []moments.Moment) []moments.Moment {
	if ms == nil {
		return []moments.Moment{}
	}
	return ms
}
