package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/unowned-ai/alive/pkg/moments"
)

// formatTimestamp renders a createdAt value (ms since epoch) in loc.
func formatTimestamp(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format("2006-01-02 15:04")
}

func parseTags(tagsStr string) []string {
	tags := []string{}
	for _, tag := range strings.Split(tagsStr, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// imageDataURL reads an image file into an inline data URL.
func imageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image '%s': %w", path, err)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("'%s' is not an image (detected %s)", path, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func printMoment(w io.Writer, m moments.Moment, loc *time.Location) {
	visibility := "private"
	if m.IsPublic {
		visibility = "public"
	}
	author := "you"
	if !m.IsMine {
		author = m.AuthorAlias
	}

	fmt.Fprintf(w, "ID:         %s\n", m.ID)
	fmt.Fprintf(w, "Day:        %s\n", m.DayStr)
	fmt.Fprintf(w, "Created At: %s\n", formatTimestamp(m.CreatedAt, loc))
	fmt.Fprintf(w, "By:         %s\n", author)
	fmt.Fprintf(w, "Visibility: %s\n", visibility)
	fmt.Fprintf(w, "Sunshine:   %d\n", m.SunshineCount)
	if len(m.Tags) > 0 {
		fmt.Fprintf(w, "Tags:       %s\n", strings.Join(m.Tags, " "))
	}
	if len(m.Images) > 0 {
		fmt.Fprintf(w, "Images:     %d\n", len(m.Images))
	}
	if m.Content != "" {
		fmt.Fprintln(w, "------------------------------------------------------------")
		fmt.Fprintln(w, m.Content)
	}
	fmt.Fprintln(w, "------------------------------------------------------------")
}

func printMoments(w io.Writer, ms []moments.Moment, loc *time.Location) {
	if len(ms) == 0 {
		fmt.Fprintln(w, "No moments found.")
		return
	}
	for _, m := range ms {
		printMoment(w, m, loc)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
