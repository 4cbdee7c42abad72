package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/unowned-ai/alive/pkg/moments"
)

// UI styles and layout settings
// Color palette "Blue Moon" from https://gogh-co.github.io/Gogh/
const (
	colorGray     = "#353b52"
	colorWhite    = "#ffffff"
	colorGreen    = "#acfab4"
	colorGreenDim = "#b4c4b4"
	colorRed      = "#e61f44"
	colorRedDim   = "#d06178"
	colorPurple   = "#b9a3eb"
	colorBlue     = "#89ddff"
	colorYellow   = "#ffcb6b"

	marqueeTickDuration = time.Duration(time.Second / 20)
	marqueeGap          = 4

	bordersAndPaddingWidth = 4
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color(colorBlue)).
			Background(lipgloss.Color(colorGray)).
			Padding(0, 2).Align(lipgloss.Center)
	subtitleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color(colorBlue))
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGray)).
			Background(lipgloss.Color(colorGreen))
	dangerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(colorGray)).
				Background(lipgloss.Color(colorRed))
	inactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorWhite))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorBlue))
	tagStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color(colorPurple))
	sunshineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed))
	warningStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorYellow))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGray))
)

// Function to colorize text based on its status
// 0 (default) - unknown, 1 - green, 2 - red
func TextStatusColorize(text string, status int) string {
	switch status {
	case 1:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreenDim)).Render(text)
	case 2:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorRedDim)).Render(text)
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)).Render(text)
	}
}

// Generates pointer symbol when line in focus
func generateLinePointer(isPoint bool, length int) string {
	if isPoint {
		return ">" + strings.Repeat(" ", length-1)
	}
	return strings.Repeat(" ", length)
}

// marqueeText scrolls text that does not fit into availableWidth.
func (m model) marqueeText(text string, availableWidth int) string {
	if len(text) <= availableWidth || availableWidth <= 0 {
		return text
	}
	paddedText := text + strings.Repeat(" ", marqueeGap) + text
	offset := m.marqueeOffset % (len(text) + marqueeGap)
	return paddedText[offset : offset+availableWidth]
}

// truncate shortens text to width with a trailing "..".
func truncate(text string, width int) string {
	if len(text) <= width || width <= 3 {
		return text
	}
	return text[:width-2] + ".."
}

// stageArt is the small plant drawn next to the streak.
var stageArt = map[moments.GrowthStage]string{
	moments.StageSeed:    ".",
	moments.StageSprout:  ",v,",
	moments.StageSapling: "\\|/",
	moments.StageTree:    "/|\\ (tree)",
}

func renderStage(stage moments.GrowthStage) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)).
		Render(stageArt[stage] + " " + string(stage))
}

// firstLine returns the first line of a multi-line moment for list views.
func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}
