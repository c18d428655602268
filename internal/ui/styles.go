// Package ui holds terminal styles for reports and summaries.
package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorPass   = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	ColorAccent = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
)

var (
	PassStyle    = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle    = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle    = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	HeadingStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✗"
	IconInfo = "ℹ"
)

// Heading renders a section title
func Heading(s string) string {
	return HeadingStyle.Render(s)
}

// Pass renders a success line with its icon
func Pass(format string, args ...interface{}) string {
	return PassStyle.Render(IconPass) + " " + fmt.Sprintf(format, args...)
}

// Warn renders a warning line with its icon
func Warn(format string, args ...interface{}) string {
	return WarnStyle.Render(IconWarn) + " " + fmt.Sprintf(format, args...)
}

// Fail renders a failure line with its icon
func Fail(format string, args ...interface{}) string {
	return FailStyle.Render(IconFail) + " " + fmt.Sprintf(format, args...)
}

// Info renders a neutral line with its icon
func Info(format string, args ...interface{}) string {
	return MutedStyle.Render(IconInfo) + " " + fmt.Sprintf(format, args...)
}

// Muted renders secondary text
func Muted(s string) string {
	return MutedStyle.Render(s)
}
