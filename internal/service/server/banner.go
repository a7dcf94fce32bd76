package server

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

const (
	bannerTitle    = "PSFree Exploit Host"
	bannerSubtitle = "Press Ctrl+C to stop the server"
)

var (
	bannerFrame = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 2)

	bannerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212"))

	bannerBodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	bannerHintStyle = lipgloss.NewStyle().
			Faint(true)
)

// ListenURL is the address users open on the console's browser.
func ListenURL(ip string, port int, urlPath string) string {
	return fmt.Sprintf("http://%s:%d%s", ip, port, urlPath)
}

// RenderBanner draws the framed startup panel.
func RenderBanner(ip string, port int, urlPath string) string {
	body := "Server is running!\nListening on " + ListenURL(ip, port, urlPath)

	content := lipgloss.JoinVertical(lipgloss.Left,
		bannerTitleStyle.Render(bannerTitle),
		"",
		bannerBodyStyle.Render(body),
		"",
		bannerHintStyle.Render(bannerSubtitle),
	)

	return bannerFrame.Render(content)
}
