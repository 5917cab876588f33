// Package prompt provides the interactive terminal surface for the
// client chat loop.
package prompt

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// QuitCommand ends the interactive chat loop.
const QuitCommand = "/quit"

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	sentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("36"))
)

// Banner renders the session header shown once the handshake is done.
func Banner(addr, pkc, symmetric string) string {
	title := bannerStyle.Render("latchkey session " + addr)
	detail := detailStyle.Render(fmt.Sprintf("pkc=%s symmetric=%s (type %s to leave)", pkc, symmetric, QuitCommand))
	return title + "\n" + detail
}

// Sent renders a confirmation line for a delivered message.
func Sent(text string) string {
	return sentStyle.Render("sent: " + text)
}

// ReadMessage prompts for one chat message. It returns huh's error
// untouched so the caller can treat an abort (ctrl-c) as a quit.
func ReadMessage() (string, error) {
	var text string
	input := huh.NewInput().
		Title("message").
		Placeholder(QuitCommand + " to leave").
		Value(&text)

	if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
		return "", err
	}
	return text, nil
}

// Confirm asks a yes/no question.
func Confirm(title string) (bool, error) {
	var ok bool
	confirm := huh.NewConfirm().
		Title(title).
		Value(&ok)

	if err := huh.NewForm(huh.NewGroup(confirm)).Run(); err != nil {
		return false, err
	}
	return ok, nil
}
