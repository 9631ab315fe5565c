// Package display renders server replies for the terminal.
package display

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lox/bigtwo/internal/deck"
	"github.com/lox/bigtwo/internal/protocol"
)

// Card renders one card with its suit colour and wire id.
func Card(c deck.Card) string {
	style := BlackCardStyle
	if c.IsRed() {
		style = RedCardStyle
	}
	return style.Render(c.String()) + CardIDStyle.Render("("+c.ID()+")")
}

// Hand renders cards in a bordered panel, lowest first.
func Hand(cards []deck.Card) string {
	if len(cards) == 0 {
		return PanelStyle.Render(WarningStyle.Render("no cards"))
	}
	sorted := append([]deck.Card(nil), cards...)
	deck.Sort(sorted)

	parts := make([]string, len(sorted))
	for i, c := range sorted {
		parts[i] = Card(c)
	}
	title := HeaderStyle.Render(fmt.Sprintf("Hand (%d)", len(sorted)))
	return lipgloss.JoinVertical(lipgloss.Left, title, PanelStyle.Render(strings.Join(parts, " ")))
}

// Table renders name/value rows under a header.
func Table(header string, rows [][2]string) string {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r[0]))
	}

	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = lipgloss.NewStyle().Width(width+2).Render(r[0]) + r[1]
	}
	body := strings.Join(lines, "\n")
	if len(rows) == 0 {
		body = WarningStyle.Render("nobody")
	}
	return lipgloss.JoinVertical(lipgloss.Left, HeaderStyle.Render(header), PanelStyle.Render(body))
}

func state(s string) string {
	if style, ok := stateStyles[s]; ok {
		return style.Render(s)
	}
	return s
}

// pairs splits "name:value" fields.
func pairs(fields []string, value func(string) string) [][2]string {
	rows := make([][2]string, 0, len(fields))
	for _, f := range fields {
		name, v, _ := strings.Cut(f, ":")
		rows = append(rows, [2]string{name, value(v)})
	}
	return rows
}

func describePlay(fields []string) string {
	if len(fields) < 2 {
		return WarningStyle.Render("no play yet")
	}
	who := fields[0]
	if fields[1] == "0" {
		return who + " passed"
	}
	cards, err := deck.ParseAll(fields[2:])
	if err != nil {
		return who + " played " + strings.Join(fields[2:], " ")
	}
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = Card(c)
	}
	return who + " played " + strings.Join(parts, " ")
}

// Reply renders any server reply. Unknown tokens are shown raw.
func Reply(raw string) string {
	r := protocol.ParseReply(raw)

	switch r.Token {
	case protocol.LoginOK, protocol.RegisterOK:
		return SuccessStyle.Render(r.Token)
	case protocol.LoginFailed, protocol.RegisterFailed:
		return ErrorStyle.Render(r.Token)
	case protocol.TokenFail:
		return ErrorStyle.Render("rejected: " + strings.Join(r.Fields, " "))
	case protocol.TokenError:
		return ErrorStyle.Render("server error: " + strings.Join(r.Fields, " "))
	case protocol.TokenGame:
		rows := make([][2]string, len(r.Fields))
		for i, name := range r.Fields {
			rows[i] = [2]string{"seat " + strconv.Itoa(i), name}
		}
		return Table("Room dealt", rows)
	case protocol.TokenCard:
		cards, err := deck.ParseAll(r.Fields)
		if err != nil {
			return raw
		}
		return Hand(cards)
	case protocol.TokenOther:
		return Table("Opponents", pairs(r.Fields, func(v string) string { return v + " cards" }))
	case protocol.TokenPlay, protocol.TokenOtherPlay:
		return describePlay(r.Fields)
	case protocol.TokenFirst:
		return "first to play: " + SuccessStyle.Render(strings.Join(r.Fields, ""))
	case protocol.TokenBack:
		return WarningStyle.Render(backMessage(r.Fields))
	case protocol.TokenScore, protocol.TokenGainScore:
		return "score: " + SuccessStyle.Render(strings.Join(r.Fields, ""))
	case protocol.TokenReady, protocol.TokenOnline, protocol.TokenOffline:
		return state(r.Token)
	}

	if n, err := strconv.Atoi(r.Token); err == nil && n == len(r.Fields) {
		return Table(fmt.Sprintf("Lobby (%d)", n), pairs(r.Fields, state))
	}
	return raw
}

func backMessage(fields []string) string {
	code := strings.Join(fields, "")
	switch code {
	case strconv.Itoa(protocol.BackLobby):
		return "back in the lobby"
	case strconv.Itoa(protocol.BackNotStarted):
		return "room not full yet; back in the lobby"
	case strconv.Itoa(protocol.BackAbandoned):
		return "round abandoned; back in the lobby"
	}
	return "back: " + code
}
