package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/lox/bigtwo/internal/client"
	"github.com/lox/bigtwo/internal/deck"
	"github.com/lox/bigtwo/internal/display"
	"github.com/lox/bigtwo/internal/protocol"
)

// version is set by ldflags during build
var version = "dev"

// Globals are shared by every command.
type Globals struct {
	Config   string `short:"c" help:"Path to HCL client configuration" default:"${config_path}"`
	Addr     string `short:"a" help:"Server mux listener address (overrides config)"`
	URL      string `help:"Server HTTP base URL for --ws (overrides config)"`
	WS       bool   `help:"Send requests over the websocket endpoint"`
	Raw      bool   `help:"Print raw replies"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
}

type CLI struct {
	Globals

	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Login    LoginCmd         `cmd:"" help:"Log in"`
	Register RegisterCmd      `cmd:"" help:"Create an account and log in"`
	Lobby    LobbyCmd         `cmd:"" help:"Lobby actions: online, offline, ready, noready, back"`
	Game     GameCmd          `cmd:"" help:"Game queries: score, other, first, card, otherplay"`
	Play     PlayCmd          `cmd:"" help:"Play cards by id, or pass with none"`
	Gain     GainCmd          `cmd:"gainscore" help:"Add to your score"`
}

// session carries the resolved config into commands.
type session struct {
	cfg    *client.Config
	client *client.Client
	raw    bool
}

func (s *session) send(req protocol.Request) error {
	reply, err := s.client.Do(context.Background(), req)
	if err != nil {
		return err
	}
	if s.raw {
		fmt.Println(reply)
	} else {
		fmt.Println(display.Reply(reply))
	}
	if protocol.ParseReply(reply).Token == protocol.TokenError {
		return fmt.Errorf("server unavailable")
	}
	return nil
}

// name returns the command's player name or the configured default.
func (s *session) name(arg string) (string, error) {
	if arg != "" {
		return arg, nil
	}
	if s.cfg.Player.Name != "" {
		return s.cfg.Player.Name, nil
	}
	return "", fmt.Errorf("no player name given and none configured")
}

type LoginCmd struct {
	Name     string `arg:"" help:"Player name"`
	Password string `arg:"" optional:"" help:"Password (defaults to the configured one)"`
}

func (c *LoginCmd) Run(s *session) error {
	pw := c.Password
	if pw == "" {
		pw = s.cfg.Player.Password
	}
	return s.send(protocol.Login{Name: c.Name, Password: pw})
}

type RegisterCmd struct {
	Name     string `arg:"" help:"Player name"`
	Password string `arg:"" help:"Password"`
}

func (c *RegisterCmd) Run(s *session) error {
	return s.send(protocol.Register{Name: c.Name, Password: c.Password})
}

type LobbyCmd struct {
	Action string `arg:"" enum:"online,offline,ready,noready,back" help:"Lobby action"`
	Name   string `arg:"" optional:"" help:"Player name"`
}

func (c *LobbyCmd) Run(s *session) error {
	name, err := s.name(c.Name)
	if err != nil {
		return err
	}
	req, err := protocol.DecodeCategory(protocol.CategoryLobby, c.Action+protocol.Separator+name)
	if err != nil {
		return err
	}
	return s.send(req)
}

type GameCmd struct {
	Query string `arg:"" enum:"score,other,first,card,otherplay" help:"Game query"`
	Name  string `arg:"" optional:"" help:"Player name"`
}

func (c *GameCmd) Run(s *session) error {
	name, err := s.name(c.Name)
	if err != nil {
		return err
	}
	req, err := protocol.DecodeCategory(protocol.CategoryGame, c.Query+protocol.Separator+name)
	if err != nil {
		return err
	}
	return s.send(req)
}

type PlayCmd struct {
	Name  string   `short:"n" help:"Player name"`
	Cards []string `arg:"" optional:"" help:"Card ids (0 = 3♦ ... 51 = 2♠); none to pass"`
}

func (c *PlayCmd) Run(s *session) error {
	name, err := s.name(c.Name)
	if err != nil {
		return err
	}
	cards, err := deck.ParseAll(c.Cards)
	if err != nil {
		return err
	}
	return s.send(protocol.NewPlay(name, cards))
}

type GainCmd struct {
	Delta int    `arg:"" help:"Points to add (may be negative)"`
	Name  string `short:"n" help:"Player name"`
}

func (c *GainCmd) Run(s *session) error {
	name, err := s.name(c.Name)
	if err != nil {
		return err
	}
	return s.send(protocol.GameGainScore{Name: name, Delta: c.Delta})
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("bigtwo"),
		kong.Description("Big Two player client"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version":     version,
			"config_path": client.DefaultConfigPath(),
		},
	)

	s, err := newSession(&cli.Globals)
	ctx.FatalIfErrorf(err)
	defer s.client.Close()

	ctx.FatalIfErrorf(ctx.Run(s))
}

func newSession(g *Globals) (*session, error) {
	cfg, err := client.LoadConfig(g.Config)
	if err != nil {
		return nil, err
	}
	if g.Addr != "" {
		cfg.Server.Address = g.Addr
	}
	if g.URL != "" {
		cfg.Server.URL = g.URL
	}
	if g.WS {
		cfg.Server.WebSocket = true
	}
	if g.LogLevel != "" {
		cfg.Player.LogLevel = g.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := log.New(os.Stderr)
	level, err := log.ParseLevel(cfg.Player.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)

	return &session{cfg: cfg, client: cfg.NewClient(logger), raw: g.Raw}, nil
}
