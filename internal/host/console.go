package host

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rs/zerolog/log"

	"github.com/omochice/art-chat/internal/chat"
	"github.com/omochice/art-chat/internal/client"
	"github.com/omochice/art-chat/internal/store"
)

const defaultHistory = 20

// Console prints relay events to a terminal.
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	color string
}

// NewConsole creates a Console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// SetColor sets the colour used for our own lines, as a "#rrggbb" hex.
// An invalid value disables colouring.
func (c *Console) SetColor(hex string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.color = ""
	col, err := colorful.Hex(hex)
	if err != nil {
		return
	}
	r, g, b := col.RGB255()
	c.color = fmt.Sprintf("\x1b[38;2;%d;%d;%dm", r, g, b)
}

// Emit implements chat.Emitter.
func (c *Console) Emit(ev chat.Event) {
	switch ev.Name {
	case chat.EventChatMessage:
		c.Println(ev.Payload)
	case chat.EventConnectionStatus:
		c.Println("* " + ev.Payload)
	default:
		c.Println(fmt.Sprintf("* %s: %s", ev.Name, ev.Payload))
	}
}

// Println writes one line.
func (c *Console) Println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}

// Own prints a line we sent, in the profile colour when one is set.
func (c *Console) Own(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.color == "" {
		fmt.Fprintln(c.out, "> "+line)
		return
	}
	fmt.Fprintf(c.out, "%s> %s\x1b[0m\n", c.color, line)
}

// Prompt reads user input line by line: plain lines are sent through the
// relay, "/" lines are commands.
type Prompt struct {
	console  *Console
	sender   client.Sender
	status   StatusFunc
	history  History
	profiles Profiles
}

// NewPrompt creates a Prompt sending through sender.
func NewPrompt(console *Console, sender client.Sender, status StatusFunc) *Prompt {
	return &Prompt{console: console, sender: sender, status: status}
}

// WithHistory enables /history.
func (p *Prompt) WithHistory(h History) *Prompt {
	p.history = h
	return p
}

// WithProfiles enables /nick.
func (p *Prompt) WithProfiles(pr Profiles) *Prompt {
	p.profiles = pr
	return p
}

// Run handles lines from in until EOF, /quit or ctx is done.
func (p *Prompt) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if p.Handle(ctx, line) {
				return nil
			}
		}
	}
}

// Handle processes one input line and reports whether the user asked to quit.
func (p *Prompt) Handle(ctx context.Context, line string) bool {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return false
	}

	cmd, err := ParseCommand(line)
	if err != nil {
		p.console.Println("! " + err.Error())
		return false
	}
	if cmd == nil {
		if trimmed := strings.TrimSpace(line); strings.HasPrefix(trimmed, "//") {
			line = trimmed[1:]
		}
		p.send(ctx, line)
		return false
	}

	switch cmd.Name {
	case "quit":
		return true
	case "help":
		p.console.Println(Help(cmd.Args))
	case "status":
		p.console.Println("* " + p.status().String())
	case "history":
		p.printHistory(ctx, cmd.Args)
	case "nick":
		p.setNick(ctx, cmd.Args[0])
	}
	return false
}

func (p *Prompt) send(ctx context.Context, msg string) {
	if err := p.sender.TrySend(ctx, msg); err != nil {
		p.console.Println("! " + err.Error())
		return
	}
	p.console.Own(msg)
}

func (p *Prompt) printHistory(ctx context.Context, args []string) {
	if p.history == nil {
		p.console.Println("! history is disabled")
		return
	}
	limit := defaultHistory
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			p.console.Println("! count must be a positive number")
			return
		}
		limit = n
	}

	messages, err := p.history.RecentMessages(ctx, limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to load history")
		p.console.Println("! " + err.Error())
		return
	}
	for _, m := range messages {
		if m.Direction == store.Outbound {
			p.console.Own(m.Text)
		} else {
			p.console.Println(m.Text)
		}
	}
}

func (p *Prompt) setNick(ctx context.Context, nick string) {
	if p.profiles == nil {
		p.console.Println("! profile is disabled")
		return
	}
	profile, err := p.profiles.SetNickname(ctx, nick)
	if err != nil {
		p.console.Println("! " + err.Error())
		return
	}
	p.console.SetColor(profile.Color)
	p.console.Println("* nickname set to " + profile.Nickname)
}
