package host

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/shlex"
)

// CommandSpec describes a slash command and its argument count.
type CommandSpec struct {
	Name             string
	Desc             string
	Help             string
	ArgsMin, ArgsMax int
}

// Command is a parsed slash command.
type Command struct {
	Name string
	Args []string
}

// Commands lists the console's slash commands by name.
var Commands = map[string]CommandSpec{
	"status": {
		Name: "status",
		Desc: "show the connection state",
		Help: "/status",
	},
	"history": {
		Name:    "history",
		Desc:    "print recent messages from the transcript",
		Help:    "/history [count]",
		ArgsMax: 1,
	},
	"nick": {
		Name:    "nick",
		Desc:    "set the nickname stored in your profile",
		Help:    "/nick <nick>",
		ArgsMin: 1,
		ArgsMax: 1,
	},
	"help": {
		Name:    "help",
		Desc:    "list all commands, or get help for a specific command",
		Help:    "/help [command]",
		ArgsMax: 1,
	},
	"quit": {
		Name: "quit",
		Desc: "close the connection and exit",
		Help: "/quit",
	},
}

// ParseCommand returns nil for input that is not a command. A command is a
// line starting with "/"; a leading "//" sends the rest as a plain message.
func ParseCommand(input string) (*Command, error) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") || strings.HasPrefix(input, "//") {
		return nil, nil
	}

	tokens, err := shlex.Split(input)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command: %w", err)
	}

	name := strings.TrimPrefix(tokens[0], "/")
	args := tokens[1:]
	command := &Command{Name: name, Args: args}

	cs, ok := Commands[name]
	if !ok {
		return command, fmt.Errorf("unknown command: %s", name)
	}
	if len(args) < cs.ArgsMin {
		return command, fmt.Errorf("missing arguments for: %s\nUsage:\n  %s", name, cs.Help)
	}
	if len(args) > cs.ArgsMax {
		return command, fmt.Errorf("too many arguments for: %s\nUsage:\n  %s", name, cs.Help)
	}
	return command, nil
}

// Help lists all commands, or describes the one named in args.
func Help(args []string) string {
	if len(args) > 0 {
		command, ok := Commands[strings.TrimPrefix(args[0], "/")]
		if !ok {
			return "unknown command"
		}
		return fmt.Sprintf("/%s: %s\n  %s", command.Name, command.Desc, command.Help)
	}

	names := make([]string, 0, len(Commands))
	for name := range Commands {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("/%s: %s", name, Commands[name].Desc))
	}
	return strings.Join(lines, "\n")
}
