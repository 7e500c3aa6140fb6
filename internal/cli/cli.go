package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/usecase"
	"go.uber.org/zap"
)

// ErrExit is returned by the exit command.
var ErrExit = errors.New("exit requested")

// PasswordReader prompts for a password without echoing it.
type PasswordReader func(prompt string) (string, error)

type CLI struct {
	clients      *usecase.Clients
	baseURL      string
	out          io.Writer
	readPassword PasswordReader
	logger       *logger.Logger
}

func New(clients *usecase.Clients, baseURL string, out io.Writer, readPassword PasswordReader, log *logger.Logger) *CLI {
	return &CLI{
		clients:      clients,
		baseURL:      baseURL,
		out:          out,
		readPassword: readPassword,
		logger:       log.Named("CLI"),
	}
}

// Prompt shows the logged-in user id, if any.
func (c *CLI) Prompt() string {
	if id, ok := c.clients.Session.UserID(); ok {
		return fmt.Sprintf("marketplace [%s]> ", id)
	}
	return "marketplace> "
}

// ParseArgs splits a command line on spaces, keeping double-quoted text
// together.
func ParseArgs(input string) []string {
	var args []string
	var current strings.Builder
	inQuotes := false
	quoted := false

	for _, char := range input {
		switch {
		case char == '"':
			inQuotes = !inQuotes
			quoted = true
		case (char == ' ' || char == '\t') && !inQuotes:
			if current.Len() > 0 || quoted {
				args = append(args, current.String())
				current.Reset()
				quoted = false
			}
		default:
			current.WriteRune(char)
		}
	}
	if current.Len() > 0 || quoted {
		args = append(args, current.String())
	}
	return args
}

// ExecuteLine parses and runs one command line. Blank lines and lines
// starting with # are ignored.
func (c *CLI) ExecuteLine(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	return c.ExecuteCommand(ctx, ParseArgs(line))
}

// ExecuteScript runs every line of a script file in one session, stopping at
// the first failing command.
func (c *CLI) ExecuteScript(ctx context.Context, path string) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		r = f
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := c.ExecuteLine(ctx, scanner.Text()); err != nil {
			if errors.Is(err, ErrExit) {
				return nil
			}
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return scanner.Err()
}

func (c *CLI) ExecuteCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command provided")
	}
	c.logger.Debug("Executing command", zap.String("command", args[0]))

	switch args[0] {
	case "listings":
		return c.handleListings(ctx, args[1:])
	case "listing":
		return c.handleListing(ctx, args[1:])
	case "create":
		return c.handleCreate(ctx, args[1:])
	case "login":
		return c.handleLogin(ctx, args[1:])
	case "register":
		return c.handleRegister(ctx, args[1:])
	case "me":
		return c.handleMe(ctx)
	case "my-listings":
		return c.handleMyListings(ctx, args[1:])
	case "delete":
		return c.handleDelete(ctx, args[1:])
	case "logout":
		return c.handleLogout(ctx)
	case "help":
		c.printHelp(args[1:])
		return nil
	case "exit", "quit":
		return ErrExit
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func (c *CLI) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, string(data))
	return err
}

func (c *CLI) printListings(listings []domain.Listing) {
	if len(listings) == 0 {
		fmt.Fprintln(c.out, "No listings.")
		return
	}
	for _, l := range listings {
		line := fmt.Sprintf("%s  %-30s %10s", l.ID, l.Title, formatPrice(l.Price))
		if l.Condition != "" {
			line += "  (" + l.Condition + ")"
		}
		fmt.Fprintln(c.out, line)
	}
}

func formatPrice(p float64) string {
	return fmt.Sprintf("%.2f €", p)
}

func (c *CLI) printHelp(args []string) {
	if len(args) > 0 {
		if help, ok := commandHelp[args[0]]; ok {
			fmt.Fprintln(c.out, help)
			return
		}
		fmt.Fprintf(c.out, "Unknown command: %s\n", args[0])
		return
	}
	names := make([]string, 0, len(commandHelp))
	for name := range commandHelp {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(c.out, "Available commands:")
	for _, name := range names {
		fmt.Fprintf(c.out, "  %s\n", name)
	}
	fmt.Fprintln(c.out, "\nUse 'help <command>' for more information about a specific command.")
}

var commandHelp = map[string]string{
	"listings": `Syntax: listings [-query <text>] [-condition <condition>] [-min <price>] [-max <price>]
Description: Searches listings. Only the given filters are sent.
Example: listings -query chaise -max 50`,

	"listing": `Syntax: listing <id>
Description: Shows one listing with its image URLs.`,

	"create": `Syntax: create -title <title> -description <text> -price <price> [-condition <condition>] [-image <path>]...
Description: Creates a listing with up to 5 photos. Requires login.
Example: create -title "Chaise en bois" -description "Solide" -price 20 -condition "bon état" -image chaise.jpg`,

	"login": `Syntax: login <email> [password]
Description: Logs in. The password is prompted for when omitted.`,

	"register": `Syntax: register <email> <pseudo> [password]
Description: Creates an account and logs in.`,

	"me": `Syntax: me
Description: Shows the logged-in user.`,

	"my-listings": `Syntax: my-listings [user id]
Description: Lists the listings of the logged-in user.`,

	"delete": `Syntax: delete <listing id> [-user <user id>]
Description: Deletes one of your listings.`,

	"logout": `Syntax: logout
Description: Ends the session.`,

	"help": `Syntax: help [command]`,

	"exit": `Syntax: exit
Description: Leaves the shell. "quit" works too.`,
}
