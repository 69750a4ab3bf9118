// Package authctl implements the operator command line: bootstrapping admin
// accounts, changing roles, reading the activity log and running migrations
// against the same store the server uses.
package authctl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/trainerauth/internal/server"
)

var ErrUnknownCommand = errors.New("unknown command")

const usage = `Usage: authctl [config flags] <command> [command flags]

Commands:
  create-admin [-user name] [-email address]   create an admin account (password is prompted)
  set-role <username> <standard|admin>         change an account role
  audit [-n limit]                             print recent activity
  migrate                                      apply database migrations
  help                                         show this message
`

type App struct {
	stack  *server.Stack
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(stack *server.Stack, in io.Reader, out io.Writer) *App {
	return &App{stack: stack, reader: bufio.NewReader(in), out: out}
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return ErrUnknownCommand
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "create-admin":
		return a.CreateAdmin(ctx, rest)
	case "set-role":
		return a.SetRole(ctx, rest)
	case "audit":
		return a.Audit(ctx, rest)
	case "migrate":
		return a.Migrate(ctx)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}
