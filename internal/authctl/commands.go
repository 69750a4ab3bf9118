package authctl

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/trainerauth/internal/common"
	"github.com/dmitrijs2005/trainerauth/internal/server/audit"
	"github.com/dmitrijs2005/trainerauth/internal/server/models"
)

var errPasswordMismatch = errors.New("passwords do not match")

func (a *App) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// CreateAdmin asks for anything not given on the command line, then reads
// the password twice without echo.
func (a *App) CreateAdmin(ctx context.Context, args []string) error {
	fs := a.newFlagSet("create-admin")
	username := fs.String("user", "", "username")
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if *username == "" {
		if *username, err = GetSimpleText(a.reader, "Enter username", a.out); err != nil {
			return err
		}
	}
	if *email == "" {
		if *email, err = GetSimpleText(a.reader, "Enter email", a.out); err != nil {
			return err
		}
	}

	pw, err := GetPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	confirm, err := GetPassword("Repeat password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if string(pw) != string(confirm) {
		return errPasswordMismatch
	}

	acc, err := a.stack.Accounts.CreateAccount(ctx, *username, *email, string(pw), models.RoleAdmin)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Created admin %s (%s)\n", acc.Username, acc.ID)
	return nil
}

func (a *App) SetRole(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: set-role <username> <standard|admin>")
	}

	acc, err := a.stack.Accounts.SetRoleByUsername(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s is now %s\n", acc.Username, acc.Role)
	return nil
}

func (a *App) Audit(ctx context.Context, args []string) error {
	fs := a.newFlagSet("audit")
	limit := fs.Int("n", audit.DefaultRecentLimit, "entries per group")
	if err := fs.Parse(args); err != nil {
		return err
	}

	g, err := a.stack.Audit.Recent(ctx, *limit)
	if err != nil {
		return err
	}

	sections := []struct {
		title   string
		entries []*models.AuditEntry
	}{
		{"Recent logins", g.RecentLogins},
		{"Failed attempts", g.FailedAttempts},
		{"Account lockouts", g.AccountLockouts},
		{"Password changes", g.PasswordChanges},
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, s := range sections {
		fmt.Fprintf(tw, "%s (%d)\n", s.title, len(s.entries))
		for _, e := range s.entries {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n",
				e.CreatedAt.Format(time.RFC3339), e.Kind, e.Username, e.IPAddress, strings.TrimSpace(e.UserAgent))
		}
	}
	return tw.Flush()
}

func (a *App) Migrate(ctx context.Context) error {
	if err := a.stack.Repos.RunMigrations(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Migrations applied")
	return nil
}
