package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/shepherd-church/shepherd/config"
	"github.com/shepherd-church/shepherd/internal/bootstrap"
	"github.com/shepherd-church/shepherd/internal/migrate"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = time.Minute
)

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"matrix": {
			name:        "matrix",
			description: "Print the role permission matrix",
			run:         runMatrix,
		},
		"bootstrap-super-admin": {
			name:        "bootstrap-super-admin",
			description: "Promote an account to super_admin when none exists",
			run:         runBootstrapSuperAdmin,
		},
		"assign-role": {
			name:        "assign-role",
			description: "Assign a role to an account on behalf of an actor",
			run:         runAssignRole,
		},
		"set-active": {
			name:        "set-active",
			description: "Deactivate or reactivate an account on behalf of an actor",
			run:         runSetActive,
		},
		"list-accounts": {
			name:        "list-accounts",
			description: "List accounts with their roles",
			run:         runListAccounts,
		},
		"audit": {
			name:        "audit",
			description: "List recorded role changes",
			run:         runAudit,
		},
		"revoke-sessions": {
			name:        "revoke-sessions",
			description: "Delete every session of an account",
			run:         runRevokeSessions,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: shepherd-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(os.Stdout, "  %-24s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

func runMigrations(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	timeout := fs.Duration("timeout", defaultMigrationTimeout, "Maximum time to wait for migrations")
	status := fs.Bool("status", false, "List migrations and whether they are applied, without applying any")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx.Ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithTimeout(sigCtx, *timeout)
	defer cancel()

	db, _, err := connectInfraWithOptions(&connectInfraOptions{
		Logger: ctx.Logger,
		Config: &ctx.Config,
		WantDB: true,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeInfra(db, nil); cerr != nil {
			ctx.Logger.Error("close infra", "error", cerr)
		}
	}()

	if *status {
		migrations, err := migrate.Status(runCtx, db)
		if err != nil {
			return err
		}
		return printMigrationStatus(os.Stdout, migrations)
	}
	if err := bootstrap.RunMigrations(runCtx, db, ctx.Logger); err != nil {
		return err
	}
	return writeln(os.Stdout, "Migrations complete.")
}

func printMigrationStatus(w io.Writer, migrations []migrate.Migration) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "Version\tApplied At"); err != nil {
		return fmt.Errorf("write migration header: %w", err)
	}
	for _, m := range migrations {
		at := "pending"
		if m.Applied() {
			at = m.AppliedAt.UTC().Format(time.RFC3339)
		}
		if err := writef(tw, "%s\t%s\n", m.Version, at); err != nil {
			return fmt.Errorf("write migration %q: %w", m.Version, err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush migrations: %w", err)
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func write(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func writeln(w io.Writer, s string) error {
	return write(w, s+"\n")
}

var errMissingFlag = errors.New("missing required flag")

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: --%s", errMissingFlag, name)
	}
	return nil
}
