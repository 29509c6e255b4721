package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shepherd-church/shepherd/internal/bootstrap"
	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
	"github.com/shepherd-church/shepherd/internal/domain/model"
	"github.com/shepherd-church/shepherd/internal/service"
)

func runMatrix(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("matrix", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "Print the matrix as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ev, err := bootstrap.BuildEvaluator(ctx.Config.Auth)
	if err != nil {
		return err
	}
	if *asJSON {
		return printMatrixJSON(os.Stdout, ev)
	}
	return printMatrix(os.Stdout, ev)
}

type matrixRole struct {
	domainauth.RoleInfo
	Grants map[domainauth.Resource][]domainauth.Action `json:"grants"`
}

func printMatrixJSON(w io.Writer, ev *domainauth.Evaluator) error {
	infos := domainauth.Roles()
	out := make([]matrixRole, 0, len(infos))
	for _, info := range infos {
		out = append(out, matrixRole{RoleInfo: info, Grants: ev.Grants(info.Key)})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{
		"roles":                   out,
		"super_admin_peer_policy": ev.Policy().SuperAdminPeerModification,
	}); err != nil {
		return fmt.Errorf("encode matrix: %w", err)
	}
	return nil
}

// printMatrix renders one row per role and one column per resource. A cell
// lists the granted actions, or "-" when the role cannot reach the resource.
func printMatrix(w io.Writer, ev *domainauth.Evaluator) error {
	resources := domainauth.Resources()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	header := []string{"Role"}
	for _, res := range resources {
		header = append(header, string(res))
	}
	if err := writeln(tw, strings.Join(header, "\t")); err != nil {
		return fmt.Errorf("write matrix header: %w", err)
	}
	for _, info := range domainauth.Roles() {
		grants := ev.Grants(info.Key)
		row := []string{string(info.Key)}
		for _, res := range resources {
			row = append(row, formatActions(grants[res]))
		}
		if err := writeln(tw, strings.Join(row, "\t")); err != nil {
			return fmt.Errorf("write matrix row %q: %w", info.Key, err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush matrix: %w", err)
	}
	return writef(w, "\nsuper_admin peer modification: %s\n", ev.Policy().SuperAdminPeerModification)
}

func formatActions(actions []domainauth.Action) string {
	if len(actions) == 0 {
		return "-"
	}
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = string(a)
	}
	return strings.Join(parts, ",")
}

func runBootstrapSuperAdmin(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("bootstrap-super-admin", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	uid := fs.String("uid", "", "Account to promote (must have signed in at least once)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("uid", *uid); err != nil {
		return err
	}

	return withServices(ctx, func(runCtx context.Context, svc *bootstrap.ServiceContainer) error {
		res, err := svc.Assigner.BootstrapSuperAdmin(runCtx, *uid)
		if err != nil {
			return err
		}
		return printAssignment(os.Stdout, res)
	})
}

func runAssignRole(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("assign-role", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	actor := fs.String("actor", "", "Account performing the change")
	uid := fs.String("uid", "", "Account whose role changes")
	role := fs.String("role", "", "Role to assign")
	if err := fs.Parse(args); err != nil {
		return err
	}
	for name, v := range map[string]string{"actor": *actor, "uid": *uid, "role": *role} {
		if err := requireFlag(name, v); err != nil {
			return err
		}
	}

	return withServices(ctx, func(runCtx context.Context, svc *bootstrap.ServiceContainer) error {
		p, err := actorPrincipal(runCtx, svc.Accounts, *actor)
		if err != nil {
			return err
		}
		res, err := svc.Assigner.AssignRole(runCtx, *p, service.AssignRoleInput{TargetUID: *uid, Role: *role})
		if err != nil {
			return err
		}
		return printAssignment(os.Stdout, res)
	})
}

func runSetActive(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("set-active", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	actor := fs.String("actor", "", "Account performing the change")
	uid := fs.String("uid", "", "Account to change")
	active := fs.Bool("active", false, "true to reactivate, false to deactivate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("actor", *actor); err != nil {
		return err
	}
	if err := requireFlag("uid", *uid); err != nil {
		return err
	}

	return withServices(ctx, func(runCtx context.Context, svc *bootstrap.ServiceContainer) error {
		p, err := actorPrincipal(runCtx, svc.Accounts, *actor)
		if err != nil {
			return err
		}
		res, err := svc.Assigner.SetAccountActive(runCtx, *p, *uid, *active)
		if err != nil {
			return err
		}
		if !*active {
			n, derr := svc.Sessions.DeleteByUser(runCtx, *uid)
			if derr != nil {
				ctx.Logger.WarnContext(runCtx, "revoke sessions of deactivated account failed", "uid", *uid, "error", derr)
			} else if n > 0 {
				ctx.Logger.InfoContext(runCtx, "revoked sessions of deactivated account", "uid", *uid, "count", n)
			}
		}
		return printAssignment(os.Stdout, res)
	})
}

type accountLookup interface {
	Get(ctx context.Context, uid string) (*service.AccountView, error)
}

var errActorUnusable = errors.New("actor cannot make changes")

// actorPrincipal builds the acting principal from the stored account, the
// same way a signed-in session is resolved.
func actorPrincipal(ctx context.Context, accounts accountLookup, uid string) (*domainauth.Principal, error) {
	acct, err := accounts.Get(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("load actor %q: %w", uid, err)
	}
	if !acct.Active {
		return nil, fmt.Errorf("%w: %s is deactivated", errActorUnusable, uid)
	}
	role, ok := domainauth.ParseRole(string(acct.Role))
	if !ok {
		return nil, fmt.Errorf("%w: %s holds unrecognised role %q", errActorUnusable, uid, acct.Role)
	}
	return &domainauth.Principal{
		UserID:      acct.UID,
		Email:       acct.Email,
		DisplayName: acct.DisplayName(),
		Role:        role,
	}, nil
}

func printAssignment(w io.Writer, res *service.AssignmentResult) error {
	if res == nil || res.Account == nil {
		return writeln(w, "No account returned.")
	}
	a := res.Account
	if !res.Changed {
		return writef(w, "No change: %s (%s) is %s, active=%t.\n", a.Email, a.UID, a.Role, a.Active)
	}
	return writef(w, "Updated %s (%s): role=%s active=%t.\n", a.Email, a.UID, a.Role, a.Active)
}

func runListAccounts(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("list-accounts", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	role := fs.String("role", "", "Only accounts holding this role")
	q := fs.String("q", "", "Substring match on email or name")
	limit := fs.Int("limit", 50, "Maximum rows")
	offset := fs.Int("offset", 0, "Rows to skip")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := model.AccountListOptions{Limit: *limit, Offset: *offset}
	if *role != "" {
		r, ok := domainauth.ParseRole(*role)
		if !ok {
			return fmt.Errorf("unknown role %q", *role)
		}
		opts.Role = &r
	}
	if *q != "" {
		opts.Q = q
	}

	return withServices(ctx, func(runCtx context.Context, svc *bootstrap.ServiceContainer) error {
		page, err := svc.Accounts.List(runCtx, opts)
		if err != nil {
			return err
		}
		return printAccounts(os.Stdout, page)
	})
}

func printAccounts(w io.Writer, page *service.AccountPage) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "UID\tEmail\tName\tRole\tActive\tLast Login"); err != nil {
		return fmt.Errorf("write accounts header: %w", err)
	}
	for _, a := range page.Accounts {
		last := "never"
		if a.LastLoginAt != nil {
			last = a.LastLoginAt.UTC().Format(time.RFC3339)
		}
		if err := writef(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
			a.UID, a.Email, a.DisplayName(), a.RoleInfo.Label, a.Active, last); err != nil {
			return fmt.Errorf("write account %q: %w", a.UID, err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush accounts: %w", err)
	}
	for _, c := range page.Counts {
		if err := writef(w, "%s: %d\n", c.Role.Label, c.Count); err != nil {
			return err
		}
	}
	return nil
}

func runAudit(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	target := fs.String("uid", "", "Only changes to this account")
	actor := fs.String("actor", "", "Only changes made by this account")
	limit := fs.Int("limit", 50, "Maximum rows")
	offset := fs.Int("offset", 0, "Rows to skip")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := model.RoleChangeListOptions{Limit: *limit, Offset: *offset}
	if *target != "" {
		opts.TargetUID = target
	}
	if *actor != "" {
		opts.ActorUID = actor
	}

	return withServices(ctx, func(runCtx context.Context, svc *bootstrap.ServiceContainer) error {
		changes, err := svc.Audit.ListRoleChanges(runCtx, opts)
		if err != nil {
			return err
		}
		return printRoleChanges(os.Stdout, changes)
	})
}

func printRoleChanges(w io.Writer, changes []*model.RoleChange) error {
	if len(changes) == 0 {
		return writeln(w, "No role changes recorded.")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "At\tEvent\tActor\tTarget\tFrom\tTo"); err != nil {
		return fmt.Errorf("write audit header: %w", err)
	}
	for _, c := range changes {
		if err := writef(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.At.UTC().Format(time.RFC3339), c.Event, c.ActorUID, c.TargetUID,
			orDash(string(c.PreviousRole)), orDash(string(c.NewRole))); err != nil {
			return fmt.Errorf("write audit row %q: %w", c.ID, err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush audit: %w", err)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func runRevokeSessions(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("revoke-sessions", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	uid := fs.String("uid", "", "Account whose sessions are deleted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("uid", *uid); err != nil {
		return err
	}

	return withServices(ctx, func(runCtx context.Context, svc *bootstrap.ServiceContainer) error {
		n, err := svc.Sessions.DeleteByUser(runCtx, *uid)
		if err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
		return writef(os.Stdout, "Revoked %d session(s) for %s.\n", n, *uid)
	})
}
