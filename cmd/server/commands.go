package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/mlnotify/internal/app"
	iauth "github.com/charlesng35/mlnotify/internal/auth"
	"github.com/charlesng35/mlnotify/internal/permissions"
)

func runSeedTemplates(ctx context.Context, cfg *app.Config, out io.Writer, log *zap.Logger) error {
	db, svcs, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	created, err := svcs.Templates.SeedDefaults(ctx)
	if err != nil {
		return fmt.Errorf("seed templates: %w", err)
	}
	fmt.Fprintf(out, "created %d templates\n", created)
	return nil
}

func runExpire(ctx context.Context, cfg *app.Config, out io.Writer, log *zap.Logger) error {
	db, svcs, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	count, err := svcs.Notifications.ExpireSweep(ctx)
	if err != nil {
		return fmt.Errorf("expire notifications: %w", err)
	}
	fmt.Fprintf(out, "expired %d notifications\n", count)
	return nil
}

func runPurgeStatic(ctx context.Context, cfg *app.Config, out io.Writer, log *zap.Logger) error {
	db, svcs, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	count, err := svcs.Notifications.PurgeStatic(ctx)
	if err != nil {
		return fmt.Errorf("purge static notifications: %w", err)
	}
	fmt.Fprintf(out, "deleted %d notifications\n", count)
	return nil
}

// runIssueToken prints a signed access token. A secret generated at startup
// would make the token useless to any running server, so one must be configured.
func runIssueToken(cfg *app.Config, generated map[string]bool, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	fs.SetOutput(out)

	var (
		userID string
		roles  string
		ttl    time.Duration
	)
	fs.StringVar(&userID, "user", "", "User identifier placed in the subject claim")
	fs.StringVar(&roles, "role", permissions.RoleUser, "Comma separated roles")
	fs.DurationVar(&ttl, "ttl", 0, "Token lifetime; defaults to auth.jwt.access_token_ttl")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return errors.New("issue-token: -user is required")
	}
	if generated["auth.jwt.secret"] {
		return errors.New("issue-token: auth.jwt.secret must be configured")
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return fmt.Errorf("initialise jwt service: %w", err)
	}

	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{
		UserID: strings.TrimSpace(userID),
		Roles:  strings.Split(roles, ","),
		TTL:    ttl,
	})
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	fmt.Fprintln(out, token)
	return nil
}
