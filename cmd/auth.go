package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/shared"
)

// credentials reads --email and --password, prompting on the input for missing values.
func (r *Runner) credentials(cmd *cli.Command) (string, string, error) {
	email := strings.TrimSpace(cmd.String("email"))
	password := cmd.String("password")

	var err error
	if email == "" {
		if email, err = r.readLine("Email: "); err != nil {
			return "", "", err
		}
		email = strings.TrimSpace(email)
	}
	if password == "" {
		if password, err = r.readLine("Password: "); err != nil {
			return "", "", err
		}
	}
	if email == "" || password == "" {
		return "", "", fmt.Errorf("%w: email and password are required", shared.ErrMissingArgument)
	}
	return email, password, nil
}

// AuthSignIn signs in and persists the session for later commands.
func (r *Runner) AuthSignIn(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireBackend(); err != nil {
		return err
	}
	email, password, err := r.credentials(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("signing in", "email", email, "backend", r.backend.Name())
	s, err := r.sessions.SignIn(ctx, email, password)
	if err != nil {
		return authError("sign in", err)
	}

	return r.writePlain("✓ Signed in as %s\n", s.Email)
}

// AuthSignUp creates an account, provisions its document and signs in.
func (r *Runner) AuthSignUp(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireBackend(); err != nil {
		return err
	}
	email, password, err := r.credentials(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("signing up", "email", email, "backend", r.backend.Name())
	s, err := r.sessions.SignUp(ctx, email, password)
	if err != nil {
		return authError("sign up", err)
	}

	r.writePlain("✓ Account created for %s\n", s.Email)
	return r.writePlain("Collections ready: %s\n", strings.Join(collectionNames(), ", "))
}

// AuthSignOut ends the session. Local session data is cleared even when the backend call fails.
func (r *Runner) AuthSignOut(ctx context.Context, cmd *cli.Command) error {
	s := r.sessions.Current()
	if s.Guest() {
		return r.writePlain("Not signed in\n")
	}
	if err := r.requireBackend(); err != nil {
		return err
	}

	if err := r.sessions.SignOut(ctx); err != nil {
		r.writePlain("Signed out locally\n")
		return fmt.Errorf("backend sign out failed: %w", err)
	}
	return r.writePlain("✓ Signed out %s\n", s.Email)
}

// AuthStatus prints the current session.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	s := r.sessions.Current()

	if cmd.Bool("json") {
		status := struct {
			SignedIn  bool   `json:"signed_in"`
			UserID    string `json:"user_id,omitempty"`
			Email     string `json:"email,omitempty"`
			Watchlist string `json:"watchlist_key"`
			Backend   string `json:"backend"`
		}{
			SignedIn:  !s.Guest(),
			UserID:    s.UserID,
			Email:     s.Email,
			Watchlist: models.ScopeFor(s).WatchlistKey(),
			Backend:   r.config.Identity.Backend,
		}
		return r.writeJSON(status, true)
	}

	if s.Guest() {
		r.writePlain("Not signed in (guest)\n")
		return r.writePlain("Watchlist: shared guest list\n")
	}

	r.writePlain("✓ Signed in as %s\n", s.Email)
	r.writePlain("User ID: %s\n", s.UserID)
	if s.Token != nil && !s.Token.Expiry.IsZero() {
		r.writePlain("Token expires: %s\n", s.Token.Expiry.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// authError maps backend failures to a message for the terminal while keeping the sentinel.
func authError(action string, err error) error {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		return fmt.Errorf("%s failed: %w (check email and password)", action, err)
	case errors.Is(err, shared.ErrNetworkUnavailable):
		return fmt.Errorf("%s failed: %w (try again when online)", action, err)
	default:
		return fmt.Errorf("%s failed: %w", action, err)
	}
}

func collectionNames() []string {
	names := make([]string, len(models.CollectionNames))
	for i, n := range models.CollectionNames {
		names[i] = string(n)
	}
	return names
}
