package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// SettingsUsername prints the stored display name, or sets it when a name is given.
func (r *Runner) SettingsUsername(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")

	switch {
	case cmd.Bool("clear"):
		if err := r.settings.SetUsername(""); err != nil {
			return fmt.Errorf("failed to clear username: %w", err)
		}
		r.writePlain("✓ Username cleared\n")
	case name != "":
		if err := r.settings.SetUsername(name); err != nil {
			return fmt.Errorf("failed to save username: %w", err)
		}
		r.writePlain("✓ Username set to %s\n", r.settings.Username())
	default:
		if u := r.settings.Username(); u != "" {
			r.writePlain("Username: %s\n", u)
		} else {
			r.writePlain("Username: (not set)\n")
		}
	}

	return r.writePlain("%s\n", r.settings.Greeting())
}
