package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytfetch/internal/auth"
	"github.com/desertthunder/ytfetch/internal/repositories"
	"github.com/desertthunder/ytfetch/internal/shared"
)

type userSummary struct {
	ID        string `json:"id"`
	Sequence  int    `json:"sequence"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// UserCreate registers an account from the terminal.
func (r *Runner) UserCreate(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := r.openDatabase(ctx, config)
	if err != nil {
		return err
	}
	defer db.Close()

	accounts := auth.NewAccounts(repositories.NewUserRepository(db), r.logger)
	user, err := accounts.Register(ctx, cmd.String("username"), cmd.String("email"), cmd.String("password"))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return r.writePlain("✓ Created user %s (%s)\n", user.Username(), user.ID())
}

// UserList prints all accounts.
func (r *Runner) UserList(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := r.openDatabase(ctx, config)
	if err != nil {
		return err
	}
	defer db.Close()

	users, err := repositories.NewUserRepository(db).List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	summaries := make([]userSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, userSummary{
			ID:        u.ID(),
			Sequence:  u.Sequence(),
			Username:  u.Username(),
			Email:     u.Email(),
			CreatedAt: u.CreatedAt().UTC().Format(shared.TimestampLayout),
		})
	}

	if cmd.Bool("json") {
		return r.writeJSON(summaries, true)
	}

	r.writePlainHeader(fmt.Sprintf("Users (%d)", len(summaries)))
	for _, u := range summaries {
		r.writePlain("%d. %s <%s> %s\n", u.Sequence, u.Username, u.Email, u.ID)
	}
	return nil
}
