package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytfetch/internal/formatter"
	"github.com/desertthunder/ytfetch/internal/repositories"
	"github.com/desertthunder/ytfetch/internal/ui"
)

// History prints or exports a user's downloads, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := r.openDatabase(ctx, config)
	if err != nil {
		return err
	}
	defer db.Close()

	users := repositories.NewUserRepository(db)
	user, err := r.lookupUser(ctx, users, cmd.String("user"))
	if err != nil {
		return err
	}

	downloads, err := repositories.NewDownloadRepository(db).ListFor(ctx, user.ID(), int(cmd.Int("limit")))
	if err != nil {
		return fmt.Errorf("failed to list downloads: %w", err)
	}

	r.logger.Debug("loaded history", "user_id", user.ID(), "count", len(downloads))

	format := cmd.String("format")
	if format == "" || format == "table" {
		r.writePlain("%s\n", ui.Styles().Title(fmt.Sprintf("Downloads for %s", user.Username())))
		return r.writePlain("%s\n", ui.RenderHistory(downloads))
	}

	f, err := formatter.ParseFormat(format)
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		written, err := formatter.WriteExport(f, user.Username(), downloads, path)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported %d downloads to %s\n", len(downloads), written)
	}

	data, err := formatter.Export(f, user.Username(), downloads)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
