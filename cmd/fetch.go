package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytfetch/internal/models"
	"github.com/desertthunder/ytfetch/internal/services"
	"github.com/desertthunder/ytfetch/internal/shared"
	"github.com/desertthunder/ytfetch/internal/tasks"
	"github.com/desertthunder/ytfetch/internal/ui"
)

// Fetch runs one download attempt for a user and prints its progress.
func (r *Runner) Fetch(ctx context.Context, cmd *cli.Command) error {
	return r.fetch(ctx, cmd, nil)
}

// fetch is [Runner.Fetch] with an injectable extractor.
func (r *Runner) fetch(ctx context.Context, cmd *cli.Command, extractor services.Extractor) error {
	url := strings.TrimSpace(cmd.StringArg("url"))
	if url == "" {
		return fmt.Errorf("%w: url is required", shared.ErrMissingArgument)
	}

	kind, err := models.ParseKind(cmd.String("type"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	c, err := r.wire(ctx, config, extractor)
	if err != nil {
		return err
	}
	defer c.Close()

	user, err := r.lookupUser(ctx, c.users, cmd.String("user"))
	if err != nil {
		return err
	}

	r.logger.Info("starting fetch", "user", user.Username(), "url", url, "type", kind)

	progressCh := make(chan tasks.ProgressUpdate, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("%s\n", ui.RenderProgress(update))
		}
	}()

	result, err := c.materializer.Run(ctx, progressCh, user.ID(), url, kind)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n%s", ui.RenderResult(result))
	return nil
}
