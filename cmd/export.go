package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/reelx/internal/formatter"
	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/services"
	"github.com/desertthunder/reelx/internal/tasks"
)

func (r *Runner) exportOpts(cmd *cli.Command, owner string) tasks.BulkExportOpts {
	opts := tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		Owner:      owner,
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate-limit"),
	}
	if cmd.Bool("posters") {
		if opts.Format != formatter.FormatMarkdown {
			r.logger.Warn("--posters only applies to markdown exports", "format", opts.Format)
		}
		base := r.config.Catalog.ImageBaseURL
		opts.PosterURL = func(path string) string { return services.PosterURL(base, path) }
	}
	return opts
}

// runExport runs a bulk export and prints progress and a summary.
func (r *Runner) runExport(ctx context.Context, lists []tasks.ExportList, opts tasks.BulkExportOpts) error {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.PhaseExportList:
				r.writePlain("   %s\n", update.Message)
			case tasks.WriteManifest:
				r.writePlain("📝 %s\n", update.Message)
			}
		}
	}()

	result, err := r.exports.BulkExport(ctx, progressCh, lists, opts)
	close(progressCh)
	<-done

	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Format: %s\n", result.Format)
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Lists: %d/%d exported\n", result.SuccessfulExports, result.TotalLists)
	for _, res := range result.Results {
		if !res.Success {
			r.writePlain("  ✗ %s: %s\n", res.Name, res.Message)
			continue
		}
		for _, f := range res.Files {
			r.writePlain("  %s\n", f)
		}
		if len(res.Skipped) > 0 {
			r.writePlain("  (%d posters skipped)\n", len(res.Skipped))
		}
	}

	if result.FailedExports > 0 {
		return fmt.Errorf("%d of %d lists failed to export", result.FailedExports, result.TotalLists)
	}
	return nil
}

// ExportWatchlist writes the current scope's watchlist.
func (r *Runner) ExportWatchlist(ctx context.Context, cmd *cli.Command) error {
	s := r.sessions.Current()
	list := r.watchlist.Load(models.ScopeFor(s))
	if len(list) == 0 {
		return r.writePlain("Watchlist is empty, nothing to export\n")
	}

	r.logger.Info("exporting watchlist", "movies", len(list), "format", cmd.String("format"))
	lists := []tasks.ExportList{{Name: "Watchlist", Movies: list}}
	return r.runExport(ctx, lists, r.exportOpts(cmd, s.String()))
}

// ExportCollections writes each of the signed-in user's collections to its own file.
func (r *Runner) ExportCollections(ctx context.Context, cmd *cli.Command) error {
	s, err := r.requireSession()
	if err != nil {
		return err
	}

	cols := r.collections.Load(s)
	lists := make([]tasks.ExportList, 0, len(models.CollectionNames))
	for _, name := range models.CollectionNames {
		lists = append(lists, tasks.ExportList{Name: string(name), Movies: cols[name]})
	}

	r.logger.Info("exporting collections", "user", s.UserID, "format", cmd.String("format"))
	return r.runExport(ctx, lists, r.exportOpts(cmd, s.String()))
}
