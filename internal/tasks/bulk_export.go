package tasks

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"

	"github.com/desertthunder/reelx/internal/formatter"
	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/shared"
)

// ExportList is one named list to export.
type ExportList struct {
	Name   string
	Movies models.MovieList
}

// BulkExportOpts contains configuration for bulk list exports.
type BulkExportOpts struct {
	Format     string                   // Export format: json, csv, markdown, txt
	OutputDir  string                   // Base output directory (default: reelx_export_{epoch})
	Owner      string                   // Recorded in each export
	NumWorkers int                      // Concurrent workers (default: 3)
	RateLimit  float64                  // Poster downloads per second (default: 5)
	PosterURL  func(path string) string // Builds an absolute poster URL; nil skips posters
}

// ListExportResult is the outcome of exporting a single list.
type ListExportResult struct {
	Name    string   `json:"name"`
	Movies  int      `json:"movies"`
	Files   []string `json:"files"`
	Skipped []string `json:"skipped,omitempty"`
	Success bool     `json:"success"`
	Error   error    `json:"-"`
	Message string   `json:"error,omitempty"`
}

// BulkExportResult summarizes a bulk export.
type BulkExportResult struct {
	Format            string             `json:"format"`
	ExportedAt        time.Time          `json:"exported_at"`
	TotalLists        int                `json:"total_lists"`
	SuccessfulExports int                `json:"successful_exports"`
	FailedExports     int                `json:"failed_exports"`
	OutputDirectory   string             `json:"output_directory"`
	ManifestPath      string             `json:"-"`
	Results           []ListExportResult `json:"results"`
}

// ExportEngine writes movie lists to disk through a [formatter.Exporter].
type ExportEngine struct {
	fs     afero.Fs
	client *http.Client
	logger *log.Logger
}

// NewExportEngine creates an [ExportEngine]. A nil fs writes to the OS filesystem.
func NewExportEngine(fs afero.Fs, client *http.Client, logger *log.Logger) *ExportEngine {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ExportEngine{fs: fs, client: client, logger: logger}
}

// BulkExport exports lists concurrently and writes export_manifest.json into the
// output directory. Poster downloads share one rate limiter. A failed list is
// recorded in the result and does not stop the others.
func (e *ExportEngine) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, lists []ExportList, opts BulkExportOpts) (*BulkExportResult, error) {
	if len(lists) == 0 {
		return nil, fmt.Errorf("%w: nothing to export", shared.ErrMissingArgument)
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if !slices.Contains(formatter.Formats, opts.Format) {
		return nil, fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("reelx_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := e.fs.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	client := &http.Client{
		Timeout:   e.client.Timeout,
		Transport: &limitedTransport{limiter: limiter, base: e.client.Transport},
	}
	exporter := formatter.NewExporter(e.fs, client)

	result := &BulkExportResult{
		Format:          opts.Format,
		ExportedAt:      time.Now().UTC(),
		TotalLists:      len(lists),
		OutputDirectory: opts.OutputDir,
		Results:         make([]ListExportResult, len(lists)),
	}

	completed := make(chan int, len(lists))
	p := pool.New().WithMaxGoroutines(opts.NumWorkers)
	for i, list := range lists {
		p.Go(func() {
			sendProgress(prog, exportingListUpdate(i+1, len(lists), list.Name))
			result.Results[i] = e.exportSingleList(ctx, exporter, list, opts)
			completed <- i
		})
	}

	go func() {
		p.Wait()
		close(completed)
	}()

	done := 0
	for i := range completed {
		done++
		res := result.Results[i]
		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(done, len(lists), res.Name, len(res.Files)))
		} else {
			result.FailedExports++
			e.logger.Warn("export failed", "list", res.Name, "error", res.Error)
			sendProgress(prog, exportFailedUpdate(done, len(lists), res.Name, res.Error))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return result, fmt.Errorf("export completed but failed to encode manifest: %w", err)
	}
	if err := afero.WriteFile(e.fs, manifestPath, data, 0o644); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	sendProgress(prog, manifestUpdate(manifestPath))
	return result, nil
}

// exportSingleList exports a single list to the requested format.
func (e *ExportEngine) exportSingleList(ctx context.Context, exporter *formatter.Exporter, list ExportList, opts BulkExportOpts) ListExportResult {
	result := ListExportResult{Name: list.Name, Movies: len(list.Movies), Files: []string{}}
	export := formatter.NewMovieExport(list.Name, opts.Owner, list.Movies)

	fail := func(err error) ListExportResult {
		result.Error = err
		result.Message = err.Error()
		return result
	}

	if ctx.Err() != nil {
		return fail(ctx.Err())
	}

	switch opts.Format {
	case formatter.FormatMarkdown:
		posters := map[int]string{}
		if opts.PosterURL != nil {
			for _, m := range list.Movies {
				if u := opts.PosterURL(m.PosterPath); u != "" {
					posters[m.ID] = u
				}
			}
		}

		mdRes, err := exporter.WriteMarkdown(ctx, export, opts.OutputDir, posters)
		if err != nil {
			return fail(fmt.Errorf("markdown export failed: %w", err))
		}
		result.Files = mdRes.Files
		result.Skipped = mdRes.Skipped
	default:
		path, err := exporter.WriteFile(export, opts.Format, opts.OutputDir)
		if err != nil {
			return fail(fmt.Errorf("%s export failed: %w", opts.Format, err))
		}
		result.Files = []string{path}
	}

	result.Success = true
	return result
}

// limitedTransport waits on a shared limiter before each request.
type limitedTransport struct {
	limiter *rate.Limiter
	base    http.RoundTripper
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
