package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/desertthunder/reelx/internal/formatter"
	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/shared"
	tu "github.com/desertthunder/reelx/internal/testing"
)

func testLists() []ExportList {
	movies := models.MovieList(tu.SampleMovies())
	return []ExportList{
		{Name: "Favorites", Movies: movies[:1]},
		{Name: "To Watch", Movies: movies[1:]},
		{Name: "Watched", Movies: models.MovieList{}},
	}
}

func TestBulkExport(t *testing.T) {
	ctx := context.Background()

	t.Run("JSON Exports And Manifest", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		engine := NewExportEngine(fs, nil, nil)
		progress := make(chan ProgressUpdate, 20)

		result, err := engine.BulkExport(ctx, progress, testLists(), BulkExportOpts{OutputDir: "out", Owner: "a@example.com"})
		close(progress)
		if err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}

		if result.TotalLists != 3 || result.SuccessfulExports != 3 || result.FailedExports != 0 {
			t.Errorf("unexpected counts %+v", result)
		}
		if result.Format != formatter.FormatJSON {
			t.Errorf("expected default json format, got %s", result.Format)
		}

		for i, name := range []string{"favorites", "to-watch", "watched"} {
			path := filepath.Join("out", name+".json")
			if ok, _ := afero.Exists(fs, path); !ok {
				t.Errorf("expected %s to exist", path)
			}
			if result.Results[i].Files[0] != path {
				t.Errorf("Results[%d] out of order: %v", i, result.Results[i].Files)
			}
		}

		data, err := afero.ReadFile(fs, result.ManifestPath)
		if err != nil {
			t.Fatalf("failed to read manifest: %v", err)
		}
		var manifest BulkExportResult
		if err := json.Unmarshal(data, &manifest); err != nil {
			t.Fatalf("invalid manifest: %v", err)
		}
		if manifest.SuccessfulExports != 3 || len(manifest.Results) != 3 {
			t.Errorf("unexpected manifest %+v", manifest)
		}

		var sawManifest bool
		for u := range progress {
			if u.Phase == WriteManifest {
				sawManifest = true
			}
		}
		if !sawManifest {
			t.Error("expected a manifest progress update")
		}
	})

	t.Run("CSV And Text", func(t *testing.T) {
		for _, format := range []string{formatter.FormatCSV, formatter.FormatText} {
			fs := afero.NewMemMapFs()
			result, err := NewExportEngine(fs, nil, nil).BulkExport(ctx, nil, testLists()[:1], BulkExportOpts{Format: format, OutputDir: "out"})
			if err != nil {
				t.Fatalf("BulkExport(%s) error = %v", format, err)
			}
			if !strings.HasSuffix(result.Results[0].Files[0], "favorites."+format) {
				t.Errorf("unexpected file %v", result.Results[0].Files)
			}
		}
	})

	t.Run("Markdown With Posters", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00"))
		}))
		defer srv.Close()

		fs := afero.NewMemMapFs()
		engine := NewExportEngine(fs, srv.Client(), nil)
		opts := BulkExportOpts{
			Format:    formatter.FormatMarkdown,
			OutputDir: "out",
			RateLimit: 100,
			PosterURL: func(path string) string {
				if path == "" {
					return ""
				}
				return srv.URL + path
			},
		}

		result, err := engine.BulkExport(ctx, nil, testLists(), opts)
		if err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}
		if result.SuccessfulExports != 3 {
			t.Fatalf("unexpected result %+v", result)
		}

		poster := filepath.Join("out", "to-watch", "posters", "fight-club-550.png")
		if ok, _ := afero.Exists(fs, poster); !ok {
			t.Errorf("expected poster %s", poster)
		}
		if ok, _ := afero.Exists(fs, filepath.Join("out", "watched", "README.md")); !ok {
			t.Error("expected README for empty list")
		}
	})

	t.Run("Output Directory Not Writable", func(t *testing.T) {
		fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
		if _, err := NewExportEngine(fs, nil, nil).BulkExport(ctx, nil, testLists(), BulkExportOpts{OutputDir: "out"}); err == nil {
			t.Error("expected error on read-only filesystem")
		}
	})

	t.Run("Invalid Options", func(t *testing.T) {
		engine := NewExportEngine(afero.NewMemMapFs(), nil, nil)
		if _, err := engine.BulkExport(ctx, nil, nil, BulkExportOpts{}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if _, err := engine.BulkExport(ctx, nil, testLists(), BulkExportOpts{Format: "pdf"}); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Canceled Context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		result, err := NewExportEngine(afero.NewMemMapFs(), nil, nil).BulkExport(cctx, nil, testLists(), BulkExportOpts{OutputDir: "out"})
		if err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}
		if result.FailedExports != 3 || result.Results[0].Error == nil {
			t.Errorf("expected every list to fail, got %+v", result)
		}
	})
}
