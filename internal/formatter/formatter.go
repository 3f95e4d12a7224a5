// package formatter exports movie lists to JSON, CSV, Markdown and plain text
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/services"
	"github.com/desertthunder/reelx/internal/shared"
)

// Supported export formats
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Formats lists the accepted values for the --format flag.
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

const maxPosterBytes = 10 << 20

// MovieExport is a named movie list ready to be written.
type MovieExport struct {
	Name       string           `json:"name"`
	Owner      string           `json:"owner"`
	ExportedAt time.Time        `json:"exported_at"`
	Movies     models.MovieList `json:"movies"`
}

// NewMovieExport stamps list with name, owner and the current time.
func NewMovieExport(name, owner string, list models.MovieList) *MovieExport {
	return &MovieExport{Name: name, Owner: owner, ExportedAt: time.Now().UTC(), Movies: list.Clone()}
}

// ExportToJSON renders the export as indented JSON.
func ExportToJSON(export *MovieExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// ExportToCSV converts an export to CSV with columns: ID, Title, Year, Release Date, Rating, Poster, Trailer
func ExportToCSV(export *MovieExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Year", "Release Date", "Rating", "Poster", "Trailer"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, m := range export.Movies {
		record := []string{
			strconv.Itoa(m.ID),
			m.Title,
			m.Year(),
			m.ReleaseDate,
			strconv.FormatFloat(m.VoteAverage, 'f', 1, 64),
			m.PosterPath,
			m.TrailerKey,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown converts an export to Markdown. posters maps movie IDs to
// image paths relative to the document; movies without one get no image.
func ExportToMarkdown(export *MovieExport, posters map[int]string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Name)
	if export.Owner != "" {
		fmt.Fprintf(&buf, "**Owner**: %s\n", export.Owner)
	}
	fmt.Fprintf(&buf, "**Movies**: %d\n", len(export.Movies))
	fmt.Fprintf(&buf, "**Exported**: %s\n\n", export.ExportedAt.Format(time.RFC3339))

	for i, m := range export.Movies {
		fmt.Fprintf(&buf, "## %d. %s", i+1, m.Title)
		if y := m.Year(); y != "" {
			fmt.Fprintf(&buf, " (%s)", y)
		}
		buf.WriteString("\n\n")

		if p, ok := posters[m.ID]; ok {
			fmt.Fprintf(&buf, "![%s](%s)\n\n", m.Title, p)
		}
		fmt.Fprintf(&buf, "**Rating**: %s\n", shared.FormatRating(m.VoteAverage))
		if m.HasTrailer() {
			fmt.Fprintf(&buf, "**Trailer**: %s\n", services.TrailerURL(m.TrailerKey))
		}
		if m.Overview != "" {
			fmt.Fprintf(&buf, "\n%s\n", m.Overview)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts an export to plain text
func ExportToText(export *MovieExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", export.Name)
	if export.Owner != "" {
		fmt.Fprintf(&buf, "Owner: %s\n", export.Owner)
	}
	fmt.Fprintf(&buf, "Movies: %d\n\n", len(export.Movies))

	for i, m := range export.Movies {
		line := fmt.Sprintf("%d. %s", i+1, m.Title)
		if y := m.Year(); y != "" {
			line += fmt.Sprintf(" (%s)", y)
		}
		fmt.Fprintf(&buf, "%s [%s]\n", line, shared.FormatRating(m.VoteAverage))
	}

	return buf.Bytes(), nil
}

// Exporter writes exports to a filesystem and downloads posters for Markdown output.
type Exporter struct {
	fs     afero.Fs
	client *http.Client
}

// NewExporter creates an [Exporter]. A nil fs writes to the OS filesystem; a nil
// client uses a 30 second timeout.
func NewExporter(fs afero.Fs, client *http.Client) *Exporter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Exporter{fs: fs, client: client}
}

// BaseName returns the slugged file name stem for an export, e.g. "to-watch".
func BaseName(export *MovieExport) string {
	if slug := shared.Slugify(export.Name); slug != "" {
		return slug
	}
	return "movies"
}

// WriteFile renders export in format and writes it into dir as {slug}.{ext}.
// Markdown output is handled by [Exporter.WriteMarkdown].
func (e *Exporter) WriteFile(export *MovieExport, format, dir string) (string, error) {
	var (
		data []byte
		ext  string
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = ExportToCSV(export)
		ext = "csv"
	case FormatText:
		data, err = ExportToText(export)
		ext = "txt"
	case FormatJSON, "":
		data, err = ExportToJSON(export)
		ext = "json"
	default:
		return "", fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", ext, err)
	}

	if err := e.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	path := filepath.Join(dir, BaseName(export)+"."+ext)
	if err := afero.WriteFile(e.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdown
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Posters   int
	Skipped   []string
}

// WriteMarkdown writes {dir}/{slug}/README.md. posterURLs maps movie IDs to
// absolute image URLs; each is downloaded into a posters/ subdirectory. A poster
// that cannot be fetched, or is not an image, is recorded in Skipped.
func (e *Exporter) WriteMarkdown(ctx context.Context, export *MovieExport, dir string, posterURLs map[int]string) (*MarkdownExportResult, error) {
	outputDir := filepath.Join(dir, BaseName(export))
	if err := e.fs.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}
	posters := make(map[int]string, len(posterURLs))

	for _, m := range export.Movies {
		u, ok := posterURLs[m.ID]
		if !ok || u == "" {
			continue
		}

		rel, err := e.savePoster(ctx, outputDir, m, u)
		if err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: %v", m.Title, err))
			continue
		}
		posters[m.ID] = rel
		result.Files = append(result.Files, filepath.Join(outputDir, rel))
		result.Posters++
	}

	mdData, err := ExportToMarkdown(export, posters)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := afero.WriteFile(e.fs, mdFile, mdData, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)
	return result, nil
}

func (e *Exporter) savePoster(ctx context.Context, outputDir string, m models.Movie, url string) (string, error) {
	data, err := DownloadImage(ctx, e.client, url)
	if err != nil {
		return "", err
	}

	ext, err := ImageExtension(data)
	if err != nil {
		return "", err
	}

	if err := e.fs.MkdirAll(filepath.Join(outputDir, "posters"), 0o755); err != nil {
		return "", fmt.Errorf("failed to create posters directory: %w", err)
	}

	rel := filepath.Join("posters", PosterFilename(m, ext))
	if err := afero.WriteFile(e.fs, filepath.Join(outputDir, rel), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save poster: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// ImageExtension sniffs data and returns its file extension, e.g. ".jpg".
// Non-image content is an error.
func ImageExtension(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: not an image (%s)", shared.ErrMalformedResponse, mt.String())
	}
	return mt.Extension(), nil
}

// PosterFilename names a poster after its movie: "{slug}-{id}{ext}".
func PosterFilename(m models.Movie, ext string) string {
	slug := shared.Slugify(m.Title)
	if slug == "" {
		return strconv.Itoa(m.ID) + ext
	}
	return fmt.Sprintf("%s-%d%s", slug, m.ID, ext)
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to download image: %v", shared.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: failed to download image: status %d", shared.ErrNetworkUnavailable, resp.StatusCode)
	}

	imageData, err := io.ReadAll(io.LimitReader(resp.Body, maxPosterBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return imageData, nil
}
