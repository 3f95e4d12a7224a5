package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/shared"
)

const (
	tmdbBaseURL      = "https://api.themoviedb.org/3"
	tmdbImageBaseURL = "https://image.tmdb.org/t/p/w500"
	tmdbMovieURL     = "https://www.themoviedb.org/movie/"
	youtubeWatchURL  = "https://www.youtube.com/watch?v="
	defaultLanguage  = "en-US"
	maxBodyBytes     = 4 << 20
)

// TMDBService implements [CatalogService] against the TMDB v3 REST API.
type TMDBService struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// tmdbPage is the envelope of list endpoints such as /movie/popular.
type tmdbPage struct {
	Page         int            `json:"page"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
	Results      []models.Movie `json:"results"`
}

// TMDBVideo is one entry of /movie/{id}/videos.
type TMDBVideo struct {
	Key      string `json:"key"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Official bool   `json:"official"`
}

type tmdbVideos struct {
	ID      int         `json:"id"`
	Results []TMDBVideo `json:"results"`
}

// NewTMDBService creates a catalog client from cfg. A nil client gets one with the configured timeout.
//
// RateLimit is requests per second; zero disables pacing.
func NewTMDBService(cfg shared.CatalogConfig, client *http.Client, logger *log.Logger) (*TMDBService, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: catalog.api_key (or %s) is required", shared.ErrMissingConfig, shared.EnvCatalogAPIKey)
	}

	if client == nil {
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	s := &TMDBService{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(orDefault(cfg.BaseURL, tmdbBaseURL), "/"),
		language:   orDefault(cfg.Language, defaultLanguage),
		httpClient: client,
		logger:     logger,
	}

	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return s, nil
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// FetchPopular implements [CatalogService].
//
// An empty results array is a valid, empty page. Transport failures and non-2xx
// statuses map to [shared.ErrNetworkUnavailable]; undecodable bodies to [shared.ErrMalformedResponse].
func (s *TMDBService) FetchPopular(ctx context.Context, page int) ([]models.Movie, error) {
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("language", s.language)
	params.Set("page", strconv.Itoa(page))

	var body tmdbPage
	if err := s.get(ctx, "/movie/popular", params, &body); err != nil {
		return []models.Movie{}, err
	}

	movies := make([]models.Movie, 0, len(body.Results))
	for _, m := range body.Results {
		if m.ID == 0 {
			s.logger.Debug("skipping catalog entry without id", "title", m.Title)
			continue
		}
		movies = append(movies, m)
	}

	s.logger.Debug("fetched popular movies", "page", page, "count", len(movies))
	return movies, nil
}

// FetchTrailer implements [CatalogService]. The first YouTube video typed "Trailer" wins.
func (s *TMDBService) FetchTrailer(ctx context.Context, movieID int) (string, error) {
	videos, err := s.Videos(ctx, movieID)
	if err != nil {
		return "", err
	}
	return FirstTrailer(videos), nil
}

// Videos returns every video TMDB lists for movieID.
func (s *TMDBService) Videos(ctx context.Context, movieID int) ([]TMDBVideo, error) {
	if movieID <= 0 {
		return nil, fmt.Errorf("%w: movie id %d", shared.ErrInvalidArgument, movieID)
	}

	var body tmdbVideos
	if err := s.get(ctx, fmt.Sprintf("/movie/%d/videos", movieID), url.Values{}, &body); err != nil {
		return nil, err
	}
	return body.Results, nil
}

// FirstTrailer picks the first video whose type is "Trailer" hosted on YouTube.
func FirstTrailer(videos []TMDBVideo) string {
	for _, v := range videos {
		if v.Type == "Trailer" && (v.Site == "" || strings.EqualFold(v.Site, "YouTube")) && v.Key != "" {
			return v.Key
		}
	}
	return ""
}

// get performs a GET to the TMDB API and decodes the JSON body into result.
func (s *TMDBService) get(ctx context.Context, endpoint string, params url.Values, result any) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limiter: %v", shared.ErrNetworkUnavailable, err)
		}
	}

	params.Set("api_key", s.apiKey)
	apiURL := s.baseURL + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrNetworkUnavailable, endpoint, redactKey(err, s.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", shared.ErrMovieNotFound, endpoint)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("catalog request failed", "endpoint", endpoint, "status", resp.StatusCode)
		return fmt.Errorf("%w: tmdb API error: status %d", shared.ErrNetworkUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(result); err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrMalformedResponse, endpoint, err)
	}

	return nil
}

// redactKey strips the API key from transport errors, which embed the request URL.
func redactKey(err error, key string) string {
	return strings.ReplaceAll(err.Error(), key, "REDACTED")
}

// PosterURL joins an image base such as https://image.tmdb.org/t/p/w500 with a poster path.
func PosterURL(imageBase, posterPath string) string {
	if posterPath == "" {
		return ""
	}
	if imageBase == "" {
		imageBase = tmdbImageBaseURL
	}
	return strings.TrimRight(imageBase, "/") + "/" + strings.TrimLeft(posterPath, "/")
}

// TrailerURL returns the YouTube watch link for a trailer key.
func TrailerURL(key string) string {
	if key == "" {
		return ""
	}
	return youtubeWatchURL + url.QueryEscape(key)
}

// MovieURL returns the TMDB page for a movie.
func MovieURL(id int) string {
	return tmdbMovieURL + strconv.Itoa(id)
}
