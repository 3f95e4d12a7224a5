// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/shared"
)

// MockCatalog is a test double for [services.CatalogService]
type MockCatalog struct {
	mu           sync.Mutex
	Movies       []models.Movie
	Trailers     map[int]string
	PopularErr   error
	TrailerErr   map[int]error
	PopularCalls int
	TrailerCalls int
}

func (m *MockCatalog) FetchPopular(ctx context.Context, page int) ([]models.Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PopularCalls++
	if m.PopularErr != nil {
		return []models.Movie{}, m.PopularErr
	}
	out := make([]models.Movie, len(m.Movies))
	copy(out, m.Movies)
	return out, nil
}

func (m *MockCatalog) FetchTrailer(ctx context.Context, movieID int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TrailerCalls++
	if err := m.TrailerErr[movieID]; err != nil {
		return "", err
	}
	return m.Trailers[movieID], nil
}

// MockBackend is an in-memory test double for [services.Backend].
//
// Accounts map email to password; SignUp adds to it. Set Err to fail every call
// with that error; set Reject to make Verify refuse every session.
type MockBackend struct {
	mu        sync.Mutex
	Accounts  map[string]string
	Documents map[string]models.UserDocument
	Err       error
	Reject    bool
	SignOuts  int
	DocErr    error
}

// NewMockBackend creates a [MockBackend] with the given email/password pairs.
func NewMockBackend(accounts map[string]string) *MockBackend {
	if accounts == nil {
		accounts = map[string]string{}
	}
	return &MockBackend{Accounts: accounts, Documents: map[string]models.UserDocument{}}
}

func (m *MockBackend) Name() string { return "mock" }

func mockSession(email string) models.Session {
	return models.Session{UserID: "uid-" + email, Email: email}
}

func (m *MockBackend) SignIn(ctx context.Context, email, password string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return models.Session{}, m.Err
	}
	if pw, ok := m.Accounts[email]; !ok || pw != password {
		return models.Session{}, shared.ErrInvalidCredentials
	}
	return mockSession(email), nil
}

func (m *MockBackend) SignUp(ctx context.Context, email, password string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return models.Session{}, m.Err
	}
	if _, ok := m.Accounts[email]; ok {
		return models.Session{}, shared.ErrBackendRejected
	}
	m.Accounts[email] = password
	return mockSession(email), nil
}

func (m *MockBackend) SignOut(ctx context.Context, session models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SignOuts++
	return m.Err
}

func (m *MockBackend) Verify(ctx context.Context, session models.Session) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return models.Session{}, m.Err
	}
	if m.Reject {
		return models.Session{}, shared.ErrBackendRejected
	}
	return session, nil
}

func (m *MockBackend) CreateIfAbsent(ctx context.Context, session models.Session, doc models.UserDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DocErr != nil {
		return m.DocErr
	}
	if _, ok := m.Documents[session.UserID]; !ok {
		m.Documents[session.UserID] = doc
	}
	return nil
}

func (m *MockBackend) Get(ctx context.Context, session models.Session) (models.UserDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.Documents[session.UserID]
	if !ok {
		return models.UserDocument{}, shared.ErrKeyNotFound
	}
	return doc, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// SampleMovies returns a small fixed catalog page.
func SampleMovies() []models.Movie {
	return []models.Movie{
		{ID: 603, Title: "The Matrix", PosterPath: "/matrix.jpg", ReleaseDate: "1999-03-30", VoteAverage: 8.2},
		{ID: 550, Title: "Fight Club", PosterPath: "/fight.jpg", ReleaseDate: "1999-10-15", VoteAverage: 8.4},
		{ID: 680, Title: "Pulp Fiction", ReleaseDate: "1994-09-10", VoteAverage: 8.5},
	}
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
