package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/shared"
)

const (
	firebaseIdentityURL = "https://identitytoolkit.googleapis.com/v1"
	firebaseTokenURL    = "https://securetoken.googleapis.com/v1/token"
)

// FirebaseBackend implements [Backend] with the Firebase Auth and Firestore REST APIs.
//
// Identity calls go to the Identity Toolkit with the web API key. Document calls carry
// the user's ID token as a bearer token through an [oauth2] client.
type FirebaseBackend struct {
	apiKey       string
	identityURL  string
	tokenURL     string
	documentsURL string
	httpClient   *http.Client
	logger       *log.Logger
}

// firebaseAuthResponse covers signInWithPassword and signUp.
type firebaseAuthResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type firebaseLookupResponse struct {
	Users []struct {
		LocalID  string `json:"localId"`
		Email    string `json:"email"`
		Disabled bool   `json:"disabled"`
	} `json:"users"`
}

type firebaseErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewFirebaseBackend creates a [FirebaseBackend] from cfg. A nil client uses [http.DefaultClient].
func NewFirebaseBackend(cfg shared.IdentityConfig, client *http.Client, logger *log.Logger) (*FirebaseBackend, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: identity.api_key (or %s) is required", shared.ErrMissingConfig, shared.EnvIdentityAPIKey)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	return &FirebaseBackend{
		apiKey:       cfg.APIKey,
		identityURL:  strings.TrimRight(orDefault(cfg.IdentityURL, firebaseIdentityURL), "/"),
		tokenURL:     firebaseTokenURL,
		documentsURL: strings.TrimRight(cfg.DocumentsURL, "/"),
		httpClient:   client,
		logger:       logger,
	}, nil
}

func (b *FirebaseBackend) Name() string { return shared.IdentityFirebase }

// SignIn implements [IdentityProvider] with accounts:signInWithPassword.
func (b *FirebaseBackend) SignIn(ctx context.Context, email, password string) (models.Session, error) {
	if err := validateCredentials(email, password); err != nil {
		return models.Session{}, err
	}
	return b.authenticate(ctx, "accounts:signInWithPassword", email, password)
}

// SignUp implements [IdentityProvider] with accounts:signUp.
func (b *FirebaseBackend) SignUp(ctx context.Context, email, password string) (models.Session, error) {
	if err := validateCredentials(email, password); err != nil {
		return models.Session{}, err
	}
	return b.authenticate(ctx, "accounts:signUp", email, password)
}

func (b *FirebaseBackend) authenticate(ctx context.Context, method, email, password string) (models.Session, error) {
	payload := map[string]any{
		"email":             strings.TrimSpace(email),
		"password":          password,
		"returnSecureToken": true,
	}

	var resp firebaseAuthResponse
	if err := b.post(ctx, method, payload, &resp); err != nil {
		return models.Session{}, err
	}
	if resp.LocalID == "" || resp.IDToken == "" {
		return models.Session{}, fmt.Errorf("%w: %s returned no token", shared.ErrMalformedResponse, method)
	}

	return models.Session{
		UserID: resp.LocalID,
		Email:  resp.Email,
		Token: &oauth2.Token{
			AccessToken:  resp.IDToken,
			TokenType:    "Bearer",
			RefreshToken: resp.RefreshToken,
			Expiry:       expiryFrom(resp.ExpiresIn),
		},
	}, nil
}

func expiryFrom(expiresIn string) time.Time {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Now().Add(time.Duration(secs) * time.Second)
}

// SignOut implements [IdentityProvider]. Firebase ID tokens cannot be revoked by a
// client; the session store drops its local copy.
func (b *FirebaseBackend) SignOut(ctx context.Context, session models.Session) error {
	return ctx.Err()
}

// Verify implements [IdentityProvider]. Expired tokens are refreshed first; the
// resulting ID token is then checked with accounts:lookup.
func (b *FirebaseBackend) Verify(ctx context.Context, session models.Session) (models.Session, error) {
	if session.Guest() || session.Token == nil {
		return models.Session{}, shared.ErrNotAuthenticated
	}

	if !session.Token.Valid() {
		tok, err := b.refresh(ctx, session.Token)
		if err != nil {
			return models.Session{}, err
		}
		session.Token = tok
	}

	var resp firebaseLookupResponse
	if err := b.post(ctx, "accounts:lookup", map[string]string{"idToken": session.AccessToken()}, &resp); err != nil {
		return models.Session{}, err
	}

	if len(resp.Users) == 0 || resp.Users[0].LocalID != session.UserID {
		return models.Session{}, fmt.Errorf("%w: token does not match user", shared.ErrBackendRejected)
	}
	if resp.Users[0].Disabled {
		return models.Session{}, fmt.Errorf("%w: user disabled", shared.ErrBackendRejected)
	}

	session.Email = resp.Users[0].Email
	return session, nil
}

// refresh exchanges a refresh token at the secure token endpoint using the oauth2 refresh flow.
func (b *FirebaseBackend) refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	if tok.RefreshToken == "" {
		return nil, fmt.Errorf("%w: %v", shared.ErrBackendRejected, shared.ErrTokenExpired)
	}

	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  b.tokenURL + "?key=" + url.QueryEscape(b.apiKey),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
	expired := &oauth2.Token{RefreshToken: tok.RefreshToken, Expiry: time.Unix(1, 0)}

	fresh, err := conf.TokenSource(ctx, expired).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, fmt.Errorf("%w: refresh: %s", shared.ErrBackendRejected, re.ErrorCode)
		}
		return nil, fmt.Errorf("%w: refresh: %v", shared.ErrNetworkUnavailable, err)
	}

	if id, ok := fresh.Extra("id_token").(string); ok && id != "" {
		fresh.AccessToken = id
	}
	b.logger.Debug("refreshed identity token", "expiry", fresh.Expiry)
	return fresh, nil
}

// post sends a JSON body to an Identity Toolkit method and decodes the reply.
func (b *FirebaseBackend) post(ctx context.Context, method string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := b.identityURL + "/" + method + "?key=" + url.QueryEscape(b.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrNetworkUnavailable, method, redactKey(err, b.apiKey))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrNetworkUnavailable, method, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyFirebaseError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrMalformedResponse, method, err)
	}
	return nil
}

// classifyFirebaseError maps Identity Toolkit error codes onto the auth error sentinels.
func classifyFirebaseError(status int, body []byte) error {
	if status >= 500 {
		return fmt.Errorf("%w: identity backend status %d", shared.ErrNetworkUnavailable, status)
	}

	var fe firebaseErrorResponse
	_ = json.Unmarshal(body, &fe)
	code := fe.Error.Message
	if i := strings.IndexAny(code, " :"); i > 0 {
		code = code[:i]
	}

	switch code {
	case "INVALID_PASSWORD", "EMAIL_NOT_FOUND", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL", "MISSING_PASSWORD", "MISSING_EMAIL":
		return fmt.Errorf("%w: %s", shared.ErrInvalidCredentials, code)
	case "":
		return fmt.Errorf("%w: identity backend status %d", shared.ErrBackendRejected, status)
	default:
		return fmt.Errorf("%w: %s", shared.ErrBackendRejected, code)
	}
}

// documentClient returns an HTTP client that sends the session's ID token as a bearer token.
func (b *FirebaseBackend) documentClient(ctx context.Context, session models.Session) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: session.AccessToken(), TokenType: "Bearer"})
	return oauth2.NewClient(ctx, src)
}

func (b *FirebaseBackend) documentURL(userID string) (string, error) {
	if b.documentsURL == "" {
		return "", fmt.Errorf("%w: identity.documents_url (or %s) is required", shared.ErrMissingConfig, shared.EnvDocumentsURL)
	}
	return b.documentsURL + "/users/" + url.PathEscape(userID), nil
}

// CreateIfAbsent implements [DocumentStore] with a PATCH guarded by currentDocument.exists=false.
func (b *FirebaseBackend) CreateIfAbsent(ctx context.Context, session models.Session, doc models.UserDocument) error {
	if session.Guest() {
		return shared.ErrNotAuthenticated
	}
	docURL, err := b.documentURL(session.UserID)
	if err != nil {
		return err
	}

	fields, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	body, err := json.Marshal(firestoreDocument{Fields: fields})
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, docURL+"?currentDocument.exists=false", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.documentClient(ctx, session).Do(req)
	if err != nil {
		return fmt.Errorf("%w: documents: %v", shared.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		b.logger.Debug("provisioned user document", "user_id", session.UserID)
		return nil
	case resp.StatusCode == http.StatusConflict, resp.StatusCode == http.StatusBadRequest:
		// Firestore reports a failed exists=false precondition with one of these.
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: documents status %d", shared.ErrBackendRejected, resp.StatusCode)
	default:
		return fmt.Errorf("%w: documents status %d", shared.ErrNetworkUnavailable, resp.StatusCode)
	}
}

// Get implements [DocumentStore].
func (b *FirebaseBackend) Get(ctx context.Context, session models.Session) (models.UserDocument, error) {
	if session.Guest() {
		return models.UserDocument{}, shared.ErrNotAuthenticated
	}
	docURL, err := b.documentURL(session.UserID)
	if err != nil {
		return models.UserDocument{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return models.UserDocument{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := b.documentClient(ctx, session).Do(req)
	if err != nil {
		return models.UserDocument{}, fmt.Errorf("%w: documents: %v", shared.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return models.UserDocument{}, fmt.Errorf("%w: document for %s", shared.ErrKeyNotFound, session.UserID)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return models.UserDocument{}, fmt.Errorf("%w: documents status %d", shared.ErrBackendRejected, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return models.UserDocument{}, fmt.Errorf("%w: documents status %d", shared.ErrNetworkUnavailable, resp.StatusCode)
	}

	var fd firestoreDocument
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&fd); err != nil {
		return models.UserDocument{}, fmt.Errorf("%w: documents: %v", shared.ErrMalformedResponse, err)
	}
	return decodeDocument(fd.Fields)
}
