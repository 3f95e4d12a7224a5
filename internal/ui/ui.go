package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/services"
	"github.com/desertthunder/reelx/internal/shared"
	"github.com/desertthunder/reelx/internal/stores"
	"github.com/desertthunder/reelx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	FeedView ViewState = iota
	WatchlistView
	CollectionsView
	AuthView
)

// Deps are the stores and engines the TUI drives.
type Deps struct {
	Sessions    *stores.SessionStore
	Watchlist   *stores.WatchlistStore
	Collections *stores.CollectionsStore
	Settings    *stores.Settings
	Feed        *tasks.FeedEngine
	OpenURL     func(string) error
}

// Model represents the TUI application state.
type Model struct {
	ctx  context.Context
	deps Deps
	view ViewState
	prev ViewState

	width  int
	height int

	session     models.Session
	page        int
	feed        []models.Movie
	watchlist   models.MovieList
	collections models.Collections
	tab         int

	feedList       list.Model
	watchlistList  list.Model
	collectionList list.Model

	detail   *models.Movie
	form     authForm
	loading  bool
	progress tasks.ProgressUpdate
	progCh   chan tasks.ProgressUpdate
	status   string
	err      error

	sessionCh     <-chan models.Session
	watchlistCh   <-chan stores.WatchlistChange
	collectionsCh <-chan stores.CollectionsChange
	unsubscribe   []func()

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model and subscribes it to the stores. Call
// [Model.Close] when the program exits.
func NewModel(ctx context.Context, deps Deps) *Model {
	if deps.OpenURL == nil {
		deps.OpenURL = shared.OpenBrowser
	}

	m := &Model{
		ctx:            ctx,
		deps:           deps,
		view:           FeedView,
		page:           1,
		session:        deps.Sessions.Current(),
		watchlist:      models.MovieList{},
		collections:    models.DefaultCollections(),
		feedList:       newMovieList("Popular Movies"),
		watchlistList:  newMovieList("Watchlist"),
		collectionList: newMovieList(string(models.CollectionNames[0])),
		form:           newAuthForm(),
		help:           help.New(),
		keys:           newKeyMap(),
	}

	if deps.Settings != nil {
		m.page = deps.Settings.FeedPage()
	}

	var cancel func()
	m.sessionCh, cancel = deps.Sessions.Subscribe()
	m.unsubscribe = append(m.unsubscribe, cancel)
	m.watchlistCh, cancel = deps.Watchlist.Subscribe()
	m.unsubscribe = append(m.unsubscribe, cancel)
	m.collectionsCh, cancel = deps.Collections.Subscribe()
	m.unsubscribe = append(m.unsubscribe, cancel)
	return m
}

// Close releases the store subscriptions.
func (m *Model) Close() {
	for _, cancel := range m.unsubscribe {
		cancel()
	}
	m.unsubscribe = nil
}

// Init loads the first feed page and the session-scoped lists.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadFeed(m.page),
		m.reloadLists(m.session),
		waitFor(m.sessionCh, sessionChangedMsg),
		waitFor(m.watchlistCh, watchlistChangedMsg),
		waitFor(m.collectionsCh, collectionsChangedMsg),
	)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for _, l := range []*list.Model{&m.feedList, &m.watchlistList, &m.collectionList} {
			l.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgFeedLoaded:
		data := msg.data.(feedLoaded)
		m.loading = false
		m.progCh = nil
		if data.result != nil {
			m.feed = data.result.Movies
			m.page = data.result.Page
		}
		m.err = data.err
		if data.err == nil && m.deps.Settings != nil && m.deps.Settings.FeedPage() != m.page {
			if err := m.deps.Settings.SetFeedPage(m.page); err != nil {
				m.err = err
			}
		}
		m.feedList.Title = fmt.Sprintf("Popular Movies • page %d", m.page)
		return m, m.feedList.SetItems(movieItems(m.feed, m.watchlist))

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgSessionChanged:
		s := msg.data.(models.Session)
		changed := s.UserID != m.session.UserID
		m.session = s
		cmds := []tea.Cmd{waitFor(m.sessionCh, sessionChangedMsg)}
		if changed {
			cmds = append(cmds, m.reloadLists(s))
		}
		return m, tea.Batch(cmds...)

	case MsgWatchlistChanged:
		c := msg.data.(stores.WatchlistChange)
		cmds := []tea.Cmd{waitFor(m.watchlistCh, watchlistChangedMsg)}
		if c.Scope == models.ScopeFor(m.session) {
			m.watchlist = c.Movies
			cmds = append(cmds,
				m.watchlistList.SetItems(movieItems(m.watchlist, m.watchlist)),
				m.feedList.SetItems(movieItems(m.feed, m.watchlist)),
			)
		}
		return m, tea.Batch(cmds...)

	case MsgCollectionsChanged:
		c := msg.data.(stores.CollectionsChange)
		cmds := []tea.Cmd{waitFor(m.collectionsCh, collectionsChangedMsg)}
		if c.UserID == m.session.UserID {
			m.collections = c.Collections
			cmds = append(cmds, m.refreshCollectionList())
		}
		return m, tea.Batch(cmds...)

	case MsgAuthResult:
		data := msg.data.(authResult)
		m.form.pending = false
		if data.err != nil {
			m.form.err = data.err
			return m, nil
		}
		m.form.reset()
		m.status = fmt.Sprintf("Signed in as %s", data.session.Email)
		m.view = m.prev
		return m, nil

	case MsgActionDone:
		data := msg.data.(actionDone)
		m.status = data.status
		m.err = data.err
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.view == AuthView {
		return m.handleAuthKeys(msg)
	}
	if l := m.activeList(); l != nil && l.FilterState() == list.Filtering {
		return m.updateLists(msg)
	}

	if m.detail != nil {
		switch {
		case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.enter):
			m.detail = nil
			return m, nil
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		}
		return m, m.movieAction(msg, *m.detail)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.feed):
		m.view = FeedView
		return m, nil
	case key.Matches(msg, m.keys.watchlist):
		m.view = WatchlistView
		return m, nil
	case key.Matches(msg, m.keys.collections):
		m.view = CollectionsView
		return m, nil
	case key.Matches(msg, m.keys.account):
		if m.session.Guest() {
			m.prev = m.view
			m.view = AuthView
			return m, m.form.email.Focus()
		}
		return m, m.signOut()
	case key.Matches(msg, m.keys.enter):
		if mv, ok := m.selected(); ok {
			m.detail = &mv
		}
		return m, nil
	}

	switch m.view {
	case FeedView:
		switch {
		case key.Matches(msg, m.keys.nextPage) && !m.loading:
			return m, m.loadFeed(m.page + 1)
		case key.Matches(msg, m.keys.prevPage) && !m.loading && m.page > 1:
			return m, m.loadFeed(m.page - 1)
		}
	case CollectionsView:
		switch {
		case key.Matches(msg, m.keys.nextTab):
			m.tab = (m.tab + 1) % len(models.CollectionNames)
			return m, m.refreshCollectionList()
		case key.Matches(msg, m.keys.prevTab):
			m.tab = (m.tab + len(models.CollectionNames) - 1) % len(models.CollectionNames)
			return m, m.refreshCollectionList()
		}
	}

	if mv, ok := m.selected(); ok {
		if cmd := m.movieAction(msg, mv); cmd != nil {
			return m, cmd
		}
	}
	return m.updateLists(msg)
}

// movieAction maps a key to a store operation on mv; nil means the key is not an action.
func (m *Model) movieAction(msg tea.KeyMsg, mv models.Movie) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.toggle):
		return m.toggleWatchlist(mv)
	case key.Matches(msg, m.keys.favorite):
		return m.addTo(models.Favorites, mv)
	case key.Matches(msg, m.keys.toWatch):
		return m.addTo(models.ToWatch, mv)
	case key.Matches(msg, m.keys.watched):
		return m.addTo(models.Watched, mv)
	case key.Matches(msg, m.keys.remove):
		return m.remove(mv)
	case key.Matches(msg, m.keys.trailer):
		return m.openTrailer(mv)
	}
	return nil
}

func (m *Model) handleAuthKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form.pending {
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.form.reset()
		m.view = m.prev
		return m, nil
	case "ctrl+t":
		m.form.signUp = !m.form.signUp
		m.form.err = nil
		return m, nil
	case "shift+tab", "up":
		m.form.prev()
		return m, nil
	case "tab", "down", "enter":
		if !m.form.next() || msg.String() != "enter" {
			return m, nil
		}
		return m, m.submitAuth()
	}

	var cmd tea.Cmd
	m.form, cmd = m.form.update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case FeedView:
		m.feedList, cmd = m.feedList.Update(msg)
	case WatchlistView:
		m.watchlistList, cmd = m.watchlistList.Update(msg)
	case CollectionsView:
		m.collectionList, cmd = m.collectionList.Update(msg)
	}
	return m, cmd
}

func (m *Model) activeList() *list.Model {
	switch m.view {
	case FeedView:
		return &m.feedList
	case WatchlistView:
		return &m.watchlistList
	case CollectionsView:
		return &m.collectionList
	}
	return nil
}

func (m *Model) selected() (models.Movie, bool) {
	l := m.activeList()
	if l == nil {
		return models.Movie{}, false
	}
	item, ok := l.SelectedItem().(movieItem)
	if !ok {
		return models.Movie{}, false
	}
	return item.movie, true
}

func (m *Model) currentCollection() models.CollectionName {
	return models.CollectionNames[m.tab]
}

// refreshCollectionList shows the current tab. The returned cmd re-applies an active filter.
func (m *Model) refreshCollectionList() tea.Cmd {
	name := m.currentCollection()
	m.collectionList.Title = string(name)
	return m.collectionList.SetItems(movieItems(m.collections[name], m.watchlist))
}

// waitFor turns the next value on ch into a message. A closed channel ends the loop.
func waitFor[T any](ch <-chan T, wrap func(T) Msg) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return nil
		}
		return wrap(v)
	}
}

func (m *Model) loadFeed(page int) tea.Cmd {
	m.loading = true
	m.err = nil
	m.progCh = make(chan tasks.ProgressUpdate, 50)
	progCh := m.progCh

	load := func() tea.Msg {
		defer close(progCh)
		result, err := m.deps.Feed.Load(m.ctx, page, progCh)
		return feedLoadedMsg(result, err)
	}
	return tea.Batch(load, m.waitForProgress())
}

func (m *Model) waitForProgress() tea.Cmd {
	ch := m.progCh
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return nil
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) reloadLists(s models.Session) tea.Cmd {
	watchlist := m.deps.Watchlist
	collections := m.deps.Collections
	return func() tea.Msg {
		watchlist.Load(models.ScopeFor(s))
		collections.Load(s)
		return nil
	}
}

func (m *Model) toggleWatchlist(mv models.Movie) tea.Cmd {
	scope := models.ScopeFor(m.session)
	return func() tea.Msg {
		list, err := m.deps.Watchlist.Toggle(scope, mv)
		if err != nil {
			return actionDoneMsg("", err)
		}
		if list.Contains(mv.ID) {
			return actionDoneMsg(fmt.Sprintf("Added %s to watchlist", mv.Title), nil)
		}
		return actionDoneMsg(fmt.Sprintf("Removed %s from watchlist", mv.Title), nil)
	}
}

func (m *Model) addTo(name models.CollectionName, mv models.Movie) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		if session.Guest() {
			return actionDoneMsg("Sign in to use collections", nil)
		}
		if _, err := m.deps.Collections.AddTo(session, name, mv); err != nil {
			return actionDoneMsg("", err)
		}
		return actionDoneMsg(fmt.Sprintf("Added %s to %s", mv.Title, name), nil)
	}
}

func (m *Model) remove(mv models.Movie) tea.Cmd {
	session := m.session
	switch m.view {
	case WatchlistView:
		return func() tea.Msg {
			if _, err := m.deps.Watchlist.Remove(models.ScopeFor(session), mv.ID); err != nil {
				return actionDoneMsg("", err)
			}
			return actionDoneMsg(fmt.Sprintf("Removed %s from watchlist", mv.Title), nil)
		}
	case CollectionsView:
		name := m.currentCollection()
		return func() tea.Msg {
			if _, err := m.deps.Collections.RemoveFrom(session, name, mv.ID); err != nil {
				return actionDoneMsg("", err)
			}
			return actionDoneMsg(fmt.Sprintf("Removed %s from %s", mv.Title, name), nil)
		}
	}
	return nil
}

func (m *Model) openTrailer(mv models.Movie) tea.Cmd {
	return func() tea.Msg {
		if !mv.HasTrailer() {
			return actionDoneMsg("No trailer available", nil)
		}
		if err := m.deps.OpenURL(services.TrailerURL(mv.TrailerKey)); err != nil {
			return actionDoneMsg("", err)
		}
		return actionDoneMsg("Opened trailer in browser", nil)
	}
}

func (m *Model) submitAuth() tea.Cmd {
	email, password := m.form.values()
	signUp := m.form.signUp
	m.form.pending = true
	m.form.err = nil

	return func() tea.Msg {
		var (
			s   models.Session
			err error
		)
		if signUp {
			s, err = m.deps.Sessions.SignUp(m.ctx, email, password)
		} else {
			s, err = m.deps.Sessions.SignIn(m.ctx, email, password)
		}
		return authResultMsg(s, err)
	}
}

func (m *Model) signOut() tea.Cmd {
	return func() tea.Msg {
		if err := m.deps.Sessions.SignOut(m.ctx); err != nil {
			return actionDoneMsg("Signed out locally", err)
		}
		return actionDoneMsg("Signed out", nil)
	}
}

// authErrorText renders auth failures for the form.
func authErrorText(err error) string {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, shared.ErrNetworkUnavailable):
		return "Network unavailable. Try again."
	case errors.Is(err, shared.ErrBackendRejected):
		return "Request rejected. The email may already be registered or the password is too weak."
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.view == AuthView {
		return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), m.form.view(), "", m.help.ShortHelpView([]key.Binding{m.keys.switchMode, m.keys.back}))
	}

	body := m.renderBody()
	if m.detail != nil {
		body = m.renderDetail(*m.detail)
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter())
}

func (m *Model) renderHeader() string {
	greeting := "Movie Recommendation App"
	if m.deps.Settings != nil {
		greeting = m.deps.Settings.Greeting()
	}

	tabs := make([]string, 0, 3)
	for i, name := range []string{"Feed", "Watchlist", "Collections"} {
		label := fmt.Sprintf("%d %s", i+1, name)
		if ViewState(i) == m.view {
			tabs = append(tabs, styles.activeTab.Render(label))
		} else {
			tabs = append(tabs, styles.tab.Render(label))
		}
	}

	who := styles.help.Render("guest")
	if !m.session.Guest() {
		who = styles.ok.Render(m.session.Email)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		styles.title.Render(greeting),
		lipgloss.JoinHorizontal(lipgloss.Top, append(tabs, "  ", who)...),
	)
}

func (m *Model) renderBody() string {
	switch m.view {
	case FeedView:
		if m.loading {
			msg := "Loading..."
			if m.progress.Message != "" {
				msg = m.progress.Message
			}
			return styles.help.Render(msg)
		}
		if len(m.feed) == 0 {
			return styles.warn.Render("No movies to show. Press n for the next page.")
		}
		return m.feedList.View()
	case WatchlistView:
		if len(m.watchlist) == 0 {
			return styles.help.Render("Your watchlist is empty. Press w on a movie to add it.")
		}
		return m.watchlistList.View()
	case CollectionsView:
		return lipgloss.JoinVertical(lipgloss.Left, m.renderCollectionTabs(), m.renderCollection())
	}
	return ""
}

func (m *Model) renderCollectionTabs() string {
	tabs := make([]string, len(models.CollectionNames))
	for i, name := range models.CollectionNames {
		label := fmt.Sprintf("%s (%d)", name, len(m.collections[name]))
		if i == m.tab {
			tabs[i] = styles.activeTab.Render(label)
		} else {
			tabs[i] = styles.tab.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) renderCollection() string {
	if m.session.Guest() {
		return styles.warn.Render("Sign in (press a) to keep collections.")
	}
	if len(m.collections[m.currentCollection()]) == 0 {
		return styles.help.Render("Nothing here yet. Open a movie and press F, T or W.")
	}
	return m.collectionList.View()
}

func (m *Model) renderDetail(mv models.Movie) string {
	var b strings.Builder
	title := mv.Title
	if y := mv.Year(); y != "" {
		title = fmt.Sprintf("%s (%s)", title, y)
	}
	b.WriteString(styles.title.Render(title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Rating: %s\n", shared.FormatRating(mv.VoteAverage))
	if mv.ReleaseDate != "" {
		fmt.Fprintf(&b, "Released: %s\n", mv.ReleaseDate)
	}
	if mv.Overview != "" {
		fmt.Fprintf(&b, "\n%s\n", mv.Overview)
	}

	b.WriteString("\n")
	if mv.HasTrailer() {
		fmt.Fprintf(&b, "Trailer: %s\n", services.TrailerURL(mv.TrailerKey))
	} else {
		b.WriteString(styles.help.Render("No trailer available") + "\n")
	}
	fmt.Fprintf(&b, "TMDB: %s\n", services.MovieURL(mv.ID))

	if m.watchlist.Contains(mv.ID) {
		b.WriteString(styles.ok.Render("★ In watchlist") + "\n")
	}
	if names := m.collections.Memberships(mv.ID); len(names) > 0 {
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = string(n)
		}
		fmt.Fprintf(&b, "Collections: %s\n", strings.Join(parts, ", "))
	}

	keys := []key.Binding{m.keys.toggle, m.keys.trailer, m.keys.back}
	if !m.session.Guest() {
		keys = []key.Binding{m.keys.toggle, m.keys.favorite, m.keys.toWatch, m.keys.watched, m.keys.trailer, m.keys.back}
	}
	b.WriteString("\n" + m.help.ShortHelpView(keys))

	box := styles.overlay.Render(b.String())
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height-6, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) renderFooter() string {
	var line string
	switch {
	case m.err != nil:
		line = styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	case m.status != "":
		line = styles.ok.Render(m.status)
	}

	keys := m.keys.ShortHelp()
	switch m.view {
	case FeedView:
		keys = append([]key.Binding{m.keys.enter, m.keys.toggle, m.keys.nextPage, m.keys.prevPage}, keys...)
	case WatchlistView:
		keys = append([]key.Binding{m.keys.enter, m.keys.remove}, keys...)
	case CollectionsView:
		keys = append([]key.Binding{m.keys.enter, m.keys.prevTab, m.keys.nextTab, m.keys.remove}, keys...)
	}
	return lipgloss.JoinVertical(lipgloss.Left, line, m.help.ShortHelpView(keys))
}
