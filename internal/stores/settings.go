package stores

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/repositories"
	"github.com/desertthunder/reelx/internal/shared"
)

const maxUsernameLength = 64

// Settings reads and writes user preferences kept in the key-value store.
type Settings struct {
	storage repositories.Storage
}

func NewSettings(storage repositories.Storage) *Settings {
	return &Settings{storage: storage}
}

// Username returns the display name, or "" when unset. Values that are not a
// JSON string are taken verbatim.
func (s *Settings) Username() string {
	data, err := s.storage.Get(models.UsernameKey)
	if err != nil {
		return ""
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return strings.TrimSpace(string(data))
	}
	return name
}

// SetUsername stores name after trimming it. An empty name clears the setting.
func (s *Settings) SetUsername(name string) error {
	name = strings.TrimSpace(name)
	if len([]rune(name)) > maxUsernameLength {
		return fmt.Errorf("%w: username longer than %d characters", shared.ErrInvalidArgument, maxUsernameLength)
	}

	if name == "" {
		if err := s.storage.Delete(models.UsernameKey); err != nil && !errors.Is(err, shared.ErrKeyNotFound) {
			return err
		}
		return nil
	}

	data, err := json.Marshal(name)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorageWrite, err)
	}
	return s.storage.Set(models.UsernameKey, data)
}

// Greeting is the feed heading: "{username}'s Movie Recommendations" when a
// username is set, otherwise "Movie Recommendation App".
func (s *Settings) Greeting() string {
	if name := s.Username(); name != "" {
		return name + "'s Movie Recommendations"
	}
	return "Movie Recommendation App"
}

// FeedPage returns the feed page remembered for this session, or 1.
func (s *Settings) FeedPage() int {
	data, err := s.storage.Get(models.FeedPageKey)
	if err != nil {
		return 1
	}
	page, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// SetFeedPage remembers page until sign-out clears the session keys.
func (s *Settings) SetFeedPage(page int) error {
	if page < 1 {
		return fmt.Errorf("%w: page %d", shared.ErrInvalidArgument, page)
	}
	return s.storage.Set(models.FeedPageKey, []byte(strconv.Itoa(page)))
}
