package matcher

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"keytrace-go/internal/models"
	"keytrace-go/internal/repository"
)

const allTemplatesKey = "templates:all"

// CachedStore serves templates from the database through a short-lived
// cache, so a burst of identification requests does not reload every
// template per request. Saves invalidate the cache immediately.
type CachedStore struct {
	cache *gocache.Cache
}

// NewCachedStore creates a store with the given TTL (seconds).
func NewCachedStore(ttlSeconds int) *CachedStore {
	if ttlSeconds <= 0 {
		ttlSeconds = 60
	}
	ttl := time.Duration(ttlSeconds) * time.Second
	return &CachedStore{
		cache: gocache.New(ttl, 2*ttl),
	}
}

// All returns every enrolled template.
func (s *CachedStore) All() ([]models.EnrollmentTemplate, error) {
	if cached, ok := s.cache.Get(allTemplatesKey); ok {
		return cached.([]models.EnrollmentTemplate), nil
	}

	templates, err := repository.GetAllTemplates()
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(allTemplatesKey, templates)
	return templates, nil
}

// Get returns one user's template, or nil when the user is not enrolled.
func (s *CachedStore) Get(userID string) (*models.EnrollmentTemplate, error) {
	if cached, ok := s.cache.Get("templates:" + userID); ok {
		tpl := cached.(models.EnrollmentTemplate)
		return &tpl, nil
	}

	tpl, err := repository.GetTemplateByUserID(userID)
	if err != nil || tpl == nil {
		return tpl, err
	}
	s.cache.SetDefault("templates:"+userID, *tpl)
	return tpl, nil
}

// Save persists a template, replacing any existing one for the user, and
// drops the cached entries.
func (s *CachedStore) Save(tpl *models.EnrollmentTemplate) error {
	if err := repository.SaveTemplate(tpl); err != nil {
		return err
	}
	s.cache.Delete(allTemplatesKey)
	s.cache.Delete("templates:" + tpl.UserID)
	return nil
}

// Exists reports whether the user already has a template.
func (s *CachedStore) Exists(userID string) (bool, error) {
	tpl, err := s.Get(userID)
	if err != nil {
		return false, err
	}
	return tpl != nil, nil
}

// Users lists the enrolled user ids.
func (s *CachedStore) Users() ([]string, error) {
	templates, err := s.All()
	if err != nil {
		return nil, err
	}
	users := make([]string, 0, len(templates))
	for _, tpl := range templates {
		users = append(users, tpl.UserID)
	}
	return users, nil
}
