// Package memory provides an in-process implementation of the short link store.
// It is used when no external storage is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

// URLRepository keeps short links in a map guarded by a single RWMutex.
// Every mutation runs inside the write lock, so the existence check and the
// insert in Create form one atomic step.
type URLRepository struct {
	mu     sync.RWMutex
	links  map[string]*entity.ShortLink // short code -> link
	lastID int64
}

func NewURLRepository() *URLRepository {
	return &URLRepository{
		links: make(map[string]*entity.ShortLink),
	}
}

func (r *URLRepository) Create(_ context.Context, shortCode, originalURL string) (*entity.ShortLink, error) {
	const op = "adapter.repository.memory.URLRepository.Create"

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.links[shortCode]; ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
	}

	now := time.Now().UTC()
	r.lastID++

	link := &entity.ShortLink{
		ID:          r.lastID,
		ShortCode:   shortCode,
		OriginalURL: originalURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.links[shortCode] = link

	return copyOf(link), nil
}

func (r *URLRepository) FindByCode(_ context.Context, shortCode string) (*entity.ShortLink, error) {
	const op = "adapter.repository.memory.URLRepository.FindByCode"

	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.links[shortCode]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return copyOf(link), nil
}

func (r *URLRepository) ListAll(_ context.Context) ([]entity.ShortLink, error) {
	r.mu.RLock()
	links := make([]entity.ShortLink, 0, len(r.links))
	for _, link := range r.links {
		links = append(links, *link)
	}
	r.mu.RUnlock()

	sort.Slice(links, func(i, j int) bool {
		if links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].ID > links[j].ID
		}
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})

	return links, nil
}

func (r *URLRepository) UpdateURL(_ context.Context, shortCode, originalURL string) (*entity.ShortLink, error) {
	const op = "adapter.repository.memory.URLRepository.UpdateURL"

	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[shortCode]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	link.OriginalURL = originalURL
	link.UpdatedAt = time.Now().UTC()

	return copyOf(link), nil
}

// IncrementAccess leaves UpdatedAt untouched.
func (r *URLRepository) IncrementAccess(_ context.Context, shortCode string) (*entity.ShortLink, error) {
	const op = "adapter.repository.memory.URLRepository.IncrementAccess"

	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[shortCode]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	link.AccessCount++

	return copyOf(link), nil
}

func (r *URLRepository) Delete(_ context.Context, shortCode string) error {
	const op = "adapter.repository.memory.URLRepository.Delete"

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.links[shortCode]; !ok {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	delete(r.links, shortCode)

	return nil
}

func copyOf(link *entity.ShortLink) *entity.ShortLink {
	c := *link
	return &c
}
