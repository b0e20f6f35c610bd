// Package usecase holds the application logic of the URL shortener: short code
// allocation and the operations that read or mutate stored short links.
package usecase

import (
	"context"
	"fmt"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type urlRepository interface {
	Create(ctx context.Context, shortCode, originalURL string) (*entity.ShortLink, error)
	FindByCode(ctx context.Context, shortCode string) (*entity.ShortLink, error)
	ListAll(ctx context.Context) ([]entity.ShortLink, error)
	UpdateURL(ctx context.Context, shortCode, originalURL string) (*entity.ShortLink, error)
	IncrementAccess(ctx context.Context, shortCode string) (*entity.ShortLink, error)
	Delete(ctx context.Context, shortCode string) error
}

type allocator interface {
	Allocate(ctx context.Context, originalURL string) (*entity.ShortLink, error)
}

type URLUseCase struct {
	allocator allocator
	urlRepo   urlRepository
}

func New(allocator allocator, urlRepo urlRepository) *URLUseCase {
	return &URLUseCase{
		allocator: allocator,
		urlRepo:   urlRepo,
	}
}

func (uc *URLUseCase) ShortenURL(ctx context.Context, originalURL string) (*entity.ShortLink, error) {
	const op = "usecase.URLUseCase.ShortenURL"

	link, err := uc.allocator.Allocate(ctx, originalURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
	}

	return link, nil
}

func (uc *URLUseCase) ResolveShortCode(ctx context.Context, shortCode string) (*entity.ShortLink, error) {
	const op = "usecase.URLUseCase.ResolveShortCode"

	link, err := uc.urlRepo.IncrementAccess(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	return link, nil
}

func (uc *URLUseCase) ModifyURL(ctx context.Context, shortCode, originalURL string) (*entity.ShortLink, error) {
	const op = "usecase.URLUseCase.ModifyURL"

	if err := entity.ValidateURL(originalURL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	link, err := uc.urlRepo.UpdateURL(ctx, shortCode, originalURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to modify url: %w", op, err)
	}

	return link, nil
}

func (uc *URLUseCase) DeactivateURL(ctx context.Context, shortCode string) error {
	const op = "usecase.URLUseCase.DeactivateURL"

	if err := uc.urlRepo.Delete(ctx, shortCode); err != nil {
		return fmt.Errorf("%s: failed to deactivate url: %w", op, err)
	}

	return nil
}

func (uc *URLUseCase) GetURLStats(ctx context.Context, shortCode string) (*entity.ShortLink, error) {
	const op = "usecase.URLUseCase.GetURLStats"

	link, err := uc.urlRepo.FindByCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	return link, nil
}

func (uc *URLUseCase) ListURLs(ctx context.Context) ([]entity.ShortLink, error) {
	const op = "usecase.URLUseCase.ListURLs"

	links, err := uc.urlRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list urls: %w", op, err)
	}

	return links, nil
}
