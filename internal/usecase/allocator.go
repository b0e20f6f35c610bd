package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/vadimbarashkov/shortlink/internal/entity"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	defaultCodeLength = 6
	defaultMaxRetries = 5

	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// CodeGenerator returns a random short code of the given length.
type CodeGenerator func(length int) (string, error)

// NanoIDGenerator draws alphanumeric codes from a cryptographically secure source.
func NanoIDGenerator(length int) (string, error) {
	return gonanoid.Generate(codeAlphabet, length)
}

type shortLinkCreator interface {
	Create(ctx context.Context, shortCode, originalURL string) (*entity.ShortLink, error)
}

type AllocatorOption func(*Allocator)

func WithCodeLength(n int) AllocatorOption {
	return func(a *Allocator) {
		a.codeLength = n
	}
}

func WithMaxRetries(n int) AllocatorOption {
	return func(a *Allocator) {
		a.maxRetries = n
	}
}

func WithCodeGenerator(gen CodeGenerator) AllocatorOption {
	return func(a *Allocator) {
		a.generate = gen
	}
}

// Allocator commits new short links under freshly generated codes.
//
// Uniqueness is decided by the store inside Create, so two allocators racing
// on the same code cannot both succeed: the loser sees entity.ErrShortCodeExists
// and tries another code.
type Allocator struct {
	repo       shortLinkCreator
	generate   CodeGenerator
	codeLength int
	maxRetries int
}

func NewAllocator(repo shortLinkCreator, opts ...AllocatorOption) *Allocator {
	a := &Allocator{
		repo:       repo,
		generate:   NanoIDGenerator,
		codeLength: defaultCodeLength,
		maxRetries: defaultMaxRetries,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Allocate validates originalURL and stores it under a new short code.
func (a *Allocator) Allocate(ctx context.Context, originalURL string) (*entity.ShortLink, error) {
	const op = "usecase.Allocator.Allocate"

	if err := entity.ValidateURL(originalURL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := 0; i < a.maxRetries; i++ {
		shortCode, err := a.generate(a.codeLength)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		link, err := a.repo.Create(ctx, shortCode, originalURL)
		if err != nil {
			if errors.Is(err, entity.ErrShortCodeExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to create short link: %w", op, err)
		}

		return link, nil
	}

	return nil, fmt.Errorf("%s: %w", op, entity.ErrAllocationExhausted)
}
