// Package redis implements the short link store on top of Redis hashes.
//
// Each link lives in its own hash keyed by short code. Every mutation runs as
// a Lua script, so the existence check and the write happen in one atomic step
// on the server.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const (
	defaultPrefix = "shortlink:"
	idKeySuffix   = "meta:id"
	indexSuffix   = "meta:index"
)

var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return false
end
local id = redis.call('INCR', KEYS[2])
redis.call('HSET', KEYS[1],
	'id', id,
	'short_code', ARGV[1],
	'original_url', ARGV[2],
	'access_count', 0,
	'created_at', ARGV[3],
	'updated_at', ARGV[3])
redis.call('ZADD', KEYS[3], id, ARGV[1])
return redis.call('HGETALL', KEYS[1])
`)

var updateURLScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
redis.call('HSET', KEYS[1], 'original_url', ARGV[1], 'updated_at', ARGV[2])
return redis.call('HGETALL', KEYS[1])
`)

var incrementAccessScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
redis.call('HINCRBY', KEYS[1], 'access_count', 1)
return redis.call('HGETALL', KEYS[1])
`)

var deleteScript = redis.NewScript(`
if redis.call('DEL', KEYS[1]) == 0 then
	return 0
end
redis.call('ZREM', KEYS[2], ARGV[1])
return 1
`)

// Link hashes are addressed by prefix..code inside the script, so this only
// works against a single Redis node.
var listScript = redis.NewScript(`
local codes = redis.call('ZREVRANGE', KEYS[1], 0, -1)
local out = {}
for _, code in ipairs(codes) do
	local h = redis.call('HGETALL', ARGV[1] .. code)
	if #h > 0 then
		table.insert(out, h)
	end
end
return out
`)

type URLRepository struct {
	client redis.UniversalClient
	prefix string
}

func NewURLRepository(client redis.UniversalClient) *URLRepository {
	return &URLRepository{
		client: client,
		prefix: defaultPrefix,
	}
}

func (r *URLRepository) linkKey(shortCode string) string {
	return r.prefix + shortCode
}

func (r *URLRepository) Create(ctx context.Context, shortCode, originalURL string) (*entity.ShortLink, error) {
	const op = "adapter.repository.redis.URLRepository.Create"

	keys := []string{r.linkKey(shortCode), r.prefix + idKeySuffix, r.prefix + indexSuffix}
	now := strconv.FormatInt(time.Now().UTC().UnixNano(), 10)

	res, err := createScript.Run(ctx, r.client, keys, shortCode, originalURL, now).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to create short link: %w", op, err)
	}

	link, err := parseLink(res)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return link, nil
}

func (r *URLRepository) FindByCode(ctx context.Context, shortCode string) (*entity.ShortLink, error) {
	const op = "adapter.repository.redis.URLRepository.FindByCode"

	fields, err := r.client.HGetAll(ctx, r.linkKey(shortCode)).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get short link: %w", op, err)
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	link, err := linkFromFields(fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return link, nil
}

func (r *URLRepository) ListAll(ctx context.Context) ([]entity.ShortLink, error) {
	const op = "adapter.repository.redis.URLRepository.ListAll"

	res, err := listScript.Run(ctx, r.client, []string{r.prefix + indexSuffix}, r.prefix).Slice()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list short links: %w", op, err)
	}

	links := make([]entity.ShortLink, 0, len(res))
	for _, item := range res {
		link, err := parseLink(item)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		links = append(links, *link)
	}

	sort.SliceStable(links, func(i, j int) bool {
		if links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].ID > links[j].ID
		}
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})

	return links, nil
}

func (r *URLRepository) UpdateURL(ctx context.Context, shortCode, originalURL string) (*entity.ShortLink, error) {
	const op = "adapter.repository.redis.URLRepository.UpdateURL"

	now := strconv.FormatInt(time.Now().UTC().UnixNano(), 10)

	res, err := updateURLScript.Run(ctx, r.client, []string{r.linkKey(shortCode)}, originalURL, now).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update short link: %w", op, err)
	}

	link, err := parseLink(res)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return link, nil
}

// IncrementAccess uses HINCRBY and leaves updated_at as is.
func (r *URLRepository) IncrementAccess(ctx context.Context, shortCode string) (*entity.ShortLink, error) {
	const op = "adapter.repository.redis.URLRepository.IncrementAccess"

	res, err := incrementAccessScript.Run(ctx, r.client, []string{r.linkKey(shortCode)}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to increment access count: %w", op, err)
	}

	link, err := parseLink(res)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return link, nil
}

func (r *URLRepository) Delete(ctx context.Context, shortCode string) error {
	const op = "adapter.repository.redis.URLRepository.Delete"

	keys := []string{r.linkKey(shortCode), r.prefix + indexSuffix}

	deleted, err := deleteScript.Run(ctx, r.client, keys, shortCode).Int64()
	if err != nil {
		return fmt.Errorf("%s: failed to delete short link: %w", op, err)
	}

	if deleted != 1 {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return nil
}

// parseLink converts the flat field/value array returned by HGETALL inside a script.
func parseLink(v any) (*entity.ShortLink, error) {
	items, ok := v.([]any)
	if !ok || len(items)%2 != 0 {
		return nil, fmt.Errorf("unexpected script reply %T", v)
	}

	fields := make(map[string]string, len(items)/2)
	for i := 0; i < len(items); i += 2 {
		key, ok := items[i].(string)
		if !ok {
			return nil, fmt.Errorf("unexpected field name %T", items[i])
		}
		val, ok := items[i+1].(string)
		if !ok {
			return nil, fmt.Errorf("unexpected value %T for field %s", items[i+1], key)
		}
		fields[key] = val
	}

	return linkFromFields(fields)
}

func linkFromFields(fields map[string]string) (*entity.ShortLink, error) {
	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid id: %w", err)
	}

	accessCount, err := strconv.ParseInt(fields["access_count"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid access_count: %w", err)
	}

	createdAt, err := parseUnixNano(fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}

	updatedAt, err := parseUnixNano(fields["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("invalid updated_at: %w", err)
	}

	return &entity.ShortLink{
		ID:          id,
		ShortCode:   fields["short_code"],
		OriginalURL: fields["original_url"],
		Stats: entity.Stats{
			AccessCount: accessCount,
		},
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func parseUnixNano(s string) (time.Time, error) {
	nanos, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}

	return time.Unix(0, nanos).UTC(), nil
}
