package pagecache

import (
	"bytes"
	"context"
	"encoding/gob"
	"time"

	"riftlens-backend/lib/telemetry"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("riftlens.lib.pagecache")

// ErrNotFound is returned when a page is absent or expired.
var ErrNotFound = badger.ErrKeyNotFound

// Page is one fetched document with its freshness window.
type Page struct {
	Contents  []byte
	FetchedAt int64
	ExpiresAt int64
}

// Cache stores scraped pages so repeated profile lookups within the ttl
// window skip the network. A nil *Cache disables caching entirely.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens (or creates) a badger-backed cache at dir.
func Open(dir string, ttl time.Duration) (*Cache, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, err
	}
	return New(db, ttl), nil
}

// New wraps an existing badger handle. Useful for in-memory tests.
func New(db *badger.DB, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute * 5
	}
	return &Cache{db: db, ttl: ttl}
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}

func key(source, url string) []byte {
	return []byte(source + ":" + url)
}

func (c *Cache) Get(ctx context.Context, source, url string) (Page, error) {
	if c == nil {
		return Page{}, ErrNotFound
	}

	ctx, span := tracer.Start(ctx, "get")
	defer span.End()
	span.SetAttributes(
		attribute.String("source", source),
		attribute.String("url", url),
	)

	k := key(source, url)

	tx := c.db.NewTransaction(false)
	defer tx.Discard()
	item, err := tx.Get(k)
	if err == badger.ErrKeyNotFound {
		return Page{}, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read item from badger")
		return Page{}, err
	}
	serialized, err := item.ValueCopy(nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to copy cached item")
		return Page{}, err
	}

	var cached Page
	err = gob.NewDecoder(bytes.NewBuffer(serialized)).Decode(&cached)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to deserialize cached item")
		return Page{}, err
	}

	if time.Now().Unix() >= cached.ExpiresAt {
		span.AddEvent("delete expired cache key")

		tx := c.db.NewTransaction(true)
		defer tx.Commit()
		err = tx.Delete(k)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to delete expired key")
		}
		return Page{}, ErrNotFound
	}

	span.SetAttributes(attribute.Int("content_length", len(cached.Contents)))
	return cached, nil
}

func (c *Cache) Set(ctx context.Context, source, url string, contents []byte) error {
	if c == nil {
		return nil
	}

	ctx, span := tracer.Start(ctx, "set")
	defer span.End()
	span.SetAttributes(
		attribute.String("source", source),
		attribute.String("url", url),
	)

	now := time.Now()
	page := Page{
		Contents:  contents,
		FetchedAt: now.Unix(),
		ExpiresAt: now.Add(c.ttl).Unix(),
	}

	serialized := bytes.NewBuffer(nil)
	err := gob.NewEncoder(serialized).Encode(page)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize page")
		return err
	}

	tx := c.db.NewTransaction(true)
	defer tx.Commit()
	err = tx.Set(key(source, url), serialized.Bytes())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set badger item")
		return err
	}
	return nil
}
