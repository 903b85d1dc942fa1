package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"portfoliotracker/internal/models"
)

// Cache TTLs. Current quotes go stale quickly; daily closes are settled
// data and can live longer.
const (
	currentTTL = 60 * time.Second
	closesTTL  = 15 * time.Minute
)

// CachedProvider wraps a Provider with a Redis cache. The cache is
// best-effort: any Redis error falls through to the underlying provider.
type CachedProvider struct {
	next Provider
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewCachedProvider creates a caching decorator around next.
func NewCachedProvider(next Provider, rdb *redis.Client, log zerolog.Logger) *CachedProvider {
	return &CachedProvider{next: next, rdb: rdb, log: log}
}

// Current returns the latest quote for ticker, served from cache when fresh.
func (c *CachedProvider) Current(ctx context.Context, ticker string) (*models.Quote, error) {
	key := "quote:current:" + ticker

	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var q models.Quote
		if err := json.Unmarshal(data, &q); err == nil {
			return &q, nil
		}
	} else if err != redis.Nil {
		c.log.Debug().Err(err).Str("ticker", ticker).Msg("quote cache read failed")
	}

	q, err := c.next.Current(ctx, ticker)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(q); err == nil {
		if err := c.rdb.Set(ctx, key, data, currentTTL).Err(); err != nil {
			c.log.Debug().Err(err).Str("ticker", ticker).Msg("quote cache write failed")
		}
	}
	return q, nil
}

// DailyCloses returns daily closing prices, served from cache when present.
func (c *CachedProvider) DailyCloses(ctx context.Context, ticker string, start, end time.Time) (map[string]decimal.Decimal, error) {
	key := fmt.Sprintf("quote:closes:%s:%s:%s",
		ticker, start.Format(DateFormat), end.Format(DateFormat))

	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var closes map[string]decimal.Decimal
		if err := json.Unmarshal(data, &closes); err == nil {
			return closes, nil
		}
	} else if err != redis.Nil {
		c.log.Debug().Err(err).Str("ticker", ticker).Msg("closes cache read failed")
	}

	closes, err := c.next.DailyCloses(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(closes); err == nil {
		if err := c.rdb.Set(ctx, key, data, closesTTL).Err(); err != nil {
			c.log.Debug().Err(err).Str("ticker", ticker).Msg("closes cache write failed")
		}
	}
	return closes, nil
}
