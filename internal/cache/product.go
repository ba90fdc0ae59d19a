package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/repository"
)

// ProductCache holds read-through copies of products. It is never consulted for stock
// decisions; reservations always read the ledger.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{client: client, ttl: ttl}
}

// Get reports ok=false on a miss. Redis failures are logged and treated as misses.
func (p *ProductCache) Get(c context.Context, productID int64) (repository.Product, bool) {
	c, span := otel.Tracer.Start(c, "ProductCache Get")
	defer span.End()

	key := ProductKey(productID)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductCache Get").
		Str(log.KeyCacheKey, key).
		Logger()

	cached, err := p.client.Get(c, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			err = fmt.Errorf("failed getting cached product with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
		}
		metrics.ProductCacheTotal.WithLabelValues("miss").Inc()
		return repository.Product{}, false
	}

	product := repository.Product{}
	if err = json.Unmarshal(cached, &product); err != nil {
		err = fmt.Errorf("failed unmarshaling cached product with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		metrics.ProductCacheTotal.WithLabelValues("miss").Inc()
		return repository.Product{}, false
	}
	metrics.ProductCacheTotal.WithLabelValues("hit").Inc()
	return product, true
}

func (p *ProductCache) Set(c context.Context, product repository.Product) {
	c, span := otel.Tracer.Start(c, "ProductCache Set")
	defer span.End()

	key := ProductKey(product.ID)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductCache Set").
		Str(log.KeyCacheKey, key).
		Logger()

	data, err := json.Marshal(product)
	if err != nil {
		err = fmt.Errorf("failed marshaling product with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	if err = p.client.Set(c, key, data, p.ttl).Err(); err != nil {
		err = fmt.Errorf("failed caching product with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
	}
}

// Invalidate drops the given products and the cached list.
func (p *ProductCache) Invalidate(c context.Context, productIDs ...int64) {
	c, span := otel.Tracer.Start(c, "ProductCache Invalidate")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductCache Invalidate").
		Ints64(log.KeyProductIDs, productIDs).
		Logger()

	keys := make([]string, 0, len(productIDs)+1)
	keys = append(keys, KeyProductsList)
	for _, id := range productIDs {
		keys = append(keys, ProductKey(id))
	}
	if err := p.client.Del(c, keys...).Err(); err != nil {
		err = fmt.Errorf("failed invalidating products with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Debug().Msg("invalidated products")
}

func (p *ProductCache) GetList(c context.Context) ([]repository.Product, bool) {
	cached, err := p.client.Get(c, KeyProductsList).Bytes()
	if err != nil {
		return nil, false
	}
	products := []repository.Product{}
	if err = json.Unmarshal(cached, &products); err != nil {
		return nil, false
	}
	return products, true
}

func (p *ProductCache) SetList(c context.Context, products []repository.Product) {
	data, err := json.Marshal(products)
	if err != nil {
		return
	}
	if err = p.client.Set(c, KeyProductsList, data, p.ttl).Err(); err != nil {
		zerolog.Ctx(c).Error().Err(err).Str(log.KeyTag, "ProductCache SetList").Msg("failed caching product list")
	}
}
