package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"paygate/internal/model"
)

const (
	processedKeyPrefix = "processed:"
	processedIDPrefix  = "processed:id:"
)

// processedMember encodes a ledger entry. The amount goes first: its decimal
// form never contains the separator, while the correlationId is an opaque
// string that may.
func processedMember(correlationID string, amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64) + "|" + correlationID
}

func memberAmount(member string) (float64, bool) {
	amountStr, _, ok := strings.Cut(member, "|")
	if !ok {
		return 0, false
	}
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}

// RedisStore keeps one sorted set per processor scored by the dispatch
// timestamp, with a per-id marker key guarding idempotency across processors.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Record(ctx context.Context, processor model.ProcessorType, correlationID string, amount float64, requestedAt time.Time) error {
	idKey := processedIDPrefix + correlationID

	txf := func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, idKey).Result()
		if err != nil {
			return err
		}
		if exists == 1 {
			// Already recorded by an earlier attempt or another instance.
			return nil
		}
		// Marker and ledger entry commit together or not at all.
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, idKey, "1", 0)
			pipe.ZAdd(ctx, processedKeyPrefix+string(processor), redis.Z{
				Score:  float64(requestedAt.UTC().UnixNano()),
				Member: processedMember(correlationID, amount),
			})
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = s.client.Watch(ctx, txf, idKey)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			// Another writer touched the marker, take another look.
			continue
		}
		return err
	}
	return err
}

func (s *RedisStore) SumInRange(ctx context.Context, processor model.ProcessorType, from, to time.Time) (model.ProcessorSummary, error) {
	members, err := s.client.ZRangeByScore(ctx, processedKeyPrefix+string(processor), &redis.ZRangeBy{
		Min: strconv.FormatInt(from.UTC().UnixNano(), 10),
		Max: strconv.FormatInt(to.UTC().UnixNano(), 10),
	}).Result()
	if err != nil {
		return model.ProcessorSummary{}, err
	}

	var summary model.ProcessorSummary
	for _, member := range members {
		amount, ok := memberAmount(member)
		if !ok {
			continue
		}
		summary.TotalRequests++
		summary.TotalAmount += amount
	}
	summary.TotalAmount = model.RoundAmount(summary.TotalAmount)
	return summary, nil
}

func (s *RedisStore) Purge(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, processedIDPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return s.client.Del(ctx,
		processedKeyPrefix+string(model.ProcessorDefault),
		processedKeyPrefix+string(model.ProcessorFallback),
	).Err()
}
