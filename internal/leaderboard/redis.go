// internal/leaderboard/redis.go
//
// Redis-backed Store for deployments running several server processes.
//   - Records are JSON documents RPUSHed onto a single list (insertion order).
//   - Each append PUBLISHes the record ID on a channel; every subscriber,
//     in any process, re-reads the list and pushes the new set.

package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	// RedisRecordsKey is the list holding every record.
	RedisRecordsKey = "leaderboard:records"
	// RedisAppendChannel carries the ID of each appended record.
	RedisAppendChannel = "leaderboard:appended"
)

type redisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore wraps a connected client. prefix namespaces the keys
// (empty for production; tests use a random one).
func NewRedisStore(rdb *redis.Client, prefix string) Store {
	return &redisStore{rdb: rdb, prefix: prefix}
}

func (s *redisStore) key() string     { return s.prefix + RedisRecordsKey }
func (s *redisStore) channel() string { return s.prefix + RedisAppendChannel }

func (s *redisStore) Append(ctx context.Context, r Record) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := s.rdb.RPush(ctx, s.key(), b).Err(); err != nil {
		return fmt.Errorf("rpush record: %w", err)
	}
	// The record is stored; subscribers catch up on the next publish.
	if err := s.rdb.Publish(ctx, s.channel(), r.ID).Err(); err != nil {
		log.Warn().Err(err).Str("record", r.ID).Msg("publish leaderboard append")
	}
	return nil
}

func (s *redisStore) Subscribe(ctx context.Context) (<-chan []Record, error) {
	ps := s.rdb.Subscribe(ctx, s.channel())
	// Wait for the subscription to be confirmed so no append is missed
	// between the initial read and the first message.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	initial, err := s.all(ctx)
	if err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan []Record, 1)
	out <- initial
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				all, err := s.all(ctx)
				if err != nil {
					log.Warn().Err(err).Msg("reload leaderboard from redis")
					continue
				}
				select {
				case <-out:
				default:
				}
				out <- all
			}
		}
	}()
	return out, nil
}

// all loads and decodes the full list.
func (s *redisStore) all(ctx context.Context) ([]Record, error) {
	raw, err := s.rdb.LRange(ctx, s.key(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange records: %w", err)
	}
	out := make([]Record, 0, len(raw))
	for _, item := range raw {
		var r Record
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			log.Warn().Err(err).Msg("skip undecodable leaderboard record")
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
