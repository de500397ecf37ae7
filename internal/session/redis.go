package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in a shared TTL'd keyspace so revocation works
// across horizontally scaled instances. The sliding window is implemented by
// resetting the key TTL on every successful Validate; redis itself does the
// sweeping.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(id string) string { return "session:" + id }

func userKey(userID uint) string { return fmt.Sprintf("user_sessions:%d", userID) }

func (s *RedisStore) Create(ctx context.Context, sess Session) error {
	if sess.LastActivity.IsZero() {
		sess.LastActivity = time.Now()
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(sess.ID), data, s.ttl)
	pipe.SAdd(ctx, userKey(sess.UserID), sess.ID)
	pipe.Expire(ctx, userKey(sess.UserID), s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Validate(ctx context.Context, id string) (Session, bool) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		return Session{}, false
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, false
	}
	sess.LastActivity = time.Now()
	if updated, err := json.Marshal(sess); err == nil {
		s.client.Set(ctx, sessionKey(id), updated, s.ttl)
	}
	return sess, true
}

func (s *RedisStore) Invalidate(ctx context.Context, id string) error {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err == nil {
		var sess Session
		if json.Unmarshal(data, &sess) == nil {
			s.client.SRem(ctx, userKey(sess.UserID), id)
		}
	}
	return s.client.Del(ctx, sessionKey(id)).Err()
}

func (s *RedisStore) InvalidateUser(ctx context.Context, userID uint) error {
	ids, err := s.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userKey(userID))
	return s.client.Del(ctx, keys...).Err()
}
