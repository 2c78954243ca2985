// Package redissessions stores sessions in redis, so they survive restarts and can be shared between instances.
package redissessions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/session"
)

const keyPrefix = "session:"

// expiryGrace keeps expired sessions around long enough for them to be reported as expired rather than unknown.
const expiryGrace = time.Minute

type store struct {
	client  redis.UniversalClient
	nowFunc func() time.Time // mockable
}

var _ session.Store = (*store)(nil)

func NewClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Session.RedisAddress,
		Password: conf.Session.RedisPassword,
		DB:       conf.Session.RedisDB,
	})
}

func NewStore(client redis.UniversalClient) session.Store {
	return &store{client: client, nowFunc: time.Now}
}

func key(id string) string {
	return keyPrefix + id
}

func (st *store) CreateSession(ctx context.Context, s session.Session) error {
	ttl := s.ExpiresAt.Sub(st.nowFunc())
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	val, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	if err = st.client.Set(ctx, key(s.ID), val, ttl+expiryGrace).Err(); err != nil {
		return errors.Wrap(err, "storing session")
	}
	return nil
}

func (st *store) GetSession(ctx context.Context, id string) (session.Session, error) {
	val, err := st.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, errors.Wrap(err, "getting session")
	}

	var s session.Session
	if err = json.Unmarshal(val, &s); err != nil {
		return session.Session{}, errors.Wrap(err, "decoding session")
	}
	if s.Expired(st.nowFunc()) {
		return session.Session{}, session.ErrExpired
	}
	return s, nil
}

func (st *store) DeleteSession(ctx context.Context, id string) error {
	if err := st.client.Del(ctx, key(id)).Err(); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return nil
}
