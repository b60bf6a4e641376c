package utils

import (
	"context"
	"time"

	"github.com/mojocn/base64Captcha"
	"github.com/redis/go-redis/v9"
)

const captchaKeyPrefix = "community:captcha:"

// redisCaptchaStore implements base64Captcha.Store on Redis so any instance can verify an answer.
type redisCaptchaStore struct {
	ttl time.Duration
}

// NewRedisCaptchaStore returns a Redis backed captcha store. ttl <= 0 selects ten minutes.
func NewRedisCaptchaStore(ttl time.Duration) base64Captcha.Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisCaptchaStore{ttl: ttl}
}

func (s *redisCaptchaStore) Set(id string, value string) error {
	rc := GetRedis()
	if rc == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return rc.Set(ctx, captchaKeyPrefix+id, value, s.ttl).Err()
}

// Get returns the stored answer; clear deletes it atomically with GETDEL.
func (s *redisCaptchaStore) Get(id string, clear bool) string {
	rc := GetRedis()
	if rc == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var cmd *redis.StringCmd
	if clear {
		cmd = rc.GetDel(ctx, captchaKeyPrefix+id)
	} else {
		cmd = rc.Get(ctx, captchaKeyPrefix+id)
	}
	v, err := cmd.Result()
	if err != nil {
		return ""
	}
	return v
}

func (s *redisCaptchaStore) Verify(id, answer string, clear bool) bool {
	v := s.Get(id, clear)
	return v != "" && v == answer
}
