package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultCacheTTL = time.Minute

	feedCachePrefix     = "community:feed:"
	commentsCachePrefix = "community:comments:"
)

// List pages are keyed on a version counter. Writes bump the counter instead of deleting
// pages, so a reader that loaded rows before a write stores them under a version no
// later request asks for. Superseded pages age out through their TTL.

func feedVersionKey() string { return feedCachePrefix + "version" }

func commentsVersionKey(postID uint) string {
	return fmt.Sprintf("%s%d:version", commentsCachePrefix, postID)
}

func feedPageKey(version int64, page, size int) string {
	return fmt.Sprintf("%sv%d:page=%d:size=%d", feedCachePrefix, version, page, size)
}

func commentsPageKey(postID uint, version int64, page, size int) string {
	return fmt.Sprintf("%s%d:v%d:page=%d:size=%d", commentsCachePrefix, postID, version, page, size)
}

// FeedCacheKey names one cached feed page at the current feed version. Resolve it before
// reading the database. An empty key means the version is unknown and nothing is cached.
func FeedCacheKey(page, size int) string {
	v, ok := cacheVersion(feedVersionKey())
	if !ok {
		return ""
	}
	return feedPageKey(v, page, size)
}

// CommentsCacheKey names one cached comment page of a post at the post's current version.
func CommentsCacheKey(postID uint, page, size int) string {
	v, ok := cacheVersion(commentsVersionKey(postID))
	if !ok {
		return ""
	}
	return commentsPageKey(postID, v, page, size)
}

// InvalidateFeed retires every cached feed page. Post, support and delete writes call it
// after their transaction commits.
func InvalidateFeed() {
	bumpCacheVersion(feedVersionKey())
}

// InvalidateComments retires the cached comment pages of one post.
func InvalidateComments(postID uint) {
	bumpCacheVersion(commentsVersionKey(postID))
}

// cacheVersion reads a version counter. A missing counter or a disabled cache is version 0;
// a read error reports false.
func cacheVersion(key string) (int64, bool) {
	rc := GetRedis()
	if rc == nil {
		return 0, true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := rc.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, true
	}
	if err != nil {
		Logger.Debug("cache version read failed", zap.String("key", key), zap.Error(err))
		return 0, false
	}
	return v, true
}

func bumpCacheVersion(key string) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Incr(ctx, key).Err(); err != nil {
		Logger.Warn("cache invalidate failed", zap.String("key", key), zap.Error(err))
	}
}

// CacheGetBytes returns cached bytes for a key. Misses and a disabled cache both report false.
func CacheGetBytes(key string) ([]byte, bool) {
	rc := GetRedis()
	if rc == nil || key == "" {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			Logger.Debug("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return b, true
}

// CacheSetBytes stores bytes; ttl <= 0 selects the default.
func CacheSetBytes(key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	rc := GetRedis()
	if rc == nil || key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
		Logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// CacheSetJSON marshals v and stores JSON bytes.
func CacheSetJSON(key string, v interface{}, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	CacheSetBytes(key, b, ttl)
}
