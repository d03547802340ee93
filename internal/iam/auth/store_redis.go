// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package auth

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/scholaris/scholaris/internal/platform/apperr"
	"github.com/scholaris/scholaris/internal/platform/constants"
)

// RedisLoginThrottle counts failed logins per email+IP pair in Redis.
//
// The counter expires after [constants.LoginThrottleWindow], giving a
// sliding-window approximation that needs no background cleanup. Redis
// unavailability fails open: a degraded cache must not lock out logins.
type RedisLoginThrottle struct {
	client *redis.Client
}

func NewRedisLoginThrottle(client *redis.Client) *RedisLoginThrottle {
	return &RedisLoginThrottle{client: client}
}

func throttleKey(email, ip string) string {
	return constants.RedisPrefixLoginThrottle + strings.ToLower(email) + ":" + ip
}

func (throttle *RedisLoginThrottle) RegisterFailure(ctx context.Context, email, ip string) (int, error) {
	key := throttleKey(email, ip)

	count, err := throttle.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, apperr.Internal(err)
	}

	// First failure in the window starts the expiry clock.
	if count == 1 {
		if err := throttle.client.Expire(ctx, key, constants.LoginThrottleWindow).Err(); err != nil {
			return int(count), apperr.Internal(err)
		}
	}

	return int(count), nil
}

func (throttle *RedisLoginThrottle) Blocked(ctx context.Context, email, ip string) (bool, error) {
	count, err := throttle.client.Get(ctx, throttleKey(email, ip)).Int()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		// Fail open on cache trouble.
		return false, nil
	}

	return count >= constants.LoginThrottleMaxAttempts, nil
}

func (throttle *RedisLoginThrottle) Reset(ctx context.Context, email, ip string) error {
	if err := throttle.client.Del(ctx, throttleKey(email, ip)).Err(); err != nil {
		return apperr.Internal(err)
	}
	return nil
}
