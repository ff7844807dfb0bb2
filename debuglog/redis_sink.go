// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package debuglog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// redisListSink RPUSHes each record onto a Redis list, the same thin
// wrapper shape as persistence.GoRedisEvaler. Chosen over a Redis Stream
// for debug logs since ordering within one run matters more than
// consumer-group fan-out.
type redisListSink struct {
	c    *redis.Client
	key  string
	ctx  context.Context
	stop context.CancelFunc
}

// newRedisSink parses a redis://host:port/key-style target: the URL's
// path names the list key, defaulting to "surge:debug".
func newRedisSink(target string) (*redisListSink, error) {
	opt, err := redis.ParseURL(normalizeRedisURL(target))
	if err != nil {
		return nil, fmt.Errorf("debuglog: %w", err)
	}
	key := listKeyFromTarget(target)
	ctx, cancel := context.WithCancel(context.Background())
	return &redisListSink{c: redis.NewClient(opt), key: key, ctx: ctx, stop: cancel}, nil
}

func (s *redisListSink) Write(record map[string]any) {
	if record == nil {
		return
	}
	b, err := json.Marshal(record)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()
	_ = s.c.RPush(ctx, s.key, b).Err()
}

func (s *redisListSink) Close() error {
	s.stop()
	return s.c.Close()
}

// normalizeRedisURL strips any list-key suffix so redis.ParseURL only sees
// a connection URL; go-redis treats the URL's path as a DB index, which a
// non-numeric list key would break.
func normalizeRedisURL(target string) string {
	const prefix = "redis://"
	rest := target[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return prefix + rest[:i]
		}
	}
	return target
}

func listKeyFromTarget(target string) string {
	const prefix = "redis://"
	rest := target[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			if i+1 < len(rest) {
				return rest[i+1:]
			}
			break
		}
	}
	return "surge:debug"
}
