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

// Package httpclient is the thin HTTP client wrapper used by virtual
// users. It reuses connections the way tools/http-loadgen tunes its
// transport, and optionally tracks the authority of the most recent
// redirect so a user can "stick" to it for subsequent requests.
package httpclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

// Options configures a Session's underlying transport.
type Options struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	RequestTimeout      time.Duration
	StickyFollow        bool
}

func (o Options) withDefaults() Options {
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = 256
	}
	if o.MaxIdleConnsPerHost <= 0 {
		o.MaxIdleConnsPerHost = 256
	}
	if o.IdleConnTimeout <= 0 {
		o.IdleConnTimeout = 30 * time.Second
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	return o
}

// Session is one virtual user's HTTP client session: a connection-reusing
// *http.Client plus a resolved, possibly-sticky base URL.
type Session struct {
	client *http.Client
	base   atomic.Pointer[url.URL]
	sticky bool
}

// NewSession builds a Session against baseURL with the given options.
func NewSession(baseURL string, opts Options) (*Session, error) {
	opts = opts.withDefaults()
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	s := &Session{sticky: opts.StickyFollow}
	s.base.Store(u)

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        opts.MaxIdleConns,
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		IdleConnTimeout:     opts.IdleConnTimeout,
	}
	s.client = &http.Client{
		Transport: tr,
		Timeout:   opts.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if s.sticky && len(via) > 0 {
				s.maybeStick(req.URL)
			}
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	return s, nil
}

// maybeStick adopts next's authority as the session's new base when it
// differs from the current one, so subsequent requests resolve against it.
func (s *Session) maybeStick(next *url.URL) {
	cur := s.base.Load()
	if next.Host == cur.Host && next.Scheme == cur.Scheme {
		return
	}
	sticky := *cur
	sticky.Scheme = next.Scheme
	sticky.Host = next.Host
	s.base.Store(&sticky)
}

// Resolve joins path against the session's current base URL. An absolute
// URL in path overrides the base entirely.
func (s *Session) Resolve(path string) (*url.URL, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return url.Parse(path)
	}
	base := s.base.Load()
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(ref), nil
}

// Do executes req against the session's transport.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	return s.client.Do(req)
}

// Get builds a GET request for path, joined against the session's base.
// It does not send the request; pass the result to Do.
func (s *Session) Get(ctx context.Context, path string) (*http.Request, error) {
	u, err := s.Resolve(path)
	if err != nil {
		return nil, err
	}
	return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
}

// BaseHost reports the session's current authority (host[:port]).
func (s *Session) BaseHost() string {
	return s.base.Load().Host
}

// Close releases idle connections held by the session's transport.
func (s *Session) Close() {
	if tr, ok := s.client.Transport.(*http.Transport); ok {
		tr.CloseIdleConnections()
	}
}

// ResolveBaseURL implements the host-precedence rule of spec.md §4.2:
// scenario host, else global host, else default host.
func ResolveBaseURL(scenarioHost, globalHost, defaultHost string) string {
	if scenarioHost != "" {
		return scenarioHost
	}
	if globalHost != "" {
		return globalHost
	}
	return defaultHost
}
