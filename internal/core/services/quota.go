// Copyright 2025 E-Com Video Insider Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// This file implements the per-token quota and rate-limit store behind the
// API's bearer-token authorization. Accounts are declared in configuration;
// usage counters live in memory for the process lifetime, which matches the
// monthly-quota honor system the tool runs on.
package services

import (
	"errors"
	"sync"

	"github.com/ecom-insider/video-insider/internal/cloud"
	"golang.org/x/time/rate"
)

var (
	ErrUnknownToken   = errors.New("unknown api token")
	ErrQuotaExhausted = errors.New("monthly quota exhausted")
	ErrRateLimited    = errors.New("rate limit exceeded")
)

// Account is the externally visible view of one API user.
type Account struct {
	Username           string `json:"username"`
	Email              string `json:"email"`
	QuotaMonthly       int    `json:"quota_monthly"`
	QuotaUsed          int    `json:"quota_used"`
	QuotaRemaining     int    `json:"quota_remaining"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute"`
}

type accountState struct {
	user    cloud.APIUser
	used    int
	limiter *rate.Limiter
}

// QuotaStore tracks per-token usage and per-minute request rates.
type QuotaStore struct {
	mu       sync.Mutex
	accounts map[string]*accountState
}

// NewQuotaStore builds the store from the configured api_users table,
// which is keyed by bearer token.
func NewQuotaStore(users map[string]cloud.APIUser) *QuotaStore {
	accounts := make(map[string]*accountState, len(users))
	for token, user := range users {
		perMinute := user.RateLimitPerMinute
		if perMinute <= 0 {
			perMinute = 1
		}
		accounts[token] = &accountState{
			user:    user,
			limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		}
	}
	return &QuotaStore{accounts: accounts}
}

// Authorize validates a token without consuming quota. It is the check
// behind read-only endpoints.
func (s *QuotaStore) Authorize(token string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.accounts[token]
	if !ok {
		return nil, ErrUnknownToken
	}
	return state.view(), nil
}

// Consume validates the token, enforces the per-minute rate, and burns one
// unit of monthly quota. It is the check behind the analyze endpoint.
func (s *QuotaStore) Consume(token string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.accounts[token]
	if !ok {
		return nil, ErrUnknownToken
	}
	if state.used >= state.user.QuotaMonthly {
		return nil, ErrQuotaExhausted
	}
	if !state.limiter.Allow() {
		return nil, ErrRateLimited
	}
	state.used++
	return state.view(), nil
}

func (a *accountState) view() *Account {
	return &Account{
		Username:           a.user.Username,
		Email:              a.user.Email,
		QuotaMonthly:       a.user.QuotaMonthly,
		QuotaUsed:          a.used,
		QuotaRemaining:     a.user.QuotaMonthly - a.used,
		RateLimitPerMinute: a.user.RateLimitPerMinute,
	}
}
