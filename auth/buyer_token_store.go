package auth

import (
	"context"
	"strings"
	"sync"
)

// BuyerTokenStore holds the buyer access token cached for the current
// session.
type BuyerTokenStore struct {
	mu    sync.RWMutex
	token string
}

func NewBuyerTokenStore() *BuyerTokenStore {
	return &BuyerTokenStore{}
}

func (s *BuyerTokenStore) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = strings.TrimSpace(token)
}

func (s *BuyerTokenStore) Clear() {
	s.Set("")
}

func (s *BuyerTokenStore) BuyerAccessToken(context.Context) (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}
