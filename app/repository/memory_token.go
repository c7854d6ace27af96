package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-checkout/app/entity"
)

// MemoryTokenRepository keeps tokens in process memory. Tokens are lost on
// restart and are not shared between instances.
type MemoryTokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]entity.RecurringToken
}

func NewMemoryTokenRepository() *MemoryTokenRepository {
	return &MemoryTokenRepository{tokens: make(map[string]entity.RecurringToken)}
}

func (r *MemoryTokenRepository) Store(_ context.Context, token *entity.RecurringToken) error {
	if strings.TrimSpace(token.ShopperReference) == "" || strings.TrimSpace(token.RecurringDetailReference) == "" {
		return ErrInvalidToken
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := r.tokens[token.ShopperReference]; ok {
		token.CreatedAt = existing.CreatedAt
	} else if token.CreatedAt.IsZero() {
		token.CreatedAt = now
	}
	token.UpdatedAt = now
	r.tokens[token.ShopperReference] = *token
	return nil
}

func (r *MemoryTokenRepository) Find(_ context.Context, shopperReference string) (*entity.RecurringToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.tokens[shopperReference]
	if !ok {
		return nil, nil
	}
	return &token, nil
}

func (r *MemoryTokenRepository) Delete(_ context.Context, shopperReference string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[shopperReference]; !ok {
		return false, nil
	}
	delete(r.tokens, shopperReference)
	return true, nil
}

func (r *MemoryTokenRepository) Exists(_ context.Context, shopperReference string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.tokens[shopperReference]
	return ok, nil
}

func (r *MemoryTokenRepository) List(_ context.Context) ([]*entity.RecurringToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*entity.RecurringToken, 0, len(r.tokens))
	for _, token := range r.tokens {
		token := token
		items = append(items, &token)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ShopperReference < items[j].ShopperReference
	})
	return items, nil
}
