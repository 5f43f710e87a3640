package session

import (
	"context"

	"coined-client/internal/api"
	"coined-client/internal/domain"
	"github.com/google/uuid"
)

// Coin-affecting operations all follow one protocol: call the portal
// first, mirror locally only after a successful response. On failure the
// cache is untouched, so there is nothing to roll back.

// Award adds coins to a student. The roster balance is overwritten with
// the server-returned authoritative value, never incremented locally, and
// a synthetic ledger row is prepended until the next refetch replaces it.
func (s *Store) Award(ctx context.Context, studentID string, amount int, label, category string) error {
	if label == "" {
		label = "Teacher Bonus"
	}
	if category == "" {
		category = "behavior"
	}

	res, err := s.api.AdjustCoins(ctx, studentID, api.CoinAdjustment{
		Amount:   amount,
		Type:     domain.TxEarn,
		Label:    label,
		Category: category,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.syncCoinsLocked(studentID, res.Coins)
	s.prependTxLocked(studentID, domain.Transaction{
		ID:        uuid.NewString(),
		Label:     label,
		Type:      domain.TxEarn,
		Amount:    amount,
		Category:  category,
		Date:      "Just now",
		Synthetic: true,
	})
	s.mu.Unlock()
	return nil
}

// Deduct removes coins from a student; the synthetic ledger row carries a
// negative signed amount.
func (s *Store) Deduct(ctx context.Context, studentID string, amount int, label, category string) error {
	if label == "" {
		label = "Teacher Deduction"
	}
	if category == "" {
		category = "behavior"
	}

	res, err := s.api.AdjustCoins(ctx, studentID, api.CoinAdjustment{
		Amount:   amount,
		Type:     domain.TxSpend,
		Label:    label,
		Category: category,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.syncCoinsLocked(studentID, res.Coins)
	s.prependTxLocked(studentID, domain.Transaction{
		ID:        uuid.NewString(),
		Label:     label,
		Type:      domain.TxSpend,
		Amount:    -amount,
		Category:  category,
		Date:      "Just now",
		Synthetic: true,
	})
	s.mu.Unlock()
	return nil
}

// Spend is the student's own shop purchase. It reports success as a bool
// because the caller shows "not enough coins" on false without caring why
// the deduction failed. The response carries no balance, so on success the
// cached identity is decremented by exactly amount.
func (s *Store) Spend(ctx context.Context, amount int, itemName string) bool {
	s.mu.RLock()
	identity := s.identity
	s.mu.RUnlock()
	if identity == nil {
		return false
	}

	_, err := s.api.AdjustCoins(ctx, identity.ID, api.CoinAdjustment{
		Amount:   amount,
		Type:     domain.TxSpend,
		Label:    itemName,
		Category: "shop",
	})
	if err != nil {
		return false
	}

	s.mu.Lock()
	if s.identity != nil {
		s.identity.Coins -= amount
		for i := range s.students {
			if s.students[i].ID == s.identity.ID {
				s.students[i].Coins = s.identity.Coins
			}
		}
	}
	s.mu.Unlock()
	return true
}

// syncCoinsLocked writes an authoritative balance into every cached view
// of the student: the roster entry and, when it is the same person, the
// identity itself.
func (s *Store) syncCoinsLocked(studentID string, coins int) {
	for i := range s.students {
		if s.students[i].ID == studentID {
			s.students[i].Coins = coins
		}
	}
	if s.identity != nil && s.identity.ID == studentID {
		s.identity.Coins = coins
	}
}

func (s *Store) prependTxLocked(studentID string, tx domain.Transaction) {
	s.ledger[studentID] = append([]domain.Transaction{tx}, s.ledger[studentID]...)
}
