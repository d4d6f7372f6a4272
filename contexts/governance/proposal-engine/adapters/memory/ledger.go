package memory

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fangov/contexts/governance/proposal-engine/domain/entities"
	"fangov/contexts/governance/proposal-engine/ports"
)

// IssueShares records a share grant to a member effective from issuedAt.
// Negative amounts model transfers out.
func (s *Store) IssueShares(organizationID string, userID string, amount decimal.Decimal, issuedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	organizationID = strings.TrimSpace(organizationID)
	members, ok := s.shares[organizationID]
	if !ok {
		members = make(map[string][]shareGrant)
		s.shares[organizationID] = members
	}
	userID = strings.TrimSpace(userID)
	members[userID] = append(members[userID], shareGrant{amount: amount, issuedAt: issuedAt.UTC()})
}

func (s *Store) SetQuorumBps(organizationID string, bps int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quorumBps[strings.TrimSpace(organizationID)] = bps
}

func (s *Store) SetDefaultQuorum(fraction decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultQuorum = fraction
}

func (s *Store) VotingPowerOf(
	_ context.Context,
	userID string,
	organizationID string,
	asOf time.Time,
) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	grants := s.shares[strings.TrimSpace(organizationID)][strings.TrimSpace(userID)]
	return balanceAt(grants, asOf), nil
}

// TotalEligibleVotingPower sums every member's positive balance at asOf.
func (s *Store) TotalEligibleVotingPower(_ context.Context, organizationID string, asOf time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, grants := range s.shares[strings.TrimSpace(organizationID)] {
		balance := balanceAt(grants, asOf)
		if balance.Sign() > 0 {
			total = total.Add(balance)
		}
	}
	return total, nil
}

func (s *Store) QuorumThreshold(_ context.Context, organizationID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if bps, ok := s.quorumBps[strings.TrimSpace(organizationID)]; ok {
		return entities.BpsToFraction(bps), nil
	}
	return s.defaultQuorum, nil
}

func balanceAt(grants []shareGrant, asOf time.Time) decimal.Decimal {
	balance := decimal.Zero
	for _, grant := range grants {
		if grant.issuedAt.After(asOf) {
			continue
		}
		balance = balance.Add(grant.amount)
	}
	if balance.Sign() < 0 {
		return decimal.Zero
	}
	return balance
}

var _ ports.ShareLedger = (*Store)(nil)
var _ ports.QuorumPolicy = (*Store)(nil)
