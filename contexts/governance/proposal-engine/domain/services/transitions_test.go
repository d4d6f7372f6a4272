package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"fangov/contexts/governance/proposal-engine/domain/entities"
	domainerrors "fangov/contexts/governance/proposal-engine/domain/errors"
)

func TestCanTransitionOnlyForward(t *testing.T) {
	statuses := []entities.ProposalStatus{
		entities.ProposalStatusDraft,
		entities.ProposalStatusOpen,
		entities.ProposalStatusClosed,
		entities.ProposalStatusFinalized,
	}
	for i, from := range statuses {
		for j, to := range statuses {
			want := j == i+1
			if got := CanTransition(from, to); got != want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCheckOpenPreconditions(t *testing.T) {
	start := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	draft := entities.Proposal{Status: entities.ProposalStatusDraft, StartAt: &start, EndAt: &end}

	if err := CheckOpenPreconditions(draft, 2); err != nil {
		t.Fatalf("expected preconditions met, got %v", err)
	}
	if err := CheckOpenPreconditions(draft, 1); !errors.Is(err, domainerrors.ErrTooFewOptions) {
		t.Fatalf("expected too few options, got %v", err)
	}

	noWindow := draft
	noWindow.EndAt = nil
	if err := CheckOpenPreconditions(noWindow, 3); !errors.Is(err, domainerrors.ErrVotingWindowMissing) {
		t.Fatalf("expected missing window, got %v", err)
	}

	inverted := draft
	inverted.StartAt, inverted.EndAt = &end, &start
	err := CheckOpenPreconditions(inverted, 3)
	if !errors.Is(err, domainerrors.ErrPrecondition) {
		t.Fatalf("expected precondition error for inverted window, got %v", err)
	}

	opened := draft
	opened.Status = entities.ProposalStatusOpen
	err = CheckOpenPreconditions(opened, 3)
	if !errors.Is(err, domainerrors.ErrPrecondition) || !errors.Is(err, domainerrors.ErrInvalidState) {
		t.Fatalf("expected precondition and invalid state, got %v", err)
	}
}

func TestNormalizeContentHash(t *testing.T) {
	digest := strings.Repeat("AB", 32)
	got, err := NormalizeContentHash("0x" + digest)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if got != strings.ToLower(digest) {
		t.Fatalf("expected lowercase digest, got %s", got)
	}
	for _, bad := range []string{"", "abc", strings.Repeat("zz", 32), strings.Repeat("a", 66)} {
		if _, err := NormalizeContentHash(bad); !errors.Is(err, domainerrors.ErrValidation) {
			t.Fatalf("expected validation error for %q, got %v", bad, err)
		}
	}
}

func TestNormalizeTitle(t *testing.T) {
	if _, err := NormalizeTitle("   "); !errors.Is(err, domainerrors.ErrInvalidTitle) {
		t.Fatalf("expected invalid title for blank input, got %v", err)
	}
	if _, err := NormalizeTitle(strings.Repeat("x", entities.MaxTitleLength+1)); !errors.Is(err, domainerrors.ErrInvalidTitle) {
		t.Fatalf("expected invalid title for long input, got %v", err)
	}
	title, err := NormalizeTitle("  Raise the budget  ")
	if err != nil || title != "Raise the budget" {
		t.Fatalf("unexpected normalize result %q, %v", title, err)
	}
}

func TestKindClassifiesWrappedErrors(t *testing.T) {
	if domainerrors.Kind(domainerrors.ErrTooFewOptions) != domainerrors.ErrPrecondition {
		t.Fatalf("expected precondition kind")
	}
	if domainerrors.Kind(domainerrors.ErrOptionNotFound) != domainerrors.ErrNotFound {
		t.Fatalf("expected not found kind")
	}
	if domainerrors.Kind(errors.New("boom")) != nil {
		t.Fatalf("expected nil kind for foreign error")
	}
}
