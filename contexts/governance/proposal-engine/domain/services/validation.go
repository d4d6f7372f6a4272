package services

import (
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"

	"fangov/contexts/governance/proposal-engine/domain/entities"
	domainerrors "fangov/contexts/governance/proposal-engine/domain/errors"
)

// NormalizeTitle trims the title and enforces the 1..200 character bound.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" || utf8.RuneCountInString(title) > entities.MaxTitleLength {
		return "", domainerrors.ErrInvalidTitle
	}
	return title, nil
}

// NormalizeContentHash accepts a 64 character hex SHA-256 digest, optionally
// prefixed with "0x", and returns it lowercased.
func NormalizeContentHash(value string) (string, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(strings.TrimPrefix(value, "0x"), "0X")
	if len(value) != 64 {
		return "", domainerrors.ErrInvalidContentHash
	}
	if _, err := hex.DecodeString(value); err != nil {
		return "", domainerrors.ErrInvalidContentHash
	}
	return strings.ToLower(value), nil
}

func ValidateQuorumBps(bps *int) error {
	if bps == nil {
		return nil
	}
	if *bps < 0 || *bps > entities.MaxQuorumBps {
		return domainerrors.ErrInvalidQuorum
	}
	return nil
}

func ValidateWindow(startAt time.Time, endAt time.Time) error {
	if startAt.IsZero() || endAt.IsZero() || !startAt.Before(endAt) {
		return domainerrors.ErrInvalidVotingWindow
	}
	return nil
}
