package model

import (
	"errors"
	"time"
)

// GrantTTL is the fixed lifetime of a point grant.
const GrantTTL = 5 * time.Minute

type GrantStatus string

const (
	GrantPending  GrantStatus = "pending"
	GrantRedeemed GrantStatus = "redeemed"
	GrantExpired  GrantStatus = "expired"
)

// ErrGrantFinal is returned when a transition is attempted out of a terminal status.
var ErrGrantFinal = errors.New("grant is already final")

// Final reports whether s is a terminal status.
func (s GrantStatus) Final() bool {
	return s == GrantRedeemed || s == GrantExpired
}

// PointGrant is a merchant-issued right to award points, bound to one token id.
type PointGrant struct {
	TokenID   string      `json:"token_id"`
	ShopID    int64       `json:"shop_id"`
	Points    int         `json:"points"`
	IssuedAt  time.Time   `json:"issued_at"`
	ExpiresAt time.Time   `json:"expires_at"`
	Status    GrantStatus `json:"status"`
}

// NewPointGrant returns a pending grant issued at issuedAt.
func NewPointGrant(tokenID string, shopID int64, points int, issuedAt time.Time) PointGrant {
	return PointGrant{
		TokenID:   tokenID,
		ShopID:    shopID,
		Points:    points,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(GrantTTL),
		Status:    GrantPending,
	}
}

// Transition moves the grant to status to. Only Pending may move, and only to a terminal status.
func (g *PointGrant) Transition(to GrantStatus) error {
	if g.Status.Final() {
		return ErrGrantFinal
	}
	if !to.Final() {
		return errors.New("grant can only move to redeemed or expired")
	}
	g.Status = to
	return nil
}

// ExpiredAt reports whether the grant window has closed at now.
func (g PointGrant) ExpiredAt(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}
