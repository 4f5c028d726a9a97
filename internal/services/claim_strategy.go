package services

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"campus-food-backend/internal/models"

	"github.com/google/uuid"
)

const otpLength = 6

var otpSpace = big.NewInt(1_000_000)

// GenerateOTP returns a uniformly random 6-digit code, zero padded.
// Codes are not deduplicated across claims.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpLength, n.Int64()), nil
}

// claimStrategy captures how a claimant role reserves quantity
type claimStrategy interface {
	// DeductsOnClaim reports whether quantity leaves the pool at claim time
	// rather than at pickup confirmation.
	DeductsOnClaim() bool
	// Mirror returns the booking written alongside the claim, if any
	Mirror(claim *models.Claim) *models.Booking
}

// committedStrategy is used for NGOs: the claim is binding immediately
type committedStrategy struct{}

func (committedStrategy) DeductsOnClaim() bool { return true }

func (committedStrategy) Mirror(claim *models.Claim) *models.Booking {
	return &models.Booking{
		ID:        uuid.New().String(),
		NGOID:     claim.ClaimantID,
		ListingID: claim.ListingID,
		ClaimID:   claim.ID,
		Quantity:  claim.Quantity,
		BookedAt:  claim.ClaimedAt,
	}
}

// deferredStrategy is used for individuals, who may not show up
type deferredStrategy struct{}

func (deferredStrategy) DeductsOnClaim() bool { return false }

func (deferredStrategy) Mirror(*models.Claim) *models.Booking { return nil }

var strategies = map[models.Role]claimStrategy{
	models.RoleNGO:              committedStrategy{},
	models.RoleStudent:          deferredStrategy{},
	models.RoleCanteenOrganizer: deferredStrategy{},
}

func strategyFor(role models.Role) claimStrategy {
	if s, ok := strategies[role]; ok {
		return s
	}
	return deferredStrategy{}
}
