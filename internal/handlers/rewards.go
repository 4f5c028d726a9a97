package handlers

import (
	"net/http"

	"campus-food-backend/internal/services"
)

// RewardHandler handles points and cashback HTTP requests
type RewardHandler struct {
	rewardService *services.RewardService
}

// NewRewardHandler creates a new reward handler
func NewRewardHandler(rewardService *services.RewardService) *RewardHandler {
	return &RewardHandler{rewardService: rewardService}
}

// RedeemRequest represents a cashback redemption request
type RedeemRequest struct {
	Amount int `json:"amount"`
}

// Profile handles GET /api/v1/rewards
func (h *RewardHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.rewardService.Profile(r.Context(), identity(r).UserID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Redeem handles POST /api/v1/rewards/redeem
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.rewardService.RedeemCashback(r.Context(), identity(r), req.Amount)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Redemptions handles GET /api/v1/rewards/redemptions
func (h *RewardHandler) Redemptions(w http.ResponseWriter, r *http.Request) {
	redemptions, err := h.rewardService.Redemptions(r.Context(), identity(r).UserID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, redemptions)
}
