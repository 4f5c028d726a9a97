package models

import "time"

// Role is the closed set of user roles. It is fixed at registration.
type Role string

const (
	RoleStudent          Role = "student"
	RoleCanteenOrganizer Role = "canteen_organizer"
	RoleNGO              Role = "ngo"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleCanteenOrganizer, RoleNGO:
		return true
	}
	return false
}

// User represents a registered user and their reward state
type User struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Role           Role      `json:"role" db:"role"`
	Points         int       `json:"points" db:"points"`
	Level          int       `json:"level" db:"level"`
	Title          string    `json:"title" db:"title"`
	Badges         []string  `json:"badges" db:"badges"`
	WeeklyProgress int       `json:"weekly_progress" db:"weekly_progress"`
	WeeklyGoal     int       `json:"weekly_goal" db:"weekly_goal"`
	WeeklyReward   int       `json:"weekly_reward" db:"weekly_reward"`
	CashbackPoints int       `json:"cashback_points" db:"cashback_points"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// ListingStatus is the availability state of a food listing
type ListingStatus string

const (
	ListingAvailable ListingStatus = "available"
	ListingClaimed   ListingStatus = "claimed"
	ListingExpired   ListingStatus = "expired"
)

// FoodListing is a unit of surplus food. It owns its claims.
type FoodListing struct {
	ID               string        `json:"id" db:"id"`
	Title            string        `json:"title" db:"title"`
	Source           string        `json:"source" db:"source"`
	Quantity         int           `json:"quantity" db:"quantity"`
	FoodType         string        `json:"food_type" db:"food_type"`
	StorageCondition string        `json:"storage_condition" db:"storage_condition"`
	PreparedAt       time.Time     `json:"prepared_at" db:"prepared_at"`
	ExpiresAt        time.Time     `json:"expires_at" db:"expires_at"`
	ImageURL         string        `json:"image_url" db:"image_url"`
	Status           ListingStatus `json:"status" db:"status"`
	ProviderID       string        `json:"provider_id" db:"provider_id"`
	PointsPerUnit    int           `json:"points_per_unit" db:"points_per_unit"`
	Claims           []*Claim      `json:"claims,omitempty" db:"-"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
}

// FindClaim returns the claim with the given id, or nil
func (l *FoodListing) FindClaim(claimID string) *Claim {
	for _, c := range l.Claims {
		if c.ID == claimID {
			return c
		}
	}
	return nil
}

// PickupStatus tracks physical collection of a claim
type PickupStatus string

const (
	PickupPending   PickupStatus = "pending"
	PickupConfirmed PickupStatus = "confirmed"
	PickupCancelled PickupStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed
func (s PickupStatus) Terminal() bool {
	return s == PickupConfirmed || s == PickupCancelled
}

// DeliveryStatus tracks the optional courier handoff requested with a claim
type DeliveryStatus string

const (
	DeliveryNone     DeliveryStatus = "none"
	DeliveryPending  DeliveryStatus = "pending"
	DeliveryAccepted DeliveryStatus = "accepted"
	DeliveryRejected DeliveryStatus = "rejected"
)

// Claim is a claimant's reservation against a listing
type Claim struct {
	ID                string         `json:"id" db:"id"`
	ListingID         string         `json:"listing_id" db:"listing_id"`
	ClaimantID        string         `json:"claimant_id" db:"claimant_id"`
	ClaimantRole      Role           `json:"claimant_role" db:"claimant_role"`
	Quantity          int            `json:"quantity" db:"quantity"`
	OTP               string         `json:"otp,omitempty" db:"otp"`
	DeliveryRequested bool           `json:"delivery_requested" db:"delivery_requested"`
	DeliveryAddress   string         `json:"delivery_address,omitempty" db:"delivery_address"`
	DeliveryStatus    DeliveryStatus `json:"delivery_status" db:"delivery_status"`
	PickupStatus      PickupStatus   `json:"pickup_status" db:"pickup_status"`
	ClaimedAt         time.Time      `json:"claimed_at" db:"claimed_at"`
}

// Booking mirrors an NGO claim
type Booking struct {
	ID        string    `json:"id" db:"id"`
	NGOID     string    `json:"ngo_id" db:"ngo_id"`
	ListingID string    `json:"listing_id" db:"listing_id"`
	ClaimID   string    `json:"claim_id" db:"claim_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	BookedAt  time.Time `json:"booked_at" db:"booked_at"`
}

// CourierStatus is the lifecycle of a volunteer delivery
type CourierStatus string

const (
	CourierPending   CourierStatus = "Pending"
	CourierOnTheWay  CourierStatus = "On the Way"
	CourierPickedUp  CourierStatus = "Picked Up"
	CourierDelivered CourierStatus = "Delivered"
	CourierCancelled CourierStatus = "Cancelled"
)

// Terminal reports whether the delivery is finished
func (s CourierStatus) Terminal() bool {
	return s == CourierDelivered || s == CourierCancelled
}

// Delivery is a volunteer-run transfer requested by canteen staff
type Delivery struct {
	ID              string        `json:"id" db:"id"`
	ListingID       string        `json:"listing_id" db:"listing_id"`
	PickupLocation  string        `json:"pickup_location" db:"pickup_location"`
	DropoffLocation string        `json:"dropoff_location" db:"dropoff_location"`
	VolunteerID     *string       `json:"volunteer_id,omitempty" db:"volunteer_id"`
	Status          CourierStatus `json:"status" db:"status"`
	RequestedBy     string        `json:"requested_by" db:"requested_by"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// VolunteerStatus is a volunteer's availability
type VolunteerStatus string

const (
	VolunteerAvailable VolunteerStatus = "Available"
	VolunteerBusy      VolunteerStatus = "Busy"
)

// Volunteer is a courier profile linked to one user
type Volunteer struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Name      string          `json:"name" db:"name"`
	Phone     string          `json:"phone" db:"phone"`
	Status    VolunteerStatus `json:"status" db:"status"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// NotificationType is the closed set of in-app notification kinds
type NotificationType string

const (
	NotificationNewListing       NotificationType = "new_listing"
	NotificationClaimOTP         NotificationType = "claim_otp"
	NotificationConfirmPickup    NotificationType = "confirm_pickup"
	NotificationDeliveryRequest  NotificationType = "delivery_request"
	NotificationDeliveryAccepted NotificationType = "delivery_accepted"
	NotificationDeliveryRejected NotificationType = "delivery_rejected"
	NotificationPickupConfirmed  NotificationType = "pickup_confirmed"
	NotificationPickupCancelled  NotificationType = "pickup_cancelled"
	NotificationDeliveryUpdate   NotificationType = "delivery_update"
)

// Notification is an in-app message for one user
type Notification struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"user_id" db:"user_id"`
	Message   string           `json:"message" db:"message"`
	Type      NotificationType `json:"type" db:"type"`
	ListingID *string          `json:"listing_id,omitempty" db:"listing_id"`
	ClaimID   *string          `json:"claim_id,omitempty" db:"claim_id"`
	Read      bool             `json:"read" db:"read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// PushSubscription is a device token registered for push delivery
type PushSubscription struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	DeviceToken string    `json:"device_token" db:"device_token"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Redemption records a cashback payout
type Redemption struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Points    int       `json:"points" db:"points"`
	Amount    float64   `json:"amount" db:"amount"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Place is an organization returned by the nearby lookup
type Place struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}
