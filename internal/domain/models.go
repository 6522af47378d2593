package domain

import "time"

// Fulfillment is the high-level status of a purchase request.
type Fulfillment string

const (
	FulfillmentPending   Fulfillment = "pending"
	FulfillmentCompleted Fulfillment = "completed"
	FulfillmentCanceled  Fulfillment = "canceled"
)

// VerificationStatus is the sub-status of the purchase-matching attempt.
type VerificationStatus string

const (
	VerificationIdle        VerificationStatus = "idle"
	VerificationLoading     VerificationStatus = "loading"
	VerificationVerified    VerificationStatus = "verified"
	VerificationNotVerified VerificationStatus = "notVerified"
)

// Profile is a user's profile document. The user id comes from the
// identity provider and is opaque to this service.
type Profile struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	PhoneNumber      string    `json:"phone_number,omitempty"`
	PayPalUsername   string    `json:"paypal_username,omitempty"`
	VenmoUsername    string    `json:"venmo_username,omitempty"`
	PlaidAccessToken string    `json:"-"`
	Location         string    `json:"location,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Request is a purchase request: the requester asks the fulfiller to buy
// something on their behalf and reimburses them afterwards.
//
// ID, RequesterID, FulfillerID, Text and CreatedAt are immutable after
// creation. The remaining fields are only written by the lifecycle
// transitions in state.go.
type Request struct {
	ID                 string             `json:"id"`
	RequesterID        string             `json:"requester_id"`
	FulfillerID        string             `json:"fulfiller_id"`
	Text               string             `json:"text"`
	Fulfillment        Fulfillment        `json:"fulfillment"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	FullPrice          float64            `json:"full_price,omitempty"`
	ReimburseAmount    float64            `json:"reimburse_amount,omitempty"`
	PurchaseLocation   string             `json:"purchase_location,omitempty"`
	RequestTextSummary string             `json:"request_text_summary,omitempty"`
	PaymentRequestSent float64            `json:"payment_request_sent,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

// VerificationResult is the outcome of one purchase-verification attempt.
// It is produced by the verification pipeline and copied onto a Request;
// it is never persisted on its own. The json tags are the exact output
// contract the language model is instructed to follow.
type VerificationResult struct {
	PurchaseMade       bool    `json:"purchaseMade"`
	FullAmount         float64 `json:"fullAmount"`
	ReimburseAmount    float64 `json:"reimburseAmount"`
	PurchaseLocation   string  `json:"purchaseLocation"`
	RequestTextSummary string  `json:"requestTextSummary"`
}

// BankTransaction is a single transaction fetched from the financial
// aggregator. Date stays a YYYY-MM-DD string as the aggregator returns it.
type BankTransaction struct {
	Amount   float64 `json:"amount"`
	Merchant string  `json:"merchant"`
	Date     string  `json:"date"`
}

// Friendship links two users. Status is "pending" until the friend accepts.
type Friendship struct {
	UserID    string    `json:"user_id"`
	FriendID  string    `json:"friend_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
