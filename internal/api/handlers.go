package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/buy4me/buy4me/internal/domain"
	"github.com/buy4me/buy4me/internal/service"
	"github.com/buy4me/buy4me/internal/store"
	"github.com/buy4me/buy4me/internal/verify"
)

// Metrics
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buy4me_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "buy4me_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 45},
	}, []string{"method", "endpoint"})

	verificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buy4me_verifications_total",
		Help: "Verification attempts by outcome",
	}, []string{"outcome"})
)

// Store is the persistence surface the handlers consume. Declaring it
// here lets handler tests run against an in-memory fake.
type Store interface {
	CreateProfile(ctx context.Context, p *domain.Profile) error
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
	SetBankCredential(ctx context.Context, id, accessToken string) error
	CreateRequest(ctx context.Context, r *domain.Request) error
	GetRequest(ctx context.Context, id string) (*domain.Request, error)
	ListRequestsByFulfiller(ctx context.Context, userID string) ([]domain.Request, error)
	ListRequestsByRequester(ctx context.Context, userID string) ([]domain.Request, error)
	AddFriend(ctx context.Context, userID, friendID string) error
	AcceptFriend(ctx context.Context, userID, friendID string) error
	ListFriends(ctx context.Context, userID string) ([]domain.Profile, error)
}

// RequestService is the lifecycle controller surface.
type RequestService interface {
	MarkPurchased(ctx context.Context, requestID string) (*domain.Request, error)
	SendPaymentRequest(ctx context.Context, requestID, kind string, customAmount float64) (*service.PaymentOutcome, error)
	CancelRequest(ctx context.Context, requestID string) (*domain.Request, error)
}

type Handler struct {
	store   Store
	service RequestService
}

func NewHandler(s Store, svc RequestService) *Handler {
	return &Handler{store: s, service: svc}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/profiles", h.CreateProfile).Methods("POST")
	r.HandleFunc("/profiles/{id}", h.GetProfile).Methods("GET")
	r.HandleFunc("/profiles/{id}/bank-credential", h.SetBankCredential).Methods("POST")

	r.HandleFunc("/requests", h.CreateRequest).Methods("POST")
	r.HandleFunc("/requests/{id}", h.GetRequest).Methods("GET")
	r.HandleFunc("/requests/{id}/verify", h.VerifyRequest).Methods("POST")
	r.HandleFunc("/requests/{id}/cancel", h.CancelRequest).Methods("POST")
	r.HandleFunc("/requests/{id}/payment-request", h.SendPaymentRequest).Methods("POST")

	r.HandleFunc("/users/{id}/requests", h.ListUserRequests).Methods("GET")
	r.HandleFunc("/users/{id}/friends", h.ListFriends).Methods("GET")
	r.HandleFunc("/friends", h.AddFriend).Methods("POST")
	r.HandleFunc("/friends/accept", h.AcceptFriend).Methods("POST")
}

func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var p domain.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/profiles")
		return
	}
	if p.ID == "" || p.Username == "" {
		h.respondError(w, http.StatusUnprocessableEntity, "id and username are required", "POST", "/profiles")
		return
	}
	if err := h.store.CreateProfile(r.Context(), &p); err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error creating profile", "POST", "/profiles")
		return
	}
	h.respondJSON(w, http.StatusCreated, p, "POST", "/profiles")
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, err := h.store.GetProfile(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "GET", "/profiles/{id}")
		return
	}
	h.respondJSON(w, http.StatusOK, p, "GET", "/profiles/{id}")
}

func (h *Handler) SetBankCredential(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AccessToken == "" {
		h.respondError(w, http.StatusBadRequest, "access_token is required", "POST", "/profiles/{id}/bank-credential")
		return
	}
	if err := h.store.SetBankCredential(r.Context(), id, body.AccessToken); err != nil {
		h.respondStoreError(w, err, "POST", "/profiles/{id}/bank-credential")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "linked"}, "POST", "/profiles/{id}/bank-credential")
}

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req domain.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/requests")
		return
	}
	if req.RequesterID == "" || req.FulfillerID == "" || req.Text == "" {
		h.respondError(w, http.StatusUnprocessableEntity, "requester_id, fulfiller_id and text are required", "POST", "/requests")
		return
	}
	if req.RequesterID == req.FulfillerID {
		h.respondError(w, http.StatusUnprocessableEntity, "Cannot request from self", "POST", "/requests")
		return
	}
	if err := h.store.CreateRequest(r.Context(), &req); err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error creating request", "POST", "/requests")
		return
	}
	w.Header().Set("Location", "/api/v1/requests/"+req.ID)
	h.respondJSON(w, http.StatusCreated, req, "POST", "/requests")
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	req, err := h.store.GetRequest(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "GET", "/requests/{id}")
		return
	}
	h.respondJSON(w, http.StatusOK, req, "GET", "/requests/{id}")
}

func (h *Handler) ListUserRequests(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var (
		requests []domain.Request
		err      error
	)
	switch role := r.URL.Query().Get("role"); role {
	case "", "fulfiller":
		requests, err = h.store.ListRequestsByFulfiller(r.Context(), id)
	case "requester":
		requests, err = h.store.ListRequestsByRequester(r.Context(), id)
	default:
		h.respondError(w, http.StatusBadRequest, "role must be fulfiller or requester", "GET", "/users/{id}/requests")
		return
	}
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error listing requests", "GET", "/users/{id}/requests")
		return
	}
	if requests == nil {
		requests = []domain.Request{}
	}
	h.respondJSON(w, http.StatusOK, requests, "GET", "/users/{id}/requests")
}

// VerifyRequest handles "mark as purchased" and "check again". The
// verification pipeline runs synchronously; the response carries the
// request in its persisted post-attempt state.
func (h *Handler) VerifyRequest(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/requests/{id}/verify"))
	defer timer.ObserveDuration()

	id := mux.Vars(r)["id"]
	req, err := h.service.MarkPurchased(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrRequestNotFound):
			h.respondError(w, http.StatusNotFound, "Request not found", "POST", "/requests/{id}/verify")
		case errors.Is(err, domain.ErrVerificationInProgress):
			h.respondError(w, http.StatusConflict, "Verification already in progress", "POST", "/requests/{id}/verify")
		case errors.Is(err, domain.ErrIllegalTransition):
			h.respondError(w, http.StatusUnprocessableEntity, "Request is not awaiting verification", "POST", "/requests/{id}/verify")
		case errors.Is(err, service.ErrNoBankCredential):
			verificationsTotal.WithLabelValues("unavailable").Inc()
			h.respondError(w, http.StatusUnprocessableEntity, "Requester has not linked a bank account", "POST", "/requests/{id}/verify")
		case errors.Is(err, verify.ErrVerificationUnavailable):
			// Detailed cause is already logged by the pipeline; clients
			// get the generic failure only.
			verificationsTotal.WithLabelValues("unavailable").Inc()
			h.respondError(w, http.StatusBadGateway, "Could not verify purchase", "POST", "/requests/{id}/verify")
		default:
			verificationsTotal.WithLabelValues("unavailable").Inc()
			h.respondError(w, http.StatusInternalServerError, "Internal Server Error", "POST", "/requests/{id}/verify")
		}
		return
	}

	if req.VerificationStatus == domain.VerificationVerified {
		verificationsTotal.WithLabelValues("verified").Inc()
	} else {
		verificationsTotal.WithLabelValues("not_verified").Inc()
	}
	h.respondJSON(w, http.StatusOK, req, "POST", "/requests/{id}/verify")
}

func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	req, err := h.service.CancelRequest(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrRequestNotFound):
			h.respondError(w, http.StatusNotFound, "Request not found", "POST", "/requests/{id}/cancel")
		case errors.Is(err, domain.ErrIllegalTransition):
			h.respondError(w, http.StatusUnprocessableEntity, "Only a pending request can be canceled", "POST", "/requests/{id}/cancel")
		default:
			h.respondError(w, http.StatusInternalServerError, "System error canceling request", "POST", "/requests/{id}/cancel")
		}
		return
	}
	h.respondJSON(w, http.StatusOK, req, "POST", "/requests/{id}/cancel")
}

func (h *Handler) SendPaymentRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Kind   string  `json:"kind"`
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/requests/{id}/payment-request")
		return
	}

	outcome, err := h.service.SendPaymentRequest(r.Context(), id, body.Kind, body.Amount)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrRequestNotFound):
			h.respondError(w, http.StatusNotFound, "Request not found", "POST", "/requests/{id}/payment-request")
		case errors.Is(err, domain.ErrIllegalTransition):
			h.respondError(w, http.StatusUnprocessableEntity, "A verification attempt must finish first", "POST", "/requests/{id}/payment-request")
		case errors.Is(err, service.ErrInvalidPaymentKind),
			errors.Is(err, service.ErrInvalidAmount),
			errors.Is(err, service.ErrNoPaymentRail):
			h.respondError(w, http.StatusUnprocessableEntity, err.Error(), "POST", "/requests/{id}/payment-request")
		default:
			h.respondError(w, http.StatusBadGateway, "Payment request failed", "POST", "/requests/{id}/payment-request")
		}
		return
	}
	h.respondJSON(w, http.StatusOK, outcome, "POST", "/requests/{id}/payment-request")
}

func (h *Handler) AddFriend(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID   string `json:"user_id"`
		FriendID string `json:"friend_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" || body.FriendID == "" {
		h.respondError(w, http.StatusBadRequest, "user_id and friend_id are required", "POST", "/friends")
		return
	}
	if err := h.store.AddFriend(r.Context(), body.UserID, body.FriendID); err != nil {
		switch {
		case errors.Is(err, store.ErrFriendshipExists):
			h.respondError(w, http.StatusConflict, "Friend request already exists", "POST", "/friends")
		case errors.Is(err, store.ErrProfileNotFound):
			h.respondError(w, http.StatusNotFound, "Profile not found", "POST", "/friends")
		case errors.Is(err, domain.ErrIllegalTransition):
			h.respondError(w, http.StatusUnprocessableEntity, "Cannot befriend yourself", "POST", "/friends")
		default:
			h.respondError(w, http.StatusInternalServerError, "System error adding friend", "POST", "/friends")
		}
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]string{"status": "pending"}, "POST", "/friends")
}

func (h *Handler) AcceptFriend(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID   string `json:"user_id"`
		FriendID string `json:"friend_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" || body.FriendID == "" {
		h.respondError(w, http.StatusBadRequest, "user_id and friend_id are required", "POST", "/friends/accept")
		return
	}
	if err := h.store.AcceptFriend(r.Context(), body.UserID, body.FriendID); err != nil {
		if errors.Is(err, store.ErrRequestNotFound) {
			h.respondError(w, http.StatusNotFound, "No pending friend request", "POST", "/friends/accept")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "System error accepting friend", "POST", "/friends/accept")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "accepted"}, "POST", "/friends/accept")
}

func (h *Handler) ListFriends(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	friends, err := h.store.ListFriends(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error listing friends", "GET", "/users/{id}/friends")
		return
	}
	if friends == nil {
		friends = []domain.Profile{}
	}
	h.respondJSON(w, http.StatusOK, friends, "GET", "/users/{id}/friends")
}

// Helpers

func (h *Handler) respondStoreError(w http.ResponseWriter, err error, method, endpoint string) {
	switch {
	case errors.Is(err, store.ErrProfileNotFound):
		h.respondError(w, http.StatusNotFound, "Profile not found", method, endpoint)
	case errors.Is(err, store.ErrRequestNotFound):
		h.respondError(w, http.StatusNotFound, "Request not found", method, endpoint)
	default:
		h.respondError(w, http.StatusInternalServerError, "Internal Server Error", method, endpoint)
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload interface{}, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func (h *Handler) respondError(w http.ResponseWriter, code int, msg, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"error": msg}, method, endpoint)
}
