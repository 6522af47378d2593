package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/buy4me/buy4me/internal/api"
	"github.com/buy4me/buy4me/internal/config"
	"github.com/buy4me/buy4me/internal/llm"
	"github.com/buy4me/buy4me/internal/payments"
	"github.com/buy4me/buy4me/internal/plaid"
	"github.com/buy4me/buy4me/internal/service"
	"github.com/buy4me/buy4me/internal/store"
	"github.com/buy4me/buy4me/internal/verify"
)

func main() {
	// .env is a local-development convenience; production sets real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	st, err := store.NewStore(cfg.DBSource)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer st.Close()

	if err := st.Init(context.Background()); err != nil {
		log.Fatalf("Unable to initialize schema: %v", err)
	}

	// Initialize Layers
	bank := plaid.NewClient(cfg.PlaidClientID, cfg.PlaidSecret, cfg.PlaidEnv)
	model := llm.NewClient(cfg.AnthropicAPIKey)
	verifier := verify.NewVerifier(bank, model)
	paypal := payments.NewPayPalClient(cfg.PayPalClientID, cfg.PayPalSecret)
	if !paypal.Configured() {
		log.Println("PayPal credentials not set; payout rail disabled")
	}
	svc := service.NewRequestService(st, verifier, paypal)
	handler := api.NewHandler(st, svc)

	// Router
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	handler.RegisterRoutes(apiV1)

	log.Printf("Server starting on :%s (%s)", cfg.Port, cfg.Env)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
