package config

import (
	"fmt"
	"os"
)

type Config struct {
	DBSource        string
	Port            string
	Env             string
	PlaidClientID   string
	PlaidSecret     string
	PlaidEnv        string
	AnthropicAPIKey string
	PayPalClientID  string
	PayPalSecret    string
}

func Load() (*Config, error) {
	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	plaidClientID := os.Getenv("PLAID_CLIENT_ID")
	if plaidClientID == "" {
		return nil, fmt.Errorf("PLAID_CLIENT_ID environment variable is required")
	}

	plaidSecret := os.Getenv("PLAID_SECRET")
	if plaidSecret == "" {
		return nil, fmt.Errorf("PLAID_SECRET environment variable is required")
	}

	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	if anthropicKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is required")
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	plaidEnv := os.Getenv("PLAID_ENV")
	if plaidEnv == "" {
		plaidEnv = "sandbox"
	}

	return &Config{
		DBSource:        dbSource,
		Port:            port,
		Env:             env,
		PlaidClientID:   plaidClientID,
		PlaidSecret:     plaidSecret,
		PlaidEnv:        plaidEnv,
		AnthropicAPIKey: anthropicKey,
		// PayPal credentials are optional: deployments where every user
		// reimburses over Venmo links never call the payouts API.
		PayPalClientID: os.Getenv("PAYPAL_CLIENT_ID"),
		PayPalSecret:   os.Getenv("PAYPAL_SECRET"),
	}, nil
}
