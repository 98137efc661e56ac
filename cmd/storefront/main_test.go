package main

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/fjod/go_merch/internal/domain"
	"github.com/fjod/go_merch/internal/payment"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "storefront version 0.1.0 (build: dev)\n", out.String())
}

func TestServe_InvalidConfig(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("FULFILLMENT_API_URL", "")
	t.Setenv("PUBLIC_BASE_URL", "")

	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"serve"})

	err := cmd.Execute()
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestReplay_RequiresBrokers(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("FULFILLMENT_API_URL", "http://fulfillment.test")
	t.Setenv("PUBLIC_BASE_URL", "https://shop.test")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("KAFKA_BROKERS", "")

	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"replay"})

	err := cmd.Execute()
	assert.ErrorContains(t, err, "KAFKA_BROKERS is required")
}

func TestNewProcessor_FallsBackWhenKeyUnusable(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want error
	}{
		{"missing", "", payment.ErrMissingKey},
		{"publishable", "pk_test_123", payment.ErrInvalidKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			p := newProcessor(tt.key, http.DefaultClient, zerolog.New(&buf))

			require.IsType(t, payment.Misconfigured{}, p)
			_, err := p.CreateSession(context.Background(), domain.NewSessionRequest{})
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, buf.String(), "payment processor misconfigured")
		})
	}
}

func TestNewProcessor_SecretKey(t *testing.T) {
	p := newProcessor("sk_test_123", http.DefaultClient, zerolog.Nop())
	assert.IsType(t, &payment.StripeProcessor{}, p)
}
