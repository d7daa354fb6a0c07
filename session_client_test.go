package authsync_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablekeep/go-authsync"
)

func TestSessionClientFetchSuccess(t *testing.T) {
	var gotPath, gotAuth, gotRequestID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		assert.Equal(t, "u1", r.URL.Query().Get("uid"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"onboardingStatus": "completed",
			"hasPaymentMethod": true,
			"resy": {
				"email": "ada@resy.example",
				"firstName": "Ada",
				"lastName": "Lovelace",
				"paymentMethodId": "pm_123"
			}
		}`))
	}))
	defer server.Close()

	fetchedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	client := authsync.NewSessionClient(
		testConfig{endpoint: server.URL},
		authsync.WithSessionClock(func() time.Time { return fetchedAt }),
	)

	record, err := client.FetchSession(context.Background(), "u1", "tok-1")
	require.NoError(t, err)

	assert.Equal(t, "/me", gotPath)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.NotEmpty(t, gotRequestID)

	assert.Equal(t, authsync.OnboardingCompleted, record.OnboardingStatus)
	assert.True(t, record.HasPaymentMethod)
	require.NotNil(t, record.Resy)
	assert.Equal(t, "ada@resy.example", record.Resy.Email)
	assert.Equal(t, "Ada", record.Resy.FirstName)
	assert.Equal(t, "Lovelace", record.Resy.LastName)
	assert.Equal(t, "pm_123", record.Resy.PaymentMethodID)
	assert.Equal(t, fetchedAt, record.FetchedAt)
}

func TestSessionClientUnknownOnboardingStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "onboardingStatus": "phase_nine"}`))
	}))
	defer server.Close()

	client := authsync.NewSessionClient(testConfig{endpoint: server.URL})

	record, err := client.FetchSession(context.Background(), "u1", "tok-1")
	require.NoError(t, err)
	assert.Equal(t, authsync.OnboardingNotStarted, record.OnboardingStatus)
	assert.Nil(t, record.Resy)
}

func TestSessionClientUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := authsync.NewSessionClient(testConfig{endpoint: server.URL})

	record, err := client.FetchSession(context.Background(), "u1", "expired")
	require.Error(t, err)
	assert.Nil(t, record)
	assert.True(t, authsync.IsUnauthorized(err))
	assert.False(t, authsync.IsTransient(err))
}

func TestSessionClientServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := authsync.NewSessionClient(testConfig{endpoint: server.URL})

	_, err := client.FetchSession(context.Background(), "u1", "tok-1")
	require.Error(t, err)
	assert.True(t, authsync.IsTransient(err))
	assert.False(t, authsync.IsUnauthorized(err))
}

func TestSessionClientMalformedBodyIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": tr`))
	}))
	defer server.Close()

	client := authsync.NewSessionClient(testConfig{endpoint: server.URL})

	_, err := client.FetchSession(context.Background(), "u1", "tok-1")
	require.Error(t, err)
	assert.True(t, authsync.IsTransient(err))
}

func TestSessionClientUnsuccessfulPayloadIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "error": "backend unhappy"}`))
	}))
	defer server.Close()

	client := authsync.NewSessionClient(testConfig{endpoint: server.URL})

	_, err := client.FetchSession(context.Background(), "u1", "tok-1")
	require.Error(t, err)
	assert.True(t, authsync.IsTransient(err))
}

func TestSessionClientTransportErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := authsync.NewSessionClient(testConfig{endpoint: server.URL})

	_, err := client.FetchSession(context.Background(), "u1", "tok-1")
	require.Error(t, err)
	assert.True(t, authsync.IsTransient(err), "an unreachable backend must never classify as unauthorized")
}
