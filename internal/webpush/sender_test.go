package webpush

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mixel34p/Yo-kaidle-sub002/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func browserSubscription(t *testing.T, endpoint string) models.PushSubscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	secret := make([]byte, 16)
	_, err = rand.Read(secret)
	require.NoError(t, err)
	return models.PushSubscription{
		ID:       "sub-1",
		Endpoint: endpoint,
		P256dh:   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(secret),
	}
}

func TestSendEncryptsAndSigns(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusCreated)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "aes128gcm", r.Header.Get("Content-Encoding"))
		assert.Equal(t, "3600", r.Header.Get("TTL"))
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "vapid t="))
		w.WriteHeader(int(status.Load()))
	}))
	defer ts.Close()

	pub, priv, err := GenerateKeys()
	require.NoError(t, err)
	s := NewSender(Options{PublicKey: pub, PrivateKey: priv, Subject: "mailto:ops@yokaidle.app", TTL: 3600, HTTPClient: ts.Client()})
	sub := browserSubscription(t, ts.URL+"/push/abc")

	code, err := s.Send(context.Background(), sub, []byte(`{"title":"Yo-kaidle"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, code)

	status.Store(http.StatusGone)
	code, err = s.Send(context.Background(), sub, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusGone, code)
}

func TestSendRejectsBadVAPIDKeys(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	s := NewSender(Options{PublicKey: "short", PrivateKey: "key", Subject: "ops@yokaidle.app", HTTPClient: ts.Client()})
	sub := browserSubscription(t, ts.URL)
	for i := 0; i < 2; i++ {
		_, err := s.Send(context.Background(), sub, []byte(`{}`))
		assert.True(t, errors.Is(err, ErrInvalidVAPID))
	}
	assert.Zero(t, calls.Load())
}
