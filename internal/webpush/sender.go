// Package webpush delivers encrypted Web Push messages signed with the
// server's VAPID key pair.
package webpush

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	wp "github.com/SherClockHolmes/webpush-go"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/models"
)

var ErrInvalidVAPID = errors.New("invalid VAPID configuration")

type Options struct {
	PublicKey  string
	PrivateKey string
	Subject    string
	TTL        int
	HTTPClient *http.Client
}

// Sender validates its VAPID configuration once, on first use.
type Sender struct {
	opts Options

	once    sync.Once
	initErr error
}

func NewSender(opts Options) *Sender {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.TTL <= 0 {
		opts.TTL = 86400
	}
	opts.PublicKey = strings.TrimSpace(opts.PublicKey)
	opts.PrivateKey = strings.TrimSpace(opts.PrivateKey)
	// The library adds the mailto: scheme itself.
	opts.Subject = strings.TrimPrefix(strings.TrimSpace(opts.Subject), "mailto:")
	return &Sender{opts: opts}
}

func (s *Sender) validate() error {
	s.once.Do(func() {
		pub, err := decodeKey(s.opts.PublicKey)
		if err != nil || len(pub) != 65 || pub[0] != 0x04 {
			s.initErr = fmt.Errorf("%w: public key must be an uncompressed P-256 point", ErrInvalidVAPID)
			return
		}
		priv, err := decodeKey(s.opts.PrivateKey)
		if err != nil || len(priv) != 32 {
			s.initErr = fmt.Errorf("%w: private key must be 32 bytes", ErrInvalidVAPID)
			return
		}
		if s.opts.Subject == "" {
			s.initErr = fmt.Errorf("%w: subject is required", ErrInvalidVAPID)
		}
	})
	return s.initErr
}

// Send encrypts payload for sub and posts it to the subscription endpoint.
// The push service's status code is returned even when it signals failure.
func (s *Sender) Send(ctx context.Context, sub models.PushSubscription, payload []byte) (int, error) {
	if err := s.validate(); err != nil {
		return 0, err
	}
	resp, err := wp.SendNotificationWithContext(ctx, payload, &wp.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     wp.Keys{Auth: sub.Auth, P256dh: sub.P256dh},
	}, &wp.Options{
		HTTPClient:      s.opts.HTTPClient,
		Subscriber:      s.opts.Subject,
		VAPIDPublicKey:  s.opts.PublicKey,
		VAPIDPrivateKey: s.opts.PrivateKey,
		TTL:             s.opts.TTL,
		Urgency:         wp.UrgencyNormal,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// GenerateKeys returns a fresh VAPID key pair, base64url encoded.
func GenerateKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = wp.GenerateVAPIDKeys()
	return publicKey, privateKey, err
}

func decodeKey(key string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(key); err == nil {
		return b, nil
	}
	return base64.URLEncoding.DecodeString(key)
}
