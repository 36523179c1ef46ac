package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/logging"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/models"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/notify"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/repos"
)

var ErrPushNotConfigured = errors.New("push notifications are not configured")

// Sender delivers one encrypted push message and reports the push service's HTTP status.
type Sender interface {
	Send(ctx context.Context, sub models.PushSubscription, payload []byte) (int, error)
}

type SendResult struct {
	Total       int
	Sent        int
	Failed      int
	Deactivated int
}

type PushService struct {
	repo      *repos.PushRepo
	sender    Sender
	publicKey string
	logger    *logging.Logger
	now       func() time.Time
}

// NewPushService wires the registry to a sender. A nil sender leaves
// registration working and makes Send fail with ErrPushNotConfigured.
func NewPushService(repo *repos.PushRepo, sender Sender, publicKey string, logger *logging.Logger) *PushService {
	return &PushService{
		repo:      repo,
		sender:    sender,
		publicKey: strings.TrimSpace(publicKey),
		logger:    logger,
		now:       time.Now,
	}
}

func (s *PushService) PublicKey() (string, error) {
	if s.publicKey == "" {
		return "", ErrPushNotConfigured
	}
	return s.publicKey, nil
}

func (s *PushService) Subscribe(ctx context.Context, in models.SubscribeRequest) (*models.PushSubscription, error) {
	userID := strings.TrimSpace(in.UserID)
	endpoint := strings.TrimSpace(in.Subscription.Endpoint)
	switch {
	case userID == "":
		return nil, invalid("userId is required")
	case endpoint == "":
		return nil, invalid("subscription endpoint is required")
	case strings.TrimSpace(in.Subscription.Keys.P256dh) == "" || strings.TrimSpace(in.Subscription.Keys.Auth) == "":
		return nil, invalid("subscription keys are required")
	}
	if u, err := url.Parse(endpoint); err != nil || !u.IsAbs() || u.Host == "" {
		return nil, &ValidationError{Message: "subscription endpoint must be an absolute URL", Details: endpoint}
	}
	sub := &models.PushSubscription{
		ID:       uuid.NewString(),
		UserID:   userID,
		Endpoint: endpoint,
		P256dh:   strings.TrimSpace(in.Subscription.Keys.P256dh),
		Auth:     strings.TrimSpace(in.Subscription.Keys.Auth),
	}
	if err := s.repo.UpsertSubscription(ctx, sub); err != nil {
		return nil, backend("Failed to save subscription", err)
	}
	return sub, nil
}

// Unsubscribe marks the endpoint inactive. Unknown endpoints are not an error.
func (s *PushService) Unsubscribe(ctx context.Context, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return invalid("endpoint is required")
	}
	err := s.repo.MarkInactive(ctx, endpoint)
	if err != nil && !errors.Is(err, repos.ErrNotFound) {
		return backend("Failed to remove subscription", err)
	}
	return nil
}

// Send delivers to every active subscription of in.UserID, or of everyone
// when it is empty. Each subscriber settles independently; a 404 or 410 from
// the push service marks that subscription inactive.
func (s *PushService) Send(ctx context.Context, in models.SendRequest) (SendResult, error) {
	if s.sender == nil {
		return SendResult{}, ErrPushNotConfigured
	}
	payload, err := json.Marshal(notify.Payload{
		Title:     strings.TrimSpace(in.Title),
		Body:      strings.TrimSpace(in.Body),
		URL:       strings.TrimSpace(in.URL),
		Tag:       strings.TrimSpace(in.Tag),
		Timestamp: s.now().UnixMilli(),
	})
	if err != nil {
		return SendResult{}, err
	}
	subs, err := s.repo.ListActive(ctx, strings.TrimSpace(in.UserID))
	if err != nil {
		return SendResult{}, backend("Failed to load subscriptions", err)
	}

	type outcome struct {
		status int
		err    error
	}
	outcomes := make([]outcome, len(subs))
	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub models.PushSubscription) {
			defer wg.Done()
			status, err := s.sender.Send(ctx, sub, payload)
			outcomes[i] = outcome{status: status, err: err}
		}(i, sub)
	}
	wg.Wait()

	res := SendResult{Total: len(subs)}
	for i, o := range outcomes {
		switch {
		case o.status == http.StatusNotFound || o.status == http.StatusGone:
			res.Failed++
			if err := s.repo.MarkInactive(ctx, subs[i].Endpoint); err != nil && !errors.Is(err, repos.ErrNotFound) {
				s.logger.Warnf("[push] deactivate %s: %v", subs[i].ID, err)
				continue
			}
			res.Deactivated++
		case o.err != nil:
			res.Failed++
			s.logger.Warnf("[push] deliver to %s failed: %v", subs[i].ID, o.err)
		case o.status >= 200 && o.status < 300:
			res.Sent++
		default:
			res.Failed++
			s.logger.Warnf("[push] deliver to %s: status %d", subs[i].ID, o.status)
		}
	}
	s.logger.Infof("[push] sent %d/%d, deactivated %d", res.Sent, res.Total, res.Deactivated)
	return res, nil
}
