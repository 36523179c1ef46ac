package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Window is an open app client.
type Window interface {
	URL() string
	Focus(ctx context.Context) error
}

// Clients enumerates and opens app windows.
type Clients interface {
	Windows(ctx context.Context) ([]Window, error)
	OpenWindow(ctx context.Context, target string) error
}

type Outcome string

const (
	OutcomeDismissed Outcome = "dismissed"
	OutcomeFocused   Outcome = "focused"
	OutcomeOpened    Outcome = "opened"
)

type ClickEvent struct {
	Action       string
	Notification Notification
	// Close dismisses the platform notification. May be nil.
	Close func()
}

type Router struct {
	origin  *url.URL
	clients Clients
}

func NewRouter(origin string, clients Clients) (*Router, error) {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("origin %q must be absolute", origin)
	}
	return &Router{origin: u, clients: clients}, nil
}

// Click closes the notification, then focuses a window on the app origin or opens one.
func (r *Router) Click(ctx context.Context, ev ClickEvent) (Outcome, error) {
	if ev.Close != nil {
		ev.Close()
	}
	if ev.Action == ActionDismiss {
		return OutcomeDismissed, nil
	}

	windows, err := r.clients.Windows(ctx)
	if err != nil {
		return "", fmt.Errorf("list windows: %w", err)
	}
	for _, w := range windows {
		if r.sameOrigin(w.URL()) {
			if err := w.Focus(ctx); err != nil {
				return "", fmt.Errorf("focus window: %w", err)
			}
			return OutcomeFocused, nil
		}
	}

	target := ev.Notification.Data.URL
	if strings.TrimSpace(target) == "" {
		target = DefaultURL
	}
	if err := r.clients.OpenWindow(ctx, target); err != nil {
		return "", fmt.Errorf("open window: %w", err)
	}
	return OutcomeOpened, nil
}

func (r *Router) sameOrigin(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, r.origin.Scheme) && strings.EqualFold(u.Host, r.origin.Host)
}
