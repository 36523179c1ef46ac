// Package notify turns push payloads into system notifications and routes
// notification clicks back to an app window.
package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

const (
	ActionPlay    = "play"
	ActionDismiss = "dismiss"
)

const (
	DefaultTitle = "Yo-kaidle"
	DefaultBody  = "¡Nuevo Yo-kai disponible!"
	DefaultIcon  = "/icons/icon-192x192.png"
	DefaultBadge = "/icons/icon-72x72.png"
	DefaultTag   = "yokaidle-daily"
	DefaultURL   = "/"
)

// Payload is the JSON body carried by a push message. Every field is optional.
type Payload struct {
	Title     string `json:"title,omitempty"`
	Body      string `json:"body,omitempty"`
	Icon      string `json:"icon,omitempty"`
	Tag       string `json:"tag,omitempty"`
	URL       string `json:"url,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

type Data struct {
	URL string `json:"url"`
}

type Notification struct {
	Title              string    `json:"title"`
	Body               string    `json:"body"`
	Icon               string    `json:"icon"`
	Badge              string    `json:"badge"`
	Tag                string    `json:"tag"`
	Timestamp          time.Time `json:"timestamp"`
	Data               Data      `json:"data"`
	Actions            []Action  `json:"actions"`
	Vibrate            []int     `json:"vibrate"`
	RequireInteraction bool      `json:"requireInteraction"`
}

// Displayer shows a notification on the platform. It must not block on user interaction.
type Displayer interface {
	ShowNotification(ctx context.Context, n Notification) error
}

// Receive decodes a push body. Text that is not a JSON object becomes the body
// of a notification with the default title.
func Receive(raw []byte, now time.Time) Notification {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		p = Payload{Body: string(raw)}
	}
	return compose(p, now)
}

// Deliver decodes raw and asks d to show the result.
func Deliver(ctx context.Context, d Displayer, raw []byte, now time.Time) (Notification, error) {
	n := Receive(raw, now)
	return n, d.ShowNotification(ctx, n)
}

func compose(p Payload, now time.Time) Notification {
	ts := now
	if p.Timestamp > 0 {
		ts = time.UnixMilli(p.Timestamp)
	}
	return Notification{
		Title:     orDefault(p.Title, DefaultTitle),
		Body:      orDefault(p.Body, DefaultBody),
		Icon:      orDefault(p.Icon, DefaultIcon),
		Badge:     DefaultBadge,
		Tag:       orDefault(p.Tag, DefaultTag),
		Timestamp: ts,
		Data:      Data{URL: orDefault(p.URL, DefaultURL)},
		Actions: []Action{
			{Action: ActionPlay, Title: "Jugar", Icon: DefaultBadge},
			{Action: ActionDismiss, Title: "Cerrar"},
		},
		Vibrate: []int{200, 100, 200},
	}
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
