package models

import "encoding/json"

// SyncPullResponse is the body of GET /api/sync. Data is null when the user has no row.
type SyncPullResponse struct {
	Success      bool            `json:"success"`
	Data         json.RawMessage `json:"data"`
	LastSynced   *string         `json:"lastSynced"`
	CreatedAt    *string         `json:"createdAt"`
	SessionID    *string         `json:"sessionId"`
	HasCloudData bool            `json:"hasCloudData"`
}

type SyncPushRequest struct {
	UserID    string          `json:"userId"`
	Data      json.RawMessage `json:"data"`
	SessionID *string         `json:"sessionId,omitempty"`
}

type SyncPushResponse struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	LastSynced string  `json:"lastSynced"`
	SessionID  *string `json:"sessionId,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

type SubscriptionInput struct {
	Endpoint string           `json:"endpoint"`
	Keys     SubscriptionKeys `json:"keys"`
}

type SubscribeRequest struct {
	UserID       string            `json:"userId"`
	Subscription SubscriptionInput `json:"subscription"`
}

type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// SendRequest addresses one user's subscriptions, or every active one when UserID is empty.
type SendRequest struct {
	UserID string `json:"userId,omitempty"`
	Title  string `json:"title,omitempty"`
	Body   string `json:"body,omitempty"`
	URL    string `json:"url,omitempty"`
	Tag    string `json:"tag,omitempty"`
}

type SendResponse struct {
	Success     bool `json:"success"`
	Total       int  `json:"total"`
	Sent        int  `json:"sent"`
	Failed      int  `json:"failed"`
	Deactivated int  `json:"deactivated"`
}
