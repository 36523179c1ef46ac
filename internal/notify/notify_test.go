package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

func TestReceiveJSONPayload(t *testing.T) {
	n := Receive([]byte(`{"title":"Nuevo reto","body":"Adivina el Yo-kai","url":"/daily","tag":"daily-42","timestamp":1760000000000}`), fixedNow)

	assert.Equal(t, "Nuevo reto", n.Title)
	assert.Equal(t, "Adivina el Yo-kai", n.Body)
	assert.Equal(t, "daily-42", n.Tag)
	assert.Equal(t, "/daily", n.Data.URL)
	assert.Equal(t, time.UnixMilli(1760000000000), n.Timestamp)
	require.Len(t, n.Actions, 2)
	assert.Equal(t, ActionPlay, n.Actions[0].Action)
	assert.Equal(t, ActionDismiss, n.Actions[1].Action)
}

func TestReceiveAppliesDefaults(t *testing.T) {
	n := Receive([]byte(`{}`), fixedNow)

	assert.Equal(t, DefaultTitle, n.Title)
	assert.Equal(t, DefaultBody, n.Body)
	assert.Equal(t, DefaultIcon, n.Icon)
	assert.Equal(t, DefaultTag, n.Tag)
	assert.Equal(t, DefaultURL, n.Data.URL)
	assert.Equal(t, fixedNow, n.Timestamp)
}

func TestReceiveInvalidJSONFallsBackToText(t *testing.T) {
	n := Receive([]byte("Jibanyan te espera"), fixedNow)

	assert.Equal(t, DefaultTitle, n.Title)
	assert.Equal(t, "Jibanyan te espera", n.Body)
	assert.Equal(t, DefaultTag, n.Tag)
}

type recordingDisplayer struct {
	shown []Notification
	err   error
}

func (d *recordingDisplayer) ShowNotification(_ context.Context, n Notification) error {
	d.shown = append(d.shown, n)
	return d.err
}

func TestDeliverShowsNotification(t *testing.T) {
	d := &recordingDisplayer{}
	n, err := Deliver(context.Background(), d, []byte(`{"body":"hola"}`), fixedNow)
	require.NoError(t, err)
	require.Len(t, d.shown, 1)
	assert.Equal(t, n, d.shown[0])

	d.err = errors.New("permission denied")
	_, err = Deliver(context.Background(), d, []byte(`{}`), fixedNow)
	assert.ErrorContains(t, err, "permission denied")
}
