package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusFanOutAndUnsubscribe(t *testing.T) {
	bus := NewBus()
	var got []string
	unsubA := bus.Subscribe(TopicProgressChanged, func(ev Event) { got = append(got, "a:"+ev.Key) })
	bus.Subscribe(TopicProgressChanged, func(ev Event) { got = append(got, "b:"+ev.Key) })
	bus.Subscribe(TopicGameFinished, func(ev Event) { got = append(got, "other") })

	bus.Publish(Event{Topic: TopicProgressChanged, Key: "gameState"})
	unsubA()
	bus.Publish(Event{Topic: TopicProgressChanged, Key: "achievements"})

	assert.Equal(t, []string{"a:gameState", "b:gameState", "b:achievements"}, got)
}

func TestBusSurvivesPanickingHandler(t *testing.T) {
	bus := NewBus()
	called := false
	bus.Subscribe(TopicGameFinished, func(Event) { panic("boom") })
	bus.Subscribe(TopicGameFinished, func(Event) { called = true })

	require.NotPanics(t, func() { bus.Publish(Event{Topic: TopicGameFinished}) })
	assert.True(t, called)
}

func TestDebouncerCoalescesBurst(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	d.Trigger("gameState")
	d.Trigger("achievements")
	d.Trigger("gameState")

	select {
	case keys := <-d.C():
		assert.Equal(t, []string{"achievements", "gameState"}, keys)
	case <-time.After(time.Second):
		t.Fatal("debouncer never flushed")
	}

	select {
	case keys := <-d.C():
		t.Fatalf("unexpected second flush: %v", keys)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestDebouncerWaitsForQuietPeriod(t *testing.T) {
	d := NewDebouncer(60 * time.Millisecond)
	defer d.Stop()

	start := time.Now()
	for i := 0; i < 4; i++ {
		d.Trigger("gameState")
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case <-d.C():
		assert.GreaterOrEqual(t, time.Since(start), 120*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("debouncer never flushed")
	}
}

func TestDebouncerStopDropsPending(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	d.Trigger("gameState")
	d.Stop()
	d.Trigger("gameState")

	select {
	case keys := <-d.C():
		t.Fatalf("stopped debouncer flushed %v", keys)
	case <-time.After(80 * time.Millisecond):
	}
}
