package bus

import (
	"testing"
)

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	b := New()

	var order []int
	b.Subscribe(TopicPrefill, func(Event) { order = append(order, 1) })
	b.Subscribe(TopicPrefill, func(Event) { order = append(order, 2) })

	b.Publish(Event{Topic: TopicPrefill})

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("Expected delivery order [1 2], got %v", order)
	}
}

func TestTopicsIsolated(t *testing.T) {
	b := New()

	popupSeen := false
	b.Subscribe(TopicPopup, func(Event) { popupSeen = true })

	b.Publish(Event{Topic: TopicUndo})

	if popupSeen {
		t.Error("Undo publish leaked to popup subscriber")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()

	calls := 0
	unsubscribe := b.Subscribe(TopicUndo, func(Event) { calls++ })

	b.Publish(Event{Topic: TopicUndo})
	unsubscribe()
	unsubscribe() // harmless twice
	b.Publish(Event{Topic: TopicUndo})

	if calls != 1 {
		t.Errorf("Expected 1 delivery, got %d", calls)
	}
	if b.SubscriberCount(TopicUndo) != 0 {
		t.Errorf("Expected 0 subscribers, got %d", b.SubscriberCount(TopicUndo))
	}
}

func TestPanickingSubscriberDoesNotBlockOthers(t *testing.T) {
	b := New()

	b.Subscribe(TopicPrefill, func(Event) { panic("subscriber boom") })
	delivered := false
	b.Subscribe(TopicPrefill, func(Event) { delivered = true })

	b.Publish(Event{Topic: TopicPrefill})

	if !delivered {
		t.Error("Expected delivery to continue past a panicking subscriber")
	}
}

func TestNilHandlerIgnored(t *testing.T) {
	b := New()

	unsubscribe := b.Subscribe(TopicPopup, nil)
	unsubscribe()

	if b.SubscriberCount(TopicPopup) != 0 {
		t.Errorf("Expected nil handler not registered, got %d", b.SubscriberCount(TopicPopup))
	}
}

func TestEventPayloadForwarded(t *testing.T) {
	b := New()

	var got Event
	b.Subscribe(TopicUndo, func(ev Event) { got = ev })

	b.Publish(Event{Topic: TopicUndo, CorrelationID: "corr-9", Payload: map[string]string{"id": "corr-9"}})

	if got.CorrelationID != "corr-9" {
		t.Errorf("Expected correlation id forwarded, got %q", got.CorrelationID)
	}
	payload, ok := got.Payload.(map[string]string)
	if !ok || payload["id"] != "corr-9" {
		t.Errorf("Expected payload forwarded, got %v", got.Payload)
	}
}
