package handler

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestConn(playerID string) *WSConn {
	return &WSConn{
		conn:     nil, // no real connection for hub tests
		playerID: playerID,
		send:     make(chan []byte, 256),
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	c := newTestConn("player-1")

	hub.Register(c)
	if hub.ConnectionCount() != 1 {
		t.Errorf("expected 1 connection, got %d", hub.ConnectionCount())
	}

	hub.Unregister(c)
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestHubSubscribeUnsubscribe(t *testing.T) {
	hub := NewHub()
	c := newTestConn("player-1")
	hub.Register(c)
	defer hub.Unregister(c)

	hub.Subscribe(c, "prov-1")
	if hub.ProvinceSubscriberCount("prov-1") != 1 {
		t.Errorf("expected 1 subscriber, got %d", hub.ProvinceSubscriberCount("prov-1"))
	}

	hub.Unsubscribe(c, "prov-1")
	if hub.ProvinceSubscriberCount("prov-1") != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.ProvinceSubscriberCount("prov-1"))
	}
}

func TestHubBroadcastToProvince(t *testing.T) {
	hub := NewHub()
	c1 := newTestConn("player-1")
	c2 := newTestConn("player-2")
	c3 := newTestConn("player-3") // not subscribed

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)
	defer hub.Unregister(c1)
	defer hub.Unregister(c2)
	defer hub.Unregister(c3)

	hub.Subscribe(c1, "prov-1")
	hub.Subscribe(c2, "prov-1")

	hub.BroadcastToProvince("prov-1", WSEvent{
		Type:       EventBattleReport,
		ProvinceID: "prov-1",
		Data:       map[string]bool{"victory": true},
	})

	// c1 and c2 should receive, c3 should not
	select {
	case msg := <-c1.send:
		var event WSEvent
		json.Unmarshal(msg, &event)
		if event.Type != EventBattleReport {
			t.Errorf("expected battle_report, got %s", event.Type)
		}
	case <-time.After(time.Second):
		t.Error("c1 did not receive broadcast")
	}

	select {
	case <-c2.send:
		// ok
	case <-time.After(time.Second):
		t.Error("c2 did not receive broadcast")
	}

	select {
	case <-c3.send:
		t.Error("c3 should not have received broadcast")
	default:
		// ok
	}
}

func TestHubBroadcastToPlayer(t *testing.T) {
	hub := NewHub()
	c1 := newTestConn("player-1")
	c2 := newTestConn("player-1") // same player, two connections
	c3 := newTestConn("player-2")

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)
	defer hub.Unregister(c1)
	defer hub.Unregister(c2)
	defer hub.Unregister(c3)

	hub.BroadcastToPlayer("player-1", WSEvent{
		Type:       EventArmyReturned,
		ProvinceID: "prov-1",
		Data:       map[string]int{"troops": 1840},
	})

	// Both c1 and c2 should receive (same player), c3 should not
	for _, c := range []*WSConn{c1, c2} {
		select {
		case <-c.send:
			// ok
		case <-time.After(time.Second):
			t.Error("connection did not receive player broadcast")
		}
	}
	select {
	case <-c3.send:
		t.Error("other player should not have received broadcast")
	default:
		// ok
	}
}

func TestHubUnregisterCleansSubscriptions(t *testing.T) {
	hub := NewHub()
	c := newTestConn("player-1")
	hub.Register(c)
	hub.Subscribe(c, "prov-1")
	hub.Subscribe(c, "prov-2")

	hub.Unregister(c)

	if hub.ProvinceSubscriberCount("prov-1") != 0 || hub.ProvinceSubscriberCount("prov-2") != 0 {
		t.Error("expected subscriptions removed on unregister")
	}
}
