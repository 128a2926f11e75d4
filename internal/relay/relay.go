package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Envelope is a room event crossing instance boundaries.
type Envelope struct {
	Origin    string          `json:"origin"`
	EventID   string          `json:"eventId"`
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// LocalBroadcaster delivers an event to this instance's local room.
type LocalBroadcaster interface {
	BroadcastLocal(eventID, event string, payload json.RawMessage)
}

// Relay bridges room broadcasts between server instances through Redis
// pub/sub, so a room's members need not all land on one process. When
// no Redis is configured the relay is nil and broadcasts stay local.
type Relay struct {
	rdb        *redis.Client
	ctx        context.Context
	instanceID string
	local      LocalBroadcaster

	mutex sync.Mutex
	subs  map[string]*redis.PubSub
}

// NewRelay creates a relay around an already connected client, or nil
// when no client was configured.
func NewRelay(rdb *redis.Client, local LocalBroadcaster) *Relay {
	if rdb == nil {
		return nil
	}

	hostname, _ := os.Hostname()
	instanceID := fmt.Sprintf("%s-%d", hostname, os.Getpid())

	return &Relay{
		rdb:        rdb,
		ctx:        context.Background(),
		instanceID: instanceID,
		local:      local,
		subs:       make(map[string]*redis.PubSub),
	}
}

func channelKey(eventID string) string {
	return fmt.Sprintf("session:%s:events", eventID)
}

// Publish sends a room event to every subscribed instance.
func (r *Relay) Publish(eventID, event string, payload interface{}) {
	if r == nil {
		return
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Relay marshal error for event %s: %v", event, err)
		return
	}
	envelope := Envelope{
		Origin:    r.instanceID,
		EventID:   eventID,
		Event:     event,
		Payload:   payloadBytes,
		Timestamp: time.Now().Unix(),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return
	}

	if err := r.rdb.Publish(r.ctx, channelKey(eventID), data).Err(); err != nil {
		log.Printf("Relay publish error for event %s: %v", eventID, err)
	}
}

// Subscribe starts rebroadcasting this event's channel into the local
// room. Events originated by this instance are skipped.
func (r *Relay) Subscribe(eventID string) {
	if r == nil {
		return
	}

	r.mutex.Lock()
	if _, ok := r.subs[eventID]; ok {
		r.mutex.Unlock()
		return
	}
	sub := r.rdb.Subscribe(r.ctx, channelKey(eventID))
	r.subs[eventID] = sub
	r.mutex.Unlock()

	go func() {
		for msg := range sub.Channel() {
			var envelope Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				continue
			}
			if envelope.Origin == r.instanceID {
				continue
			}
			r.local.BroadcastLocal(envelope.EventID, envelope.Event, envelope.Payload)
		}
	}()
}

// Unsubscribe stops relaying for an event, once its room is gone.
func (r *Relay) Unsubscribe(eventID string) {
	if r == nil {
		return
	}

	r.mutex.Lock()
	sub, ok := r.subs[eventID]
	if ok {
		delete(r.subs, eventID)
	}
	r.mutex.Unlock()

	if ok {
		if err := sub.Close(); err != nil {
			log.Printf("Relay unsubscribe error for event %s: %v", eventID, err)
		}
	}
}
