package services

import "sync"

// recordingBroadcaster captures broadcasts so tests can assert on the
// event stream without a socket server.
type recordingBroadcaster struct {
	mutex  sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	EventID string
	Event   string
	Payload interface{}
}

func (rb *recordingBroadcaster) Broadcast(eventID, event string, payload interface{}) {
	rb.mutex.Lock()
	defer rb.mutex.Unlock()
	rb.events = append(rb.events, recordedEvent{EventID: eventID, Event: event, Payload: payload})
}

func (rb *recordingBroadcaster) count(event string) int {
	rb.mutex.Lock()
	defer rb.mutex.Unlock()
	n := 0
	for _, e := range rb.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

func (rb *recordingBroadcaster) last(event string) (recordedEvent, bool) {
	rb.mutex.Lock()
	defer rb.mutex.Unlock()
	for i := len(rb.events) - 1; i >= 0; i-- {
		if rb.events[i].Event == event {
			return rb.events[i], true
		}
	}
	return recordedEvent{}, false
}
