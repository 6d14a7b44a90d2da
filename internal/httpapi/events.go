package httpapi

import "sync"

const subscriberBufferSize = 4

// eventHub fans snapshots out to connected event-stream clients. A slow client
// misses intermediate snapshots; every snapshot is complete, so the next one catches it up.
type eventHub struct {
	mutex       sync.Mutex
	subscribers map[chan snapshotPayload]struct{}
}

func newEventHub() *eventHub {
	return &eventHub{subscribers: make(map[chan snapshotPayload]struct{})}
}

func (hub *eventHub) subscribe() (<-chan snapshotPayload, func()) {
	channel := make(chan snapshotPayload, subscriberBufferSize)
	hub.mutex.Lock()
	hub.subscribers[channel] = struct{}{}
	hub.mutex.Unlock()
	var once sync.Once
	return channel, func() {
		once.Do(func() {
			hub.mutex.Lock()
			delete(hub.subscribers, channel)
			hub.mutex.Unlock()
		})
	}
}

func (hub *eventHub) publish(payload snapshotPayload) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	for channel := range hub.subscribers {
		select {
		case channel <- payload:
		default:
		}
	}
}

func (hub *eventHub) subscriberCount() int {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	return len(hub.subscribers)
}
