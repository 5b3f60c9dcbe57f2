/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package playback

const snapshotBufferSize = 16

// Subscription receives a Snapshot after every state change.
// Slow readers miss intermediate snapshots; the latest one always wins.
type Subscription struct {
	Updates <-chan Snapshot
	Done    <-chan struct{}

	updateCh chan Snapshot
	doneCh   chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		updateCh: make(chan Snapshot, snapshotBufferSize),
		doneCh:   make(chan struct{}),
	}
	s.Updates = s.updateCh
	s.Done = s.doneCh
	return s
}

func (s *Subscription) close() {
	close(s.doneCh)
}

// send never blocks. When the buffer is full the oldest snapshot is dropped.
func (s *Subscription) send(snap Snapshot) {
	for {
		select {
		case s.updateCh <- snap:
			return
		default:
		}

		select {
		case <-s.updateCh:
		default:
		}
	}
}
