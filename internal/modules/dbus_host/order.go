package dbushost

import (
	"sort"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

// DefaultSettle is how long a call waits for lower-numbered calls from the
// same sender that the bus library may have handed to a later goroutine.
const DefaultSettle = 10 * time.Millisecond

// sequencer runs calls from one sender one at a time in message serial
// order. The bus library dispatches every method call on its own goroutine,
// so without it two calls sent back to back may reach the owner swapped.
type sequencer struct {
	settle  time.Duration
	mu      sync.Mutex
	cond    *sync.Cond
	senders map[string]*senderCalls
}

type senderCalls struct {
	pending []uint32
	running bool
}

func newSequencer(settle time.Duration) *sequencer {
	s := &sequencer{settle: settle, senders: make(map[string]*senderCalls)}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// callerOf returns the unique bus name and serial of a method call.
func callerOf(msg dbus.Message) (string, uint32) {
	v, ok := msg.Headers[dbus.FieldSender]
	if !ok {
		return "", 0
	}
	sender, _ := v.Value().(string)
	return sender, msg.Serial()
}

// do runs fn once every earlier call from sender has finished. Calls with no
// sender carry no ordering information and run straight away.
func (s *sequencer) do(sender string, serial uint32, fn func()) {
	if sender == "" {
		fn()
		return
	}

	s.mu.Lock()
	calls, ok := s.senders[sender]
	if !ok {
		calls = &senderCalls{}
		s.senders[sender] = calls
	}
	i := sort.Search(len(calls.pending), func(i int) bool { return calls.pending[i] >= serial })
	calls.pending = append(calls.pending, 0)
	copy(calls.pending[i+1:], calls.pending[i:])
	calls.pending[i] = serial
	s.mu.Unlock()

	if s.settle > 0 {
		time.Sleep(s.settle)
	}

	s.mu.Lock()
	for calls.running || calls.pending[0] != serial {
		s.cond.Wait()
	}
	calls.running = true
	calls.pending = calls.pending[1:]
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		calls.running = false
		if len(calls.pending) == 0 {
			delete(s.senders, sender)
		}
		s.cond.Broadcast()
		s.mu.Unlock()
	}()
	fn()
}
