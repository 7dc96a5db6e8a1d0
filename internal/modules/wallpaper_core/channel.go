package wallpapercore

import (
	"context"
	"errors"
	"sync"
)

// DefaultQueueSize bounds the command queue when no size is configured.
const DefaultQueueSize = 32

// ErrChannelClosed is returned when the owner goroutine is gone.
var ErrChannelClosed = errors.New("command channel closed")

// Channel carries commands from any number of acceptors to the single owner
// goroutine.
type Channel struct {
	queue     chan Command
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewChannel creates a channel with a bounded queue.
func NewChannel(size int) *Channel {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Channel{
		queue: make(chan Command, size),
		quit:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Submit enqueues cmd and waits for its reply. Waiting is bounded only by
// ctx and by the owner shutting down.
func (c *Channel) Submit(ctx context.Context, cmd Command) (Reply, error) {
	if cmd.reply == nil {
		return Reply{}, errors.New("command has no reply slot")
	}
	select {
	case <-c.done:
		return Reply{}, ErrChannelClosed
	default:
	}

	select {
	case c.queue <- cmd:
	case <-c.done:
		return Reply{}, ErrChannelClosed
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}

	select {
	case reply := <-cmd.reply:
		return reply, nil
	case <-c.done:
		select {
		case reply := <-cmd.reply:
			return reply, nil
		default:
			return Reply{}, ErrChannelClosed
		}
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Post enqueues a command without waiting. Quit never blocks: when the
// queue is full the request is flagged out of band.
func (c *Channel) Post(cmd Command) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}
	if cmd.Kind == KindQuit {
		select {
		case c.queue <- cmd:
		default:
			select {
			case c.quit <- struct{}{}:
			default:
			}
		}
		return nil
	}
	select {
	case c.queue <- cmd:
		return nil
	case <-c.done:
		return ErrChannelClosed
	}
}

// Done is closed once the owner goroutine has stopped.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// close marks the owner as gone and fails every command still queued.
func (c *Channel) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	for {
		select {
		case cmd := <-c.queue:
			cmd.respond(Reply{Err: ErrChannelClosed})
		default:
			return
		}
	}
}
