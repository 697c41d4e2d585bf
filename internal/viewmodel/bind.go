package viewmodel

import (
	"context"
	"sync"

	"github.com/tbourn/go-prompt-studio/internal/session"
)

// SessionSource is the part of the session store a container reads.
type SessionSource interface {
	Current() (*session.Identity, bool)
	Subscribe(fn func(session.Snapshot)) (unsubscribe func())
}

// binding reloads a container whenever the signed-in user changes and
// clears it on sign-out. Loads run on their own goroutine; a newer identity
// cancels the older load.
type binding struct {
	mu     sync.Mutex
	user   string
	cancel context.CancelFunc
	wg     sync.WaitGroup
	unsub  func()
}

func bind(src SessionSource, load func(ctx context.Context, id session.Identity), clear func()) (stop func()) {
	b := &binding{}
	b.unsub = src.Subscribe(func(s session.Snapshot) {
		b.mu.Lock()
		defer b.mu.Unlock()
		switch {
		case s.State == session.Authenticated && s.Identity != nil:
			if s.Identity.UserID() == b.user {
				return
			}
			b.user = s.Identity.UserID()
			b.startLocked(load, *s.Identity)
		case s.State == session.Anonymous && b.user != "":
			b.user = ""
			b.stopLocked()
			clear()
		}
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.unsub()
			b.mu.Lock()
			b.stopLocked()
			b.mu.Unlock()
			b.wg.Wait()
		})
	}
}

func (b *binding) startLocked(load func(context.Context, session.Identity), id session.Identity) {
	b.stopLocked()
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer cancel()
		load(ctx, id)
	}()
}

func (b *binding) stopLocked() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}
