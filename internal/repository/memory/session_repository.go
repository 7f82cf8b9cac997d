package memory

import (
	"sync"
	"time"

	"whatsapp-orderbot-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository is the process-wide sender -> SessionState table.
// Idle senders are not stored; absence of an entry is read as StateIdle.
type SessionRepository struct {
	cache *cache.Cache

	// mu guards read-modify-write on the cache so Swap and Transition never interleave.
	mu sync.Mutex

	locksMu sync.Mutex
	locks   map[string]*senderLock
}

type senderLock struct {
	mu   sync.Mutex
	refs int
}

var _ store.SessionStore = (*SessionRepository)(nil)

// NewSessionRepository creates the table. A ttl <= 0 keeps sessions until they
// are transitioned back to idle; a positive ttl expires stale entries, which
// returns abandoned AWAITING_ORDER senders to idle.
func NewSessionRepository(ttl time.Duration) *SessionRepository {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = ttl / 2
		if cleanup < time.Minute {
			cleanup = time.Minute
		}
	}

	return &SessionRepository{
		cache: cache.New(expiration, cleanup),
		locks: make(map[string]*senderLock),
	}
}

func (r *SessionRepository) Get(senderId string) store.SessionState {
	if x, found := r.cache.Get(senderId); found {
		return x.(store.SessionState)
	}
	return store.StateIdle
}

func (r *SessionRepository) Transition(senderId string, newState store.SessionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set(senderId, newState)
}

// Swap writes newState and returns the state it replaced, atomically.
func (r *SessionRepository) Swap(senderId string, newState store.SessionState) store.SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.Get(senderId)
	r.set(senderId, newState)
	return previous
}

func (r *SessionRepository) Clear(senderId string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Delete(senderId)
}

func (r *SessionRepository) set(senderId string, state store.SessionState) {
	if state == store.StateIdle {
		r.cache.Delete(senderId)
		return
	}
	r.cache.Set(senderId, state, cache.DefaultExpiration)
}

// Lock blocks until the caller holds the sender's lock. The returned func
// releases it; lock entries are dropped once nobody holds or waits on them.
func (r *SessionRepository) Lock(senderId string) func() {
	r.locksMu.Lock()
	l, ok := r.locks[senderId]
	if !ok {
		l = &senderLock{}
		r.locks[senderId] = l
	}
	l.refs++
	r.locksMu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()

			r.locksMu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(r.locks, senderId)
			}
			r.locksMu.Unlock()
		})
	}
}

// Count reports how many senders are in a non-idle state.
func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
