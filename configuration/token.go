package configuration

import "sync"

// ReloadToken is a ChangeToken fired explicitly with OnReload.
type ReloadToken struct {
	mu        sync.Mutex
	changed   bool
	nextID    uint64
	callbacks []tokenCallback
}

type tokenCallback struct {
	id uint64
	fn func()
}

// NewReloadToken returns an unfired token.
func NewReloadToken() *ReloadToken {
	return &ReloadToken{}
}

// HasChanged reports whether OnReload has been called.
func (t *ReloadToken) HasChanged() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.changed
}

// RegisterChangeCallback registers cb. If the token already fired, cb runs
// immediately on the calling goroutine.
func (t *ReloadToken) RegisterChangeCallback(cb func()) func() {
	t.mu.Lock()
	if t.changed {
		t.mu.Unlock()
		cb()
		return func() {}
	}

	t.nextID++
	id := t.nextID
	t.callbacks = append(t.callbacks, tokenCallback{id: id, fn: cb})
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, c := range t.callbacks {
			if c.id == id {
				t.callbacks = append(t.callbacks[:i], t.callbacks[i+1:]...)
				return
			}
		}
	}
}

// OnReload fires the token. Callbacks run once, in registration order,
// outside the token's lock. Later calls are no-ops.
func (t *ReloadToken) OnReload() {
	t.mu.Lock()
	if t.changed {
		t.mu.Unlock()
		return
	}
	t.changed = true
	callbacks := t.callbacks
	t.callbacks = nil
	t.mu.Unlock()

	for _, c := range callbacks {
		c.fn()
	}
}

// changeRegistration keeps a consumer subscribed across token generations.
type changeRegistration struct {
	producer func() ChangeToken
	consumer func()

	mu         sync.Mutex
	stopped    bool
	unregister func()
}

// OnChange invokes consumer every time the token returned by producer fires.
// After each fire the producer is asked for the next token and the consumer
// is subscribed to it. A producer returning nil, or returning the token that
// just fired, ends the subscription. The returned func stops it explicitly.
func OnChange(producer func() ChangeToken, consumer func()) (stop func()) {
	r := &changeRegistration{producer: producer, consumer: consumer}
	r.register(producer())
	return r.stop
}

func (r *changeRegistration) register(token ChangeToken) {
	if token == nil {
		return
	}

	unregister := token.RegisterChangeCallback(func() { r.fired(token) })

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		unregister()
		return
	}
	r.unregister = unregister
}

func (r *changeRegistration) fired(token ChangeToken) {
	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()
	if stopped {
		return
	}

	next := r.producer()
	r.consumer()

	if next == token {
		return
	}
	r.register(next)
}

func (r *changeRegistration) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.unregister != nil {
		r.unregister()
		r.unregister = nil
	}
}
