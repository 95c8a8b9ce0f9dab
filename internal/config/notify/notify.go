// Package notify provides change notification for configuration stores.
//
// The notify package implements an observer pattern that allows components
// to subscribe to configuration changes and receive callbacks when
// variables are set, removed, or when a whole store is reloaded.
package notify

import (
	"sync"
)

// ChangeType represents the type of configuration change.
type ChangeType int

const (
	// ChangeSet indicates a variable was created or overwritten.
	ChangeSet ChangeType = iota

	// ChangeDelete indicates a variable was removed.
	ChangeDelete

	// ChangeReset indicates every section was cleared.
	ChangeReset

	// ChangeReload indicates the entire store was replaced from a file.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeDelete:
		return "delete"
	case ChangeReset:
		return "reset"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change represents a configuration change event.
type Change struct {
	// Section is the section holding the variable ("" is the default
	// section). Empty for reset and reload events.
	Section string

	// Variable is the changed variable. Empty for reset and reload events.
	Variable string

	// Type is the type of change.
	Type ChangeType

	// OldValue is the previous value, empty if the variable was new.
	OldValue string

	// NewValue is the new value, empty for deletes.
	NewValue string

	// Source identifies where the change came from (a file path, "set").
	Source string
}

// Global reports whether the change affects the whole store.
func (c Change) Global() bool {
	return c.Type == ChangeReset || c.Type == ChangeReload
}

// Observer is called when configuration changes occur.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

type entry struct {
	id       uint64
	section  string
	scoped   bool
	observer Observer
}

// Notifier manages configuration change subscriptions.
// Observers are called in subscription order.
type Notifier struct {
	mu sync.RWMutex

	entries []entry
	nextID  uint64

	// Whether to notify synchronously or asynchronously
	async  bool
	buffer chan Change
	done   chan struct{}
	wg     sync.WaitGroup

	closed bool
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAsync enables asynchronous notification delivery.
func WithAsync(bufferSize int) Option {
	return func(n *Notifier) {
		if bufferSize > 0 {
			n.async = true
			n.buffer = make(chan Change, bufferSize)
		}
	}
}

// New creates a new Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		done: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(n)
	}

	if n.async {
		n.wg.Add(1)
		go n.processAsync()
	}

	return n
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	return n.add(entry{observer: observer})
}

// SubscribeSection registers an observer for changes to one section.
// Reset and reload events are delivered to section observers as well.
func (n *Notifier) SubscribeSection(section string, observer Observer) *Subscription {
	return n.add(entry{section: section, scoped: true, observer: observer})
}

func (n *Notifier) add(e entry) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	e.id = n.nextID
	n.nextID++
	n.entries = append(n.entries, e)

	return &Subscription{id: e.id, notifier: n}
}

// Len returns the number of active subscriptions.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.entries)
}

// Notify sends a change notification to all relevant observers.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	n.mu.RUnlock()

	if n.async {
		select {
		case n.buffer <- change:
		case <-n.done:
		}
		return
	}

	n.deliverChange(change)
}

// NotifySet is a convenience method for set changes.
func (n *Notifier) NotifySet(section, variable, oldValue, newValue, source string) {
	n.Notify(Change{
		Section:  section,
		Variable: variable,
		Type:     ChangeSet,
		OldValue: oldValue,
		NewValue: newValue,
		Source:   source,
	})
}

// NotifyDelete is a convenience method for delete changes.
func (n *Notifier) NotifyDelete(section, variable, oldValue, source string) {
	n.Notify(Change{
		Section:  section,
		Variable: variable,
		Type:     ChangeDelete,
		OldValue: oldValue,
		Source:   source,
	})
}

// NotifyReset is a convenience method for reset events.
func (n *Notifier) NotifyReset(source string) {
	n.Notify(Change{Type: ChangeReset, Source: source})
}

// NotifyReload is a convenience method for reload events.
func (n *Notifier) NotifyReload(source string) {
	n.Notify(Change{Type: ChangeReload, Source: source})
}

// Close shuts down the notifier. It is safe to call Close multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, e := range n.entries {
		if e.id == id {
			n.entries = append(n.entries[:i:i], n.entries[i+1:]...)
			return
		}
	}
}

// deliverChange sends a change to all matching observers.
func (n *Notifier) deliverChange(change Change) {
	n.mu.RLock()
	observers := make([]Observer, 0, len(n.entries))
	for _, e := range n.entries {
		if e.scoped && !change.Global() && e.section != change.Section {
			continue
		}
		observers = append(observers, e.observer)
	}
	n.mu.RUnlock()

	// Call observers outside the lock
	for _, obs := range observers {
		obs(change)
	}
}

// processAsync handles asynchronous notification delivery.
func (n *Notifier) processAsync() {
	defer n.wg.Done()

	for {
		select {
		case change := <-n.buffer:
			n.deliverChange(change)
		case <-n.done:
			// Drain remaining buffered changes
			for {
				select {
				case change := <-n.buffer:
					n.deliverChange(change)
				default:
					return
				}
			}
		}
	}
}

// Batch collects multiple changes and delivers them as a group.
type Batch struct {
	notifier *Notifier
	changes  []Change
	mu       sync.Mutex
}

// NewBatch creates a new batch for collecting changes.
func (n *Notifier) NewBatch() *Batch {
	return &Batch{notifier: n}
}

// Add adds a change to the batch.
func (b *Batch) Add(change Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changes = append(b.changes, change)
}

// Set adds a set change to the batch.
func (b *Batch) Set(section, variable, oldValue, newValue, source string) {
	b.Add(Change{
		Section:  section,
		Variable: variable,
		Type:     ChangeSet,
		OldValue: oldValue,
		NewValue: newValue,
		Source:   source,
	})
}

// Commit sends all batched changes to observers.
func (b *Batch) Commit() {
	b.mu.Lock()
	changes := b.changes
	b.changes = nil
	b.mu.Unlock()

	for _, change := range changes {
		b.notifier.Notify(change)
	}
}

// Discard clears the batch without sending notifications.
func (b *Batch) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changes = nil
}

// Len returns the number of pending changes.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.changes)
}
