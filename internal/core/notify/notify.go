// Package notify delivers change callbacks for subscribed variables so that
// consumers do not have to poll.
package notify

import (
	"math"

	"github.com/google/uuid"

	"github.com/zeusync/telemetry/internal/core/observability/metrics"
	"github.com/zeusync/telemetry/internal/core/vars"
)

// Callback receives the variable name and its new numeric value.
type Callback func(name string, value float64)

// Subscription identifies one registered callback. The zero value is not a
// valid subscription.
type Subscription struct {
	id   uuid.UUID
	name string
}

func (s Subscription) ID() uuid.UUID { return s.id }

func (s Subscription) Name() string { return s.name }

func (s Subscription) Valid() bool { return s.id != uuid.Nil }

type watcher struct {
	id     uuid.UUID
	cb     Callback
	last   float64
	known  bool
	active bool
}

type channel struct {
	name     string
	watchers []*watcher
}

// Notifier holds the subscriptions of one entity. It is not safe for
// concurrent use; callbacks run on the caller's goroutine.
type Notifier struct {
	tolerance float64
	recorder  metrics.Recorder
	order     []string
	channels  map[string]*channel
}

func New(tolerance float64, recorder metrics.Recorder) *Notifier {
	if tolerance <= 0 {
		tolerance = vars.DefaultTolerance
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Notifier{
		tolerance: tolerance,
		recorder:  recorder,
		channels:  make(map[string]*channel),
	}
}

// Subscribe registers cb for name. The first sweep afterwards always
// delivers the current value to it.
func (n *Notifier) Subscribe(name string, cb Callback) Subscription {
	ch, ok := n.channels[name]
	if !ok {
		ch = &channel{name: name}
		n.channels[name] = ch
		n.order = append(n.order, name)
	}
	w := &watcher{id: uuid.New(), cb: cb, active: true}
	ch.watchers = append(ch.watchers, w)
	return Subscription{id: w.id, name: name}
}

// Unsubscribe removes the callback. Removing an unknown or already removed
// subscription is a no-op; the result reports whether anything was removed.
func (n *Notifier) Unsubscribe(sub Subscription) bool {
	ch, ok := n.channels[sub.name]
	if !ok {
		return false
	}
	for i, w := range ch.watchers {
		if w.id != sub.id {
			continue
		}
		w.active = false
		ch.watchers = append(ch.watchers[:i:i], ch.watchers[i+1:]...)
		if len(ch.watchers) == 0 {
			n.drop(sub.name)
		}
		return true
	}
	return false
}

func (n *Notifier) drop(name string) {
	delete(n.channels, name)
	for i, o := range n.order {
		if o == name {
			n.order = append(n.order[:i:i], n.order[i+1:]...)
			return
		}
	}
}

// Sweep queries every subscribed name once and fires the callbacks whose
// last delivered value differs from the current one. Names and callbacks
// added by a callback are picked up by the next sweep; callbacks removed
// during the sweep are not called. It returns the number of callbacks fired.
func (n *Notifier) Sweep(q vars.Querier) int {
	fired := 0
	names := append([]string(nil), n.order...)
	for _, name := range names {
		ch, ok := n.channels[name]
		if !ok {
			continue
		}
		value, ok := q.Query(name).Float()
		if !ok {
			value = math.NaN()
		}
		watchers := append([]*watcher(nil), ch.watchers...)
		for _, w := range watchers {
			if !w.active {
				continue
			}
			if w.known && vars.Approximately(w.last, value, n.tolerance) {
				continue
			}
			w.last, w.known = value, true
			w.cb(name, value)
			n.recorder.Notification()
			fired++
		}
	}
	return fired
}

// Reset forgets every delivered value so the next sweep fires all
// callbacks again.
func (n *Notifier) Reset() {
	for _, ch := range n.channels {
		for _, w := range ch.watchers {
			w.known = false
		}
	}
}

// Names returns the subscribed names in first-subscription order.
func (n *Notifier) Names() []string {
	return append([]string(nil), n.order...)
}

func (n *Notifier) Len() int {
	total := 0
	for _, ch := range n.channels {
		total += len(ch.watchers)
	}
	return total
}
