// Package bus is a small in-process retained-message pub/sub used to fan a
// resolved device configuration (config.Service) out to whatever in-process
// consumers want to observe it, without polling: a subscriber that joins
// after a retained Publish still receives the last value immediately on
// Subscribe, the same "subscribe, get the current value for free" contract
// MQTT-style retained messages give real broker clients.
//
// This is in-process only — there is no wire encoding, no network listener,
// and no broker process. hdc-go's actual device-facing wire protocol is the
// binary HDC packet format in hdc/frame and hdc/txbuf; bus only ever carries
// Go values between goroutines inside one running binary (config.Service
// publishing resolved knobs as retained messages, for any subscriber in the
// same binary to pick up).
package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"hdc-go/x/conv"
)

var defaultQLen = 3

// -----------------------------------------------------------------------------
// Tokens + Topics
// -----------------------------------------------------------------------------

// Token is one path segment of a Topic: a device id, a config key, a wildcard.
// Any comparable type works; string and the integer kinds are assumed safe
// without the runtime comparability probe T performs on everything else.
type Token any
type Topic []Token

// T builds a Topic from tokens, panicking early (via a throwaway map
// assignment) if any token's dynamic type is not comparable — better to
// panic at the call site than silently corrupt the subscription trie with an
// uncomparable key.
func T(tokens ...Token) Topic {
	for _, tok := range tokens {
		switch tok.(type) {
		case string, int, int32, int64, uint, uint32, uint64, uintptr:
			// fine
		default:
			_ = map[Token]struct{}{tok: {}}
		}
	}
	return Topic(tokens)
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

// Message is one published value. Retained marks it for replay to future
// subscribers of the same topic (see retainSetLocked/collectRetainedLocked).
// ReplyTo/ID support the request/reply helpers below.
type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
	ID       uint32
}

// CanReply reports whether a request carries a reply topic, i.e. whether
// Request (below) has already been used to populate ReplyTo.
func (m *Message) CanReply() bool { return len(m.ReplyTo) > 0 }

// genID produces a short hex correlation token from n, the bus's own
// monotonic message counter, rather than reaching for crypto/rand: reply
// topics only need to be unique among a single bus's in-flight requests,
// and an atomic counter already gives that for free with no random-source
// dependency (not one request handlers on a no-dynamic-allocation target
// want to carry). Formatted with x/conv.U32Hex, the same no-alloc hex
// writer used for numeric fields elsewhere in this codebase.
func genID(n uint32) string {
	var buf [8]byte
	return string(conv.U32Hex(buf[:], n))
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	bus   *Bus
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Trie node (shared for subscribers and retained messages)
// -----------------------------------------------------------------------------

type node struct {
	children map[Token]*node
	subs     []*Subscription
	retained *Message
}

func ensureChild(n *node, t Token) *node {
	if n.children == nil {
		n.children = make(map[Token]*node)
	}
	if n.children[t] == nil {
		n.children[t] = &node{}
	}
	return n.children[t]
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Options struct {
	QueueLen       int
	SingleWildcard Token
	MultiWildcard  Token
}

// Bus is the shared subscription trie + retained-message store. One Bus is
// created per process (cmd/hdc-hostsim and cmd/hdc-rp2 each own exactly
// one); config.Service publishes onto it through a Connection.
type Bus struct {
	mu    sync.Mutex
	root  *node
	qLen  int
	sWild Token
	mWild Token
	idCtr atomic.Uint32
}

func NewBus(queueLen int) *Bus {
	return NewBusWithOptions(Options{QueueLen: queueLen, SingleWildcard: "+", MultiWildcard: "#"})
}

func NewBusWithOptions(o Options) *Bus {
	if o.QueueLen <= 0 {
		o.QueueLen = defaultQLen
	}
	if o.SingleWildcard == nil {
		o.SingleWildcard = "+"
	}
	if o.MultiWildcard == nil {
		o.MultiWildcard = "#"
	}
	return &Bus{
		root:  &node{},
		qLen:  o.QueueLen,
		sWild: o.SingleWildcard,
		mWild: o.MultiWildcard,
	}
}

func (b *Bus) nextID() uint32 { return b.idCtr.Add(1) }

func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{
		Topic:    topic,
		Payload:  payload,
		Retained: retained,
		ID:       b.nextID(),
	}
}

func (b *Bus) addSubscription(topic Topic, sub *Subscription) {
	b.mu.Lock()
	n := b.root
	for _, t := range topic {
		n = ensureChild(n, t)
	}
	n.subs = append(n.subs, sub)

	var retained []*Message
	b.collectRetainedLocked(b.root, topic, 0, &retained)
	b.mu.Unlock()

	for _, rm := range retained {
		b.tryDeliver(sub, rm)
	}
}

// Publish delivers msg to every current subscriber whose topic matches, and
// (if Retained) updates the retained store so future subscribers see it on
// Subscribe without waiting for the next Publish.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	var subs []*Subscription
	b.collectSubscribersLocked(b.root, msg.Topic, 0, &subs)

	if msg.Retained {
		if msg.Payload == nil {
			b.retainDeleteLocked(msg.Topic)
		} else {
			b.retainSetLocked(msg)
		}
	}
	b.mu.Unlock()

	for _, sub := range subs {
		b.tryDeliver(sub, msg)
	}
}

func trySend(ch chan *Message, m *Message) bool {
	select {
	case ch <- m:
		return true
	default:
		return false
	}
}

func drainOne(ch chan *Message) {
	select {
	case <-ch:
	default:
	}
}

// tryDeliver never blocks: a slow subscriber loses its oldest queued message
// rather than stalling Publish for every other subscriber.
func (b *Bus) tryDeliver(sub *Subscription, msg *Message) {
	defer func() { _ = recover() }() // channel may be closed; best-effort delivery
	if trySend(sub.ch, msg) {
		return
	}
	drainOne(sub.ch)
	_ = trySend(sub.ch, msg)
}

// -----------------------------------------------------------------------------
// Unsubscribe + pruning
// -----------------------------------------------------------------------------

func (b *Bus) unsubscribe(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	var stack []*node
	for _, t := range topic {
		if n.children == nil {
			return
		}
		child := n.children[t]
		if child == nil {
			return
		}
		stack = append(stack, n)
		n = child
	}

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}
	b.pruneEmptyLocked(stack, topic)
}

func (b *Bus) pruneEmptyLocked(stack []*node, path []Token) {
	for i := len(path) - 1; i >= 0; i-- {
		parent := stack[i]
		key := path[i]
		child := parent.children[key]
		if child != nil && len(child.subs) == 0 && len(child.children) == 0 && child.retained == nil {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Subscriber collection (topic = concrete message topic)
// -----------------------------------------------------------------------------

func (b *Bus) collectSubscribersLocked(n *node, topic Topic, depth int, out *[]*Subscription) {
	if n == nil {
		return
	}
	if depth == len(topic) {
		*out = append(*out, n.subs...)
		if n.children != nil {
			if mw := n.children[b.mWild]; mw != nil {
				*out = append(*out, mw.subs...) // '#' matches zero additional tokens
			}
		}
		return
	}
	tok := topic[depth]
	if n.children != nil {
		if child := n.children[tok]; child != nil {
			b.collectSubscribersLocked(child, topic, depth+1, out)
		}
		if sw := n.children[b.sWild]; sw != nil {
			b.collectSubscribersLocked(sw, topic, depth+1, out)
		}
		if mw := n.children[b.mWild]; mw != nil {
			*out = append(*out, mw.subs...) // '#' matches any remainder
		}
	}
}

// -----------------------------------------------------------------------------
// Retained storage and collection (pattern = subscription topic with wildcards)
// -----------------------------------------------------------------------------

func (b *Bus) retainSetLocked(msg *Message) {
	n := b.root
	for _, t := range msg.Topic {
		n = ensureChild(n, t)
	}
	n.retained = msg
}

func (b *Bus) retainDeleteLocked(topic Topic) {
	n := b.root
	var stack []*node
	for _, t := range topic {
		if n.children == nil {
			return
		}
		child := n.children[t]
		if child == nil {
			return
		}
		stack = append(stack, n)
		n = child
	}
	n.retained = nil
	b.pruneEmptyLocked(stack, topic)
}

func (b *Bus) collectRetainedLocked(n *node, pattern Topic, depth int, out *[]*Message) {
	if n == nil {
		return
	}
	if depth == len(pattern) {
		if n.retained != nil {
			*out = append(*out, n.retained)
		}
		return
	}
	ptok := pattern[depth]
	switch ptok {
	case b.mWild:
		b.collectAllRetainedLocked(n, out) // '#' consumes the rest (incl. zero)
	case b.sWild:
		for _, child := range n.children {
			b.collectRetainedLocked(child, pattern, depth+1, out)
		}
	default:
		if child := n.children[ptok]; child != nil {
			b.collectRetainedLocked(child, pattern, depth+1, out)
		}
	}
}

func (b *Bus) collectAllRetainedLocked(n *node, out *[]*Message) {
	if n == nil {
		return
	}
	if n.retained != nil {
		*out = append(*out, n.retained)
	}
	for _, child := range n.children {
		b.collectAllRetainedLocked(child, out)
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

// Connection is one named handle onto a Bus: config.Service publishes
// through one (cmd/hdc-hostsim and cmd/hdc-rp2 each create one and pass it
// to Service.Resolve), and each subscriber holds its own.
type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string
}

func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{topic: topic, ch: make(chan *Message, c.bus.qLen), bus: c.bus, conn: c}
	c.bus.addSubscription(topic, sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub.topic, sub)
	c.mu.Lock()
	c.subs = removeSub(c.subs, sub)
	c.mu.Unlock()
	close(sub.ch)
}

func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub.topic, sub)
		close(sub.ch)
	}
}

func removeSub(list []*Subscription, target *Subscription) []*Subscription {
	for i, s := range list {
		if s == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// -----------------------------------------------------------------------------
// Request-reply helpers
// -----------------------------------------------------------------------------

// Request publishes msg, assigning it a fresh single-token ReplyTo if it
// doesn't already have one, and returns a Subscription already listening on
// that reply topic.
func (c *Connection) Request(msg *Message) *Subscription {
	if !msg.CanReply() {
		msg.ReplyTo = T(genID(c.bus.nextID()))
	}
	sub := c.Subscribe(msg.ReplyTo)
	c.Publish(msg)
	return sub
}

// RequestWait is Request plus a bounded wait for the first reply.
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	sub := c.Request(msg)
	defer c.Unsubscribe(sub)

	select {
	case m := <-sub.ch:
		if m == nil {
			return nil, errors.New("subscription closed")
		}
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reply publishes payload onto to's ReplyTo topic; a no-op if to never
// carried one (CanReply reports false).
func (c *Connection) Reply(to *Message, payload any, retained bool) {
	if !to.CanReply() {
		return
	}
	c.Publish(&Message{Topic: to.ReplyTo, Payload: payload, Retained: retained, ID: c.bus.nextID()})
}
