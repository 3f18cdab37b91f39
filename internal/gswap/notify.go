package gswap

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/websocket"

	"github.com/sentientforest/gswap-interesting-trader-bot/pkg/errs"
)

// Status is the terminal state of a submitted transaction.
type Status string

const (
	StatusProcessed Status = "PROCESSED"
	StatusFailed    Status = "FAILED"
)

// Notification is one terminal transaction outcome delivered by the channel.
type Notification struct {
	TxID             string          `json:"txId"`
	Status           Status          `json:"status"`
	SettledAmountOut string          `json:"settledAmountOut,omitempty"`
	Payload          json.RawMessage `json:"payload,omitempty"`
}

// NotificationChannel is the engine's owned collaborator wrapping the
// single multiplexed push connection named in spec.md §5/§9: explicit
// open()/close(), a typed waiter registry keyed by transaction id, and
// automatic reconnection on disconnect.
type NotificationChannel struct {
	url string

	mu      sync.Mutex
	conn    *websocket.Conn
	waiters map[string]chan Notification
	closed  bool

	done chan struct{}
}

// NewNotificationChannel builds an unopened channel against the given
// websocket URL.
func NewNotificationChannel(url string) *NotificationChannel {
	return &NotificationChannel{
		url:     url,
		waiters: make(map[string]chan Notification),
	}
}

// Open establishes the connection and starts the background read loop. It
// is safe to call Open once; subsequent calls are no-ops while connected.
func (n *NotificationChannel) Open(ctx context.Context) error {
	n.mu.Lock()
	if n.conn != nil {
		n.mu.Unlock()
		return nil
	}
	n.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, n.url, nil)
	if err != nil {
		return errs.Transport(err, "open notification channel")
	}

	n.mu.Lock()
	n.conn = conn
	n.closed = false
	n.done = make(chan struct{})
	n.mu.Unlock()

	go n.readLoop()
	return nil
}

// Close tears down the connection and releases every pending waiter with a
// CancelledError.
func (n *NotificationChannel) Close() error {
	n.mu.Lock()
	if n.conn == nil || n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	conn := n.conn
	waiters := n.waiters
	n.waiters = make(map[string]chan Notification)
	n.conn = nil
	n.mu.Unlock()

	for txID, ch := range waiters {
		log.Debug("notification channel closing, releasing waiter", "txId", txID)
		close(ch)
	}
	return conn.Close()
}

func (n *NotificationChannel) readLoop() {
	for {
		n.mu.Lock()
		conn := n.conn
		closed := n.closed
		n.mu.Unlock()
		if conn == nil || closed {
			return
		}

		var note Notification
		if err := conn.ReadJSON(&note); err != nil {
			log.Warn("notification channel read failed, reconnecting", "err", err)
			n.reconnect()
			continue
		}
		n.dispatch(note)
	}
}

func (n *NotificationChannel) reconnect() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	if n.conn != nil {
		n.conn.Close()
		n.conn = nil
	}
	n.mu.Unlock()

	backoff := time.Second
	for {
		n.mu.Lock()
		closed := n.closed
		n.mu.Unlock()
		if closed {
			return
		}

		conn, _, err := websocket.DefaultDialer.Dial(n.url, nil)
		if err == nil {
			n.mu.Lock()
			n.conn = conn
			n.mu.Unlock()
			return
		}
		log.Warn("notification channel reconnect failed", "err", err, "retryIn", backoff)
		time.Sleep(backoff)
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (n *NotificationChannel) dispatch(note Notification) {
	n.mu.Lock()
	ch, ok := n.waiters[note.TxID]
	if ok {
		delete(n.waiters, note.TxID)
	}
	n.mu.Unlock()

	if !ok {
		log.Debug("notification for unregistered tx, discarding", "txId", note.TxID)
		return
	}
	ch <- note
	close(ch)
}

// Await registers a waiter for txID and blocks until its terminal
// notification arrives, the context is cancelled, or timeout elapses
// (whichever comes first). A timeout resolves as an *errs.Error of kind
// ExecutionTimeout; on-chain state remains unknown.
func (n *NotificationChannel) Await(ctx context.Context, txID string, timeout time.Duration) (Notification, error) {
	ch := make(chan Notification, 1)

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return Notification{}, errs.Cancelled("notification channel closed")
	}
	n.waiters[txID] = ch
	n.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case note, ok := <-ch:
		if !ok {
			return Notification{}, errs.Cancelled("notification channel closed while awaiting %s", txID)
		}
		return note, nil
	case <-timer.C:
		n.mu.Lock()
		delete(n.waiters, txID)
		n.mu.Unlock()
		return Notification{}, errs.ExecutionTimeout(nil, "no notification for tx %s within %s", txID, timeout)
	case <-ctx.Done():
		n.mu.Lock()
		delete(n.waiters, txID)
		n.mu.Unlock()
		return Notification{}, errs.Cancelled("await %s cancelled: %v", txID, ctx.Err())
	}
}
