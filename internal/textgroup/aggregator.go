package textgroup

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Item is one plain-text message. Telegram clients split long pasted dreams
// into several messages that arrive back to back.
type Item struct {
	ChatID   int64
	UserID   int64
	Username string
	Text     string
}

type Group struct {
	ChatID   int64
	UserID   int64
	Username string
	Parts    []string
}

// Text joins the parts in arrival order.
func (g Group) Text() string {
	return strings.Join(g.Parts, "\n")
}

type Options struct {
	Debounce time.Duration
	OnFlush  func(Group)
}

type Aggregator struct {
	mu       sync.Mutex
	debounce time.Duration
	onFlush  func(Group)
	groups   map[string]*pendingGroup
}

type pendingGroup struct {
	group Group
	timer *time.Timer
}

func New(opts Options) *Aggregator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 1200 * time.Millisecond
	}

	return &Aggregator{
		debounce: debounce,
		onFlush:  opts.OnFlush,
		groups:   make(map[string]*pendingGroup),
	}
}

// Add queues the text and restarts the user's flush timer.
func (a *Aggregator) Add(item Item) {
	text := strings.TrimSpace(item.Text)
	if text == "" {
		return
	}

	key := makeKey(item.ChatID, item.UserID)

	a.mu.Lock()
	defer a.mu.Unlock()

	pg, ok := a.groups[key]
	if !ok {
		pg = &pendingGroup{
			group: Group{
				ChatID:   item.ChatID,
				UserID:   item.UserID,
				Username: item.Username,
			},
		}
		a.groups[key] = pg
	}
	pg.group.Parts = append(pg.group.Parts, text)

	if pg.timer != nil {
		pg.timer.Stop()
	}
	pg.timer = time.AfterFunc(a.debounce, func() {
		a.flush(key)
	})
}

// Pending reports how many groups are waiting for their timer.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.groups)
}

// FlushAll delivers every pending group now. Used on shutdown.
func (a *Aggregator) FlushAll() {
	a.mu.Lock()
	keys := make([]string, 0, len(a.groups))
	for key, pg := range a.groups {
		if pg.timer != nil {
			pg.timer.Stop()
		}
		keys = append(keys, key)
	}
	a.mu.Unlock()

	for _, key := range keys {
		a.flush(key)
	}
}

func (a *Aggregator) flush(key string) {
	a.mu.Lock()
	pg, ok := a.groups[key]
	if !ok {
		a.mu.Unlock()
		return
	}
	delete(a.groups, key)
	group := pg.group
	onFlush := a.onFlush
	a.mu.Unlock()

	if onFlush != nil {
		onFlush(group)
	}
}

func makeKey(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}
