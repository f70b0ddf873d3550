package notify

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"futures_bot/internal/models"
)

type recordNotifier struct {
	mu        sync.Mutex
	msgs      []string
	positions PositionLister
}

func (r *recordNotifier) Send(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordNotifier) Sendf(format string, args ...any) { r.Send(fmt.Sprintf(format, args...)) }

func (r *recordNotifier) Attach(p PositionLister) { r.positions = p }

func (r *recordNotifier) sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

type listerFunc func() []models.Position

func (f listerFunc) Positions() []models.Position { return f() }

func TestQueue_DeliversInOrder(t *testing.T) {
	rec := &recordNotifier{}
	q := NewQueue(rec, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(ctx)
	}()

	q.Send("a")
	q.Sendf("b=%d", 2)
	assert.Eventually(t, func() bool { return len(rec.sent()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b=2"}, rec.sent())

	cancel()
	<-done
}

func TestQueue_DropsWhenFullAndDrainsOnStop(t *testing.T) {
	rec := &recordNotifier{}
	q := NewQueue(rec, 2)

	q.Send("1")
	q.Send("2")
	q.Send("3") // буфер полон, без Run никто не читает

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q.Run(ctx)

	assert.Equal(t, []string{"1", "2"}, rec.sent())
}

func TestQueue_Attach(t *testing.T) {
	rec := &recordNotifier{}
	q := NewQueue(rec, 1)
	q.Attach(listerFunc(func() []models.Position { return nil }))
	assert.NotNil(t, rec.positions)

	// Log не отвечает на /positions, Attach просто ничего не делает
	NewQueue(NewLog(), 1).Attach(listerFunc(func() []models.Position { return nil }))
}
