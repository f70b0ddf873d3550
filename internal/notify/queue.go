package notify

import (
	"context"
	"fmt"

	"futures_bot/pkg/logger"
)

// Queue отправляет сообщения из отдельной горутины: Send никогда не ждёт телеграм.
// При переполнении сообщение теряется с предупреждением в логе.
type Queue struct {
	next Notifier
	ch   chan string
}

func NewQueue(next Notifier, size int) *Queue {
	if size <= 0 {
		size = 64
	}
	return &Queue{next: next, ch: make(chan string, size)}
}

func (q *Queue) Send(msg string) {
	select {
	case q.ch <- msg:
	default:
		logger.Warn("[NOTIFY] queue full, dropped: %s", msg)
	}
}

// Attach пробрасывает источник позиций нижнему нотифайеру, если он отвечает на /positions.
func (q *Queue) Attach(p PositionLister) {
	if a, ok := q.next.(Attacher); ok {
		a.Attach(p)
	}
}

func (q *Queue) Sendf(format string, args ...any) { q.Send(fmt.Sprintf(format, args...)) }

// Run доставляет сообщения до отмены ctx, потом дописывает то, что осталось в буфере.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case msg := <-q.ch:
			q.next.Send(msg)
		case <-ctx.Done():
			q.drain()
			return
		}
	}
}

func (q *Queue) drain() {
	for {
		select {
		case msg := <-q.ch:
			q.next.Send(msg)
		default:
			return
		}
	}
}
