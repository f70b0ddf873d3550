package service

import "futures_bot/internal/models"

// HistoryCapacity: сколько решений помним на инструмент.
const HistoryCapacity = 100

// History: кольцевой буфер решений фиксированной ёмкости.
type History struct {
	buf   [HistoryCapacity]models.Decision
	start int
	size  int
}

func (h *History) Push(d models.Decision) {
	if h.size < HistoryCapacity {
		h.buf[(h.start+h.size)%HistoryCapacity] = d
		h.size++
		return
	}
	h.buf[h.start] = d
	h.start = (h.start + 1) % HistoryCapacity
}

func (h *History) Len() int { return h.size }

func (h *History) Last() (models.Decision, bool) {
	if h.size == 0 {
		return models.Decision{}, false
	}
	return h.buf[(h.start+h.size-1)%HistoryCapacity], true
}

// Items: от старых к новым.
func (h *History) Items() []models.Decision {
	out := make([]models.Decision, h.size)
	for i := range out {
		out[i] = h.buf[(h.start+i)%HistoryCapacity]
	}
	return out
}

// Recent: последние n решений, от старых к новым.
func (h *History) Recent(n int) []models.Decision {
	items := h.Items()
	if n < len(items) {
		items = items[len(items)-n:]
	}
	return items
}
