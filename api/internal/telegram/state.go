package telegram

import (
	"sync"
	"time"

	"gwa-helper/api/internal/course"
	"gwa-helper/api/internal/extraction"
)

const (
	debounce  = 1200 * time.Millisecond
	maxPixels = 18_000_000
)

// Предпочтение при найденных дубликатах; "ask" показывает диалог.
const (
	prefAsk    = "ask"
	prefSkip   = "skip"
	prefUpdate = "update"
	prefAdd    = "add"
)

// chatState: всё, что бот помнит о чате. Список курсов живёт только в памяти.
type chatState struct {
	mu       sync.Mutex
	courses  []course.Course
	pref     string
	pending  []course.CourseData // ждут выбора стратегии в диалоге дубликатов
	lastImg  []byte              // для "Retry"
	session  *extraction.Session
	analysis extraction.Flight
}

func newChatState() *chatState {
	return &chatState{pref: prefAsk, session: extraction.NewSession()}
}

func (r *Router) state(chatID int64) *chatState {
	v, _ := r.chats.LoadOrStore(chatID, newChatState())
	return v.(*chatState)
}

func (s *chatState) snapshot() []course.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]course.Course(nil), s.courses...)
}

// update меняет список курсов под замком целиком: чтение, расчёт и запись.
// При ошибке fn список не меняется.
func (s *chatState) update(fn func([]course.Course) ([]course.Course, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := fn(s.courses)
	if err != nil {
		return err
	}
	s.courses = list
	return nil
}

func (s *chatState) preference() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pref
}

type photoBatch struct {
	ChatID       int64
	Key          string // "grp:<mediaGroupID>" | "chat:<chatID>"
	MediaGroupID string

	mu     sync.Mutex
	images [][]byte
	timer  *time.Timer
}
