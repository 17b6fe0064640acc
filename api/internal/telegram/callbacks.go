package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gwa-helper/api/internal/course"
	"gwa-helper/api/internal/extraction"
)

func (r *Router) handleCallback(ctx context.Context, cb tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID
	msgID := cb.Message.MessageID
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack

	switch {
	case strings.HasPrefix(cb.Data, cbExtractPrefix):
		r.dropKeyboard(cid, msgID)
		r.onExtractAction(ctx, cid, extraction.Action(strings.TrimPrefix(cb.Data, cbExtractPrefix)))
	case strings.HasPrefix(cb.Data, cbMergePrefix):
		r.dropKeyboard(cid, msgID)
		r.onMergeChoice(cid, strings.TrimPrefix(cb.Data, cbMergePrefix))
	}
}

func (r *Router) onExtractAction(ctx context.Context, cid int64, a extraction.Action) {
	st := r.state(cid)
	if out := st.session.Outcome(); !out.Offers(a) {
		r.send(cid, "This button has expired. Send a new photo.")
		return
	}

	switch a {
	case extraction.ActionRetry:
		st.mu.Lock()
		img := st.lastImg
		st.mu.Unlock()
		st.session.Reset()
		r.send(cid, "Retrying…")
		r.goBackground(func() { r.runExtraction(ctx, cid, img) })

	case extraction.ActionUploadDifferent:
		st.session.Reset()
		r.send(cid, "Send another photo of your grades.")

	case extraction.ActionConfirm:
		r.onConfirm(cid, st)

	case extraction.ActionClose:
		st.session.Reset()
		r.send(cid, "Closed.")
	}
}

// onConfirm переносит извлечённые курсы в список чата с учётом предпочтения.
func (r *Router) onConfirm(cid int64, st *chatState) {
	incoming, ok := st.session.TakeCourses()
	if !ok {
		r.send(cid, "Nothing to add. Send a photo first.")
		return
	}
	pref := st.preference()
	preview := course.PreviewMerge(st.snapshot(), incoming, false)
	if len(preview.Duplicates) > 0 && pref == prefAsk {
		st.mu.Lock()
		st.pending = incoming
		st.mu.Unlock()
		r.sendWithKeyboard(cid, formatDuplicates(preview), duplicateKeyboard())
		return
	}
	// "ask" без дубликатов: спрашивать не о чем, сливаем как skip
	strategy := course.SkipDuplicates
	if pref != prefAsk {
		s, err := course.ParseStrategy(pref)
		if err != nil {
			r.SendError(cid, err)
			return
		}
		strategy = s
	}
	r.applyMerge(cid, st, incoming, strategy)
}

func (r *Router) onMergeChoice(cid int64, choice string) {
	st := r.state(cid)
	st.mu.Lock()
	incoming := st.pending
	st.pending = nil
	st.mu.Unlock()

	if incoming == nil {
		r.send(cid, "Nothing is waiting to be merged.")
		return
	}
	if choice == mergeCancel {
		r.send(cid, "Cancelled. No courses were added.")
		return
	}
	strategy, err := course.ParseStrategy(choice)
	if err != nil {
		r.SendError(cid, err)
		return
	}
	r.applyMerge(cid, st, incoming, strategy)
}

// applyMerge сливает против текущего списка под замком: выигрывает последнее подтверждение.
func (r *Router) applyMerge(cid int64, st *chatState, incoming []course.CourseData, strategy course.Strategy) {
	st.mu.Lock()
	res := course.Merge(st.courses, incoming, course.MergeOptions{Strategy: strategy})
	st.courses = res.Apply(st.courses, course.NewID)
	list := append([]course.Course(nil), st.courses...)
	st.mu.Unlock()

	added, updated := res.Counts()
	r.Log.Info("merge applied", "chat_id", cid, "strategy", string(strategy), "added", added, "updated", updated, "duplicates", len(res.Duplicates))
	r.send(cid, res.Message+"\n"+formatGPA(list))
}
