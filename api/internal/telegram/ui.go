package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gwa-helper/api/internal/course"
	"gwa-helper/api/internal/extraction"
)

const (
	cbExtractPrefix = "ex:"
	cbMergePrefix   = "merge:"
	mergeCancel     = "cancel"
)

var actionLabels = map[extraction.Action]string{
	extraction.ActionRetry:           "Retry",
	extraction.ActionUploadDifferent: "Upload different image",
	extraction.ActionConfirm:         "Add to my courses",
	extraction.ActionClose:           "Close",
}

// outcomeKeyboard: по кнопке на каждое действие исхода, по две в ряд.
func outcomeKeyboard(actions []extraction.Action) *tgbotapi.InlineKeyboardMarkup {
	if len(actions) == 0 {
		return nil
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, a := range actions {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(actionLabels[a], cbExtractPrefix+string(a)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func duplicateKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Skip duplicates", cbMergePrefix+string(course.SkipDuplicates)),
			tgbotapi.NewInlineKeyboardButtonData("Update existing", cbMergePrefix+string(course.UpdateDuplicates)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Add anyway", cbMergePrefix+string(course.AddAnyway)),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", cbMergePrefix+mergeCancel),
		),
	)
	return &kb
}

func (r *Router) showOutcome(chatID int64, st *chatState, out extraction.Outcome) {
	text := out.Message
	if out.State == extraction.StateSuccess {
		text = formatExtracted(out, course.PreviewMerge(st.snapshot(), out.Courses, false))
	}
	r.sendWithKeyboard(chatID, text, outcomeKeyboard(out.Actions))
}

func formatExtracted(out extraction.Outcome, p course.Preview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d %s:\n", len(out.Courses), plural(len(out.Courses), "course", "courses"))
	for i, c := range out.Courses {
		fmt.Fprintf(&b, "%d. %s: %s units, grade %s\n", i+1, course.DisplayTitle(c.Title), course.FormatNumber(c.Units), course.FormatGrade(c.Grade))
	}
	if n := len(p.Duplicates); n > 0 {
		fmt.Fprintf(&b, "\n%d of them look like courses you already have.", n)
	}
	return b.String()
}

func formatDuplicates(p course.Preview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d possible %s:\n", len(p.Duplicates), plural(len(p.Duplicates), "duplicate", "duplicates"))
	for _, d := range p.Duplicates {
		fmt.Fprintf(&b, "• %q matches %q (key: %s)\n", course.DisplayTitle(d.Incoming.Title), course.DisplayTitle(d.Existing.Title), course.Normalize(d.Incoming.Title))
	}
	fmt.Fprintf(&b, "\n%d new %s will be added. What should I do with the duplicates?", p.NewCount, plural(p.NewCount, "course", "courses"))
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
