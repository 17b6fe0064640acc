package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gwa-helper/api/internal/course"
	"gwa-helper/api/internal/courselist"
	"gwa-helper/api/internal/ocr"
)

const helpText = `Send a photo (or an album) of your transcript and I will extract the courses.

/add Title; units; grade  add a course by hand (grade optional)
/list  show your courses and GWA
/remove <number|title>  remove a course
/clear  remove all courses
/gpa  show the weighted average
/analyze  ask the model to analyse your grades
/ask <question>  free-form question to the model
/strategy [ask|skip|update|add]  what to do with duplicates
/engine [gemini|gpt|deepseek]  pick the model provider
/cancel  drop the current extraction`

func (r *Router) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())
	st := r.state(cid)

	switch msg.Command() {
	case "start", "help":
		r.send(cid, helpText)

	case "add":
		d, err := courselist.ParseEntry(args)
		if err != nil {
			r.send(cid, "Could not add: "+err.Error()+"\nUsage: /add Calculus I; 3; 3.5")
			return
		}
		var c course.Course
		err = st.update(func(list []course.Course) ([]course.Course, error) {
			var err error
			list, c, err = courselist.Add(list, d)
			return list, err
		})
		if err != nil {
			r.send(cid, "Could not add: "+err.Error())
			return
		}
		r.send(cid, fmt.Sprintf("Added %s (%s units, grade %s).", course.DisplayTitle(c.Title), course.FormatNumber(c.Units), course.FormatGrade(c.Grade)))

	case "list":
		r.send(cid, formatCourseList(st.snapshot()))

	case "remove":
		var removed course.Course
		err := st.update(func(list []course.Course) ([]course.Course, error) {
			var err error
			list, removed, err = courselist.Remove(list, args)
			return list, err
		})
		switch {
		case errors.Is(err, courselist.ErrAmbiguous):
			r.send(cid, err.Error()+"\nUse the number from /list.")
		case err != nil:
			r.send(cid, "Not found. Use a number from /list or part of the title.")
		default:
			r.send(cid, "Removed "+course.DisplayTitle(removed.Title)+".")
		}

	case "clear":
		_ = st.update(func([]course.Course) ([]course.Course, error) { return nil, nil })
		r.send(cid, "All courses removed.")

	case "gpa":
		r.send(cid, formatGPA(st.snapshot()))

	case "analyze":
		courses := st.snapshot()
		if len(courses) == 0 {
			r.send(cid, "Add some courses first.")
			return
		}
		r.runText(ctx, cid, st, "analysis", ocr.AnalysisPrompt(courses))

	case "ask":
		if args == "" {
			r.send(cid, "Usage: /ask <question>")
			return
		}
		r.runText(ctx, cid, st, "answer", args)

	case "strategy":
		r.handleStrategy(cid, st, args)

	case "engine":
		r.handleEngineCommand(cid, args)

	case "cancel":
		st.session.Reset()
		st.mu.Lock()
		st.pending = nil
		st.mu.Unlock()
		r.send(cid, "Cancelled.")

	default:
		r.send(cid, "Unknown command. /help")
	}
}

func (r *Router) handleStrategy(cid int64, st *chatState, arg string) {
	arg = strings.ToLower(arg)
	switch arg {
	case "":
		r.send(cid, "Duplicates strategy: "+st.preference()+"\nUsage: /strategy ask|skip|update|add")
	case prefAsk, prefSkip, prefUpdate, prefAdd:
		st.mu.Lock()
		st.pref = arg
		st.mu.Unlock()
		r.send(cid, "Duplicates strategy set to "+arg+".")
	default:
		r.send(cid, "Unknown strategy. Use ask | skip | update | add")
	}
}

// handleEngineCommand переключает движок чата: /engine {gemini|gpt|deepseek}.
func (r *Router) handleEngineCommand(cid int64, arg string) {
	if arg == "" {
		cur := r.EngManager.Get(cid)
		r.send(cid, fmt.Sprintf("Current engine: %s (%s)\nAvailable: %s", cur.Name(), cur.GetModel(), strings.Join(r.Engines.Available(), " | ")))
		return
	}
	eng, err := r.Engines.GetEngine(arg)
	if err != nil {
		r.send(cid, err.Error())
		return
	}
	r.EngManager.Set(cid, eng)
	text := fmt.Sprintf("Engine: %s (%s).", eng.Name(), eng.GetModel())
	if eng.Name() == "deepseek" {
		text += "\nDeepSeek does not read images; photos will fail until you switch back."
	}
	r.send(cid, text)
}

// runText выполняет текстовый запрос в фоне; одновременно не больше одного на чат.
func (r *Router) runText(ctx context.Context, cid int64, st *chatState, what, prompt string) {
	if !st.analysis.TryStart() {
		r.send(cid, "Still working on the previous request.")
		return
	}
	eng := r.EngManager.Get(cid)
	r.send(cid, "Thinking…")
	r.goBackground(func() {
		defer st.analysis.Done()
		cctx, cancel := context.WithTimeout(ctx, r.Timeout)
		defer cancel()
		txt, err := eng.GenerateContent(cctx, prompt)
		if err != nil {
			r.Log.Error("generate failed", "chat_id", cid, "engine", eng.Name(), "err", err)
			r.send(cid, "Failed to get an "+what+". Please try again.")
			return
		}
		r.send(cid, txt)
	})
}

func formatCourseList(courses []course.Course) string {
	if len(courses) == 0 {
		return "No courses yet. Send a photo or use /add."
	}
	var b strings.Builder
	for i, c := range courses {
		fmt.Fprintf(&b, "%d. %s: %s units, grade %s\n", i+1, course.DisplayTitle(c.Title), course.FormatNumber(c.Units), course.FormatGrade(c.Grade))
	}
	b.WriteString("\n")
	b.WriteString(formatGPA(courses))
	return b.String()
}

func formatGPA(courses []course.Course) string {
	gpa, ok := course.GPA(courses)
	if !ok {
		return "GWA: N/A (no graded courses with units)"
	}
	return fmt.Sprintf("GWA: %.2f (%s units total)", gpa, course.FormatNumber(course.TotalUnits(courses)))
}
