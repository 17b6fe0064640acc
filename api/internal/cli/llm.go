package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"gwa-helper/api/internal/course"
	"gwa-helper/api/internal/extraction"
	"gwa-helper/api/internal/ocr/types"
)

const strategyAsk = "ask"

var errCancelled = errors.New("cancelled")

func (a *app) extractCmd() *cobra.Command {
	var (
		strategy string
		mime     string
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:   "extract <image>",
		Short: "Extract courses from a transcript photo and merge them into the list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := a.callContext(cmd)
			defer cancel()

			res, callErr := a.client.ExtractCourses(ctx, types.ExtractRequest{Image: img, Mime: mime})
			out := extraction.Interpret(res, callErr)
			w := cmd.OutOrStdout()
			renderOutcome(w, out)

			switch out.State {
			case extraction.StateError:
				return fmt.Errorf("extraction failed: %s", out.Message)
			case extraction.StateSuccess:
			default:
				fmt.Fprintln(w, styles.help.Render("Nothing was added. Try a clearer photo."))
				return nil
			}

			renderExtracted(w, out.Courses)
			if dryRun {
				return nil
			}
			return a.mergeExtracted(cmd, out.Courses, strategy)
		},
	}
	cmd.Flags().StringVarP(&strategy, "strategy", "s", strategyAsk, "duplicates: ask | skip | update | add")
	cmd.Flags().StringVar(&mime, "mime", "", "image media type (sniffed when empty)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show extracted courses without saving")
	return cmd
}

func (a *app) mergeExtracted(cmd *cobra.Command, incoming []course.CourseData, pref string) error {
	w := cmd.OutOrStdout()
	existing, err := a.store.Load()
	if err != nil {
		return err
	}

	var strategy course.Strategy
	preview := course.PreviewMerge(existing, incoming, false)
	if strings.EqualFold(pref, strategyAsk) {
		if len(preview.Duplicates) > 0 {
			renderDuplicates(w, preview)
			strategy, err = askStrategy(cmd.InOrStdin(), w)
			if errors.Is(err, errCancelled) {
				fmt.Fprintln(w, styles.help.Render("Cancelled. No courses were added."))
				return nil
			}
			if err != nil {
				return err
			}
		}
	} else if strategy, err = course.ParseStrategy(pref); err != nil {
		return err
	}

	var res course.Result
	var saved []course.Course
	err = a.store.Update(func(list []course.Course) ([]course.Course, error) {
		res = course.Merge(list, incoming, course.MergeOptions{Strategy: strategy})
		saved = res.Apply(list, course.NewID)
		return saved, nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(w, styles.ok.Render(res.Message))
	renderGPA(w, saved)
	return nil
}

func askStrategy(in io.Reader, w io.Writer) (course.Strategy, error) {
	fmt.Fprint(w, "[s]kip duplicates, [u]pdate existing, [a]dd anyway, [c]ancel? ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "s", "skip":
		return course.SkipDuplicates, nil
	case "u", "update":
		return course.UpdateDuplicates, nil
	case "a", "add":
		return course.AddAnyway, nil
	default:
		return "", errCancelled
	}
}

func (a *app) analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Ask the model for an analysis of your grades",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := a.store.Load()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				return errors.New("no courses to analyze")
			}
			ctx, cancel := a.callContext(cmd)
			defer cancel()
			txt, err := a.client.Analyze(ctx, types.AnalyzeData{Courses: list})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), txt)
			return nil
		},
	}
}

func (a *app) askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Free-form question to the model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.callContext(cmd)
			defer cancel()
			txt, err := a.client.GenerateContent(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), txt)
			return nil
		},
	}
}
