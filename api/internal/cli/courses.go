package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gwa-helper/api/internal/course"
	"gwa-helper/api/internal/courselist"
)

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show saved courses and the GWA",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := a.store.Load()
			if err != nil {
				return err
			}
			renderCourses(cmd.OutOrStdout(), list)
			return nil
		},
	}
}

func (a *app) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   `add "Title; units; grade"`,
		Short: "Add a course by hand (grade optional, - for none)",
		Example: `  gwa add "Calculus I; 3; 1.75"
  gwa add "PE 1; 2"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := courselist.ParseEntry(strings.Join(args, " "))
			if err != nil {
				return err
			}
			var added course.Course
			err = a.store.Update(func(list []course.Course) ([]course.Course, error) {
				next, c, err := courselist.Add(list, d)
				added = c
				return next, err
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.ok.Render("Added "+course.DisplayTitle(added.Title)))
			return nil
		},
	}
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <number|title>",
		Short: "Remove a course by list number or (fuzzy) title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var removed course.Course
			err := a.store.Update(func(list []course.Course) ([]course.Course, error) {
				next, c, err := courselist.Remove(list, strings.Join(args, " "))
				removed = c
				return next, err
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.ok.Render("Removed "+course.DisplayTitle(removed.Title)))
			return nil
		},
	}
}

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all courses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.store.Save(nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.ok.Render("All courses removed."))
			return nil
		},
	}
}

func (a *app) gpaCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "gpa",
		Aliases: []string{"gwa"},
		Short:   "Print the units-weighted average",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := a.store.Load()
			if err != nil {
				return err
			}
			renderGPA(cmd.OutOrStdout(), list)
			return nil
		},
	}
}
