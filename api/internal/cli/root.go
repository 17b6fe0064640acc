// Package cli is the gwa command line: a local course list plus LLM calls
// through a running gwa-proxy.
package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"gwa-helper/api/internal/config"
	"gwa-helper/api/internal/courselist"
	"gwa-helper/api/internal/proxyclient"
)

type app struct {
	coursesFile string
	proxyURL    string
	llmName     string
	timeout     time.Duration

	store  *courselist.Store
	client *proxyclient.Client
}

// NewRootCmd builds the command tree. getenv feeds config.LoadFrom.
func NewRootCmd(getenv func(string) string) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "gwa",
		Short:         "Track courses and compute your GWA/GPA",
		Long:          "gwa keeps a local list of courses, computes the units-weighted average,\nand extracts courses from transcript photos through a gwa-proxy.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFrom(getenv)
			if err != nil {
				return err
			}
			if a.coursesFile == "" {
				a.coursesFile = cfg.Client.CoursesFile
			}
			if a.proxyURL == "" {
				a.proxyURL = cfg.Client.ProxyURL
			}
			a.store = courselist.NewStore(a.coursesFile)
			a.client = proxyclient.New(a.proxyURL, a.llmName)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.coursesFile, "file", "f", "", "path to the courses JSON file (default from GWA_COURSES_FILE)")
	root.PersistentFlags().StringVar(&a.proxyURL, "proxy", "", "gwa-proxy base URL (default from GWA_PROXY_URL)")
	root.PersistentFlags().StringVar(&a.llmName, "llm", "", "engine on the proxy: gemini | gpt | deepseek")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 3*time.Minute, "deadline for one LLM call")

	root.AddCommand(
		a.listCmd(),
		a.addCmd(),
		a.removeCmd(),
		a.clearCmd(),
		a.gpaCmd(),
		a.extractCmd(),
		a.analyzeCmd(),
		a.askCmd(),
	)
	return root
}

func (a *app) callContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.timeout)
}
