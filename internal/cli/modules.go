package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/module"
)

// InterfaceSummary is one row of `patchbay modules`.
type InterfaceSummary struct {
	Name        string          `json:"name"`
	ModuleID    string          `json:"module_id"`
	Source      ir.ModuleSource `json:"source"`
	SystemClass string          `json:"system_class,omitempty"`
	Endpoints   []string        `json:"endpoints"`
	Implemented bool            `json:"implemented"`
}

// NewModulesCommand creates the modules command.
func NewModulesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "modules <modules-dir>",
		Short:         "List the interfaces a modules directory defines",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModules(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.ThirdParty, "third-party", false, "treat the directory as third-party modules")

	return cmd
}

func runModules(opts *ValidateOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	registry := module.NewRegistry()
	defer registry.Close()

	systemDir, thirdPartyDir := dir, ""
	if opts.ThirdParty {
		systemDir, thirdPartyDir = "", dir
	}
	for _, err := range registry.LoadDirs(systemDir, thirdPartyDir) {
		formatter.VerboseLog("skipped: %v", err)
	}
	if registry.Len() == 0 {
		return formatter.Fail(ExitCommandError, module.ErrCodeGeneric, "no interfaces loaded from "+dir, nil)
	}

	summaries := make([]InterfaceSummary, 0, registry.Len())
	for _, def := range registry.Interfaces() {
		s := InterfaceSummary{
			Name:        def.Info.Name,
			ModuleID:    def.ModuleID.String(),
			Source:      def.Source,
			SystemClass: def.Info.SystemClass,
			Endpoints:   make([]string, 0, len(def.Endpoints)),
			Implemented: def.HasImplementation(),
		}
		for _, ep := range def.Endpoints {
			s.Endpoints = append(s.Endpoints, ep.Name)
		}
		summaries = append(summaries, s)
	}

	return formatter.Success(summaries, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tMODULE ID\tSOURCE\tCLASS\tENDPOINTS")
		for _, s := range summaries {
			class := s.SystemClass
			if class == "" {
				class = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", s.Name, s.ModuleID, s.Source, class, len(s.Endpoints))
		}
		tw.Flush()
	})
}
