package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fdctax/internal/onboarding/flow"
)

func newFlowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flows [name]",
		Short: "List onboarding flows, or the stages of one flow",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := flow.DefaultRegistry()
			if len(args) == 0 {
				for _, name := range registry.Names() {
					f, _ := registry.Get(name)
					fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-20s %d stages\n", f.Name, f.Title, len(f.Stages))
				}
				return nil
			}
			f, err := registry.Get(args[0])
			if err != nil {
				return err
			}
			printFlow(cmd, f)
			return nil
		},
	}
}

func printFlow(cmd *cobra.Command, f *flow.Flow) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", f.Title, f.Name)
	for _, st := range f.Stages {
		var notes []string
		if st.SkipWhen != nil {
			notes = append(notes, "conditional")
		}
		if st.Completion {
			notes = append(notes, "after submit")
		}
		line := fmt.Sprintf("  %d. %s", st.ID, st.Title)
		if len(notes) > 0 {
			line += " [" + strings.Join(notes, ", ") + "]"
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
		for _, fd := range st.Fields {
			fmt.Fprintf(cmd.OutOrStdout(), "       %-30s %s\n", fd.Name, fieldFlags(fd))
		}
	}
}

func fieldFlags(fd flow.FieldDescriptor) string {
	var flags []string
	if fd.Required || fd.Accept {
		flags = append(flags, "required")
	}
	if fd.VisibleWhen != nil {
		flags = append(flags, "conditional")
	}
	if fd.Validator != "" {
		flags = append(flags, string(fd.Validator)+" checksum")
	}
	return strings.Join(flags, ", ")
}
