// Package cli implements fdcctl, the operator tool for checking identifiers
// and inspecting the onboarding flows.
package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

// ErrInvalid is returned when a checked identifier fails validation. main maps
// it to exit status 1 without printing it again.
var ErrInvalid = errors.New("identifier is invalid")

// NewRootCmd builds the fdcctl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fdcctl",
		Short:         "FDC Tax operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newValidateCmd(), newFlowsCmd())
	return root
}
