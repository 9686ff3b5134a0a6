package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fdctax/internal/validation"
	"fdctax/internal/validation/remote"
)

type validateOptions struct {
	server  string
	timeout time.Duration
	json    bool
}

func newValidateCmd() *cobra.Command {
	opts := &validateOptions{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a Tax File Number or Australian Business Number",
		Long: `Runs the same checksum the onboarding wizard uses. Digits may be grouped
with spaces. With --server the check is made against a running deployment.`,
	}
	cmd.PersistentFlags().StringVar(&opts.server, "server", "", "base URL of an fdctax server, e.g. http://localhost:8080")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "request timeout when --server is set")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print the result as JSON")

	cmd.AddCommand(
		newValidateKindCmd(opts, validation.KindTFN, "tfn <number>", "Check a Tax File Number"),
		newValidateKindCmd(opts, validation.KindABN, "abn <number>", "Check an Australian Business Number"),
	)
	return cmd
}

func newValidateKindCmd(opts *validateOptions, kind validation.Kind, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts, kind, strings.Join(args, " "))
		},
	}
}

func runValidate(cmd *cobra.Command, opts *validateOptions, kind validation.Kind, raw string) error {
	var checker validation.Checker = validation.NewLocalChecker(nil)
	if opts.server != "" {
		checker = remote.New(opts.server, remote.WithTimeout(opts.timeout))
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()
	res, err := checker.Check(ctx, kind, raw)
	if err != nil {
		return fmt.Errorf("check %s: %w", kind, err)
	}

	if opts.json {
		out, err := json.Marshal(struct {
			Valid   bool   `json:"valid"`
			Message string `json:"message"`
		}{res.IsValid(), res.Message})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
	}
	if !res.IsValid() {
		return ErrInvalid
	}
	return nil
}
