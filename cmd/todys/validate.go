package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/todys/internal/validation"
)

var errRejected = errors.New("one or more files rejected")

func newValidateCmd() *cobra.Command {
	var (
		maxSize    int64
		extensions []string
	)
	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Run the upload validation pipeline against local files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			allow := validation.DefaultAllowList
			if len(extensions) > 0 {
				allow = allow.Restrict(extensions)
			}
			v := validation.New(maxSize, allow)
			out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(out, "FILE\tRESULT\tDETAIL")
			rejected := false
			for _, path := range args {
				verdict, err := validateFile(v, path)
				switch {
				case err != nil:
					rejected = true
					fmt.Fprintf(out, "%s\terror\t%v\n", path, err)
				case verdict.Accepted():
					fmt.Fprintf(out, "%s\taccepted\t%s\n", path, verdict.MediaType())
				default:
					rejected = true
					fmt.Fprintf(out, "%s\t%s\t%s\n", path, verdict.Reason(), verdict.Reason().Message())
				}
			}
			if err := out.Flush(); err != nil {
				return err
			}
			if rejected {
				return errRejected
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&maxSize, "max-size", validation.DefaultMaxSize, "Maximum accepted size in bytes")
	cmd.Flags().StringSliceVar(&extensions, "allow", nil, "Restrict accepted extensions (e.g. pdf,txt)")
	return cmd
}

func validateFile(v *validation.Validator, path string) (validation.Verdict, error) {
	f, err := os.Open(path)
	if err != nil {
		return validation.Verdict{}, err
	}
	defer f.Close()
	_, verdict, err := v.ValidateReader(f, filepath.Base(path), "")
	return verdict, err
}
