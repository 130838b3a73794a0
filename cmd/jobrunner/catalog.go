package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func specsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "specs",
		Short: "list published specs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := newRunner(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = srv.Shutdown(cmd.Context()) }()
			summaries, err := srv.Specs(cmd.Context())
			if err != nil {
				return err
			}
			writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tNAME\tDESCRIPTION")
			for _, summary := range summaries {
				fmt.Fprintf(writer, "%s\t%s\t%s\n", summary.ID, summary.Name, summary.Description)
			}
			return writer.Flush()
		},
	}
}

func exampleCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "example <spec>",
		Short: "print a request document whose inputs pass validation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := newRunner(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = srv.Shutdown(cmd.Context()) }()
			request, err := srv.Example(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var data []byte
			switch format {
			case "yaml":
				data, err = yaml.Marshal(request)
			case "json":
				data, err = json.MarshalIndent(request, "", "  ")
			default:
				return fmt.Errorf("unsupported format %q", format)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	return cmd
}

func validateCmd() *cobra.Command {
	flags := &requestFlags{}
	cmd := &cobra.Command{
		Use:          "validate [spec]",
		Short:        "validate a request without running it",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := newRunner(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = srv.Shutdown(cmd.Context()) }()
			request, err := flags.build(cmd.Context(), srv, firstArg(args))
			if err != nil {
				return err
			}
			valid, err := srv.Validate(cmd.Context(), request, flags.credential)
			if err != nil {
				return err
			}
			writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(writer, "spec\t%s\nowner\t%s\n", valid.Spec.ID, valid.Owner)
			for _, expected := range valid.Spec.ExpectedInputs {
				value, ok := valid.Inputs[expected.ID]
				if !ok || value == nil {
					continue
				}
				fmt.Fprintf(writer, "%s\t%s\t%s\n", expected.ID, expected.Type, value.Text())
			}
			return writer.Flush()
		},
	}
	flags.register(cmd)
	return cmd
}
