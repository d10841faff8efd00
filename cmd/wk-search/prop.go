package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPropCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prop",
		Short: "Inspect and edit stored properties",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get NAME",
			Short: "Print a property value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(cmd.Context())
				if err != nil {
					return err
				}
				defer a.close()
				value, ok, err := a.properties.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("property %q is not set", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			},
		},
		&cobra.Command{
			Use:   "put NAME VALUE",
			Short: "Store a property",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(cmd.Context())
				if err != nil {
					return err
				}
				defer a.close()
				return a.properties.Put(cmd.Context(), args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "rm NAME",
			Short: "Remove a property",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(cmd.Context())
				if err != nil {
					return err
				}
				defer a.close()
				return a.properties.Remove(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "Print every property",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := newApp(cmd.Context())
				if err != nil {
					return err
				}
				defer a.close()
				props, err := a.properties.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, prop := range props {
					fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", prop.Name, prop.Value)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Remove every property",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := newApp(cmd.Context())
				if err != nil {
					return err
				}
				defer a.close()
				removed, err := a.properties.Reset(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d properties\n", removed)
				return nil
			},
		},
	)
	return cmd
}
