package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"finitefield.org/zephyr-web/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Catalog maintenance commands",
}

var catalogCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Validate a catalog file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		products, err := catalog.LoadFile(args[0])
		if err != nil {
			return err
		}
		problems := catalog.Validate(products)
		out := cmd.OutOrStdout()
		for _, p := range problems {
			fmt.Fprintln(out, p.String())
		}
		if len(problems) > 0 {
			return fmt.Errorf("%d catalog problem(s) in %s", len(problems), args[0])
		}
		fmt.Fprintf(out, "OK: %d products\n", len(products))
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogCheckCmd)
	rootCmd.AddCommand(catalogCmd)
}
