package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"studio/internal/usage"
)

var pricingCmd = &cobra.Command{
	Use:   "pricing",
	Short: "Print the provider price table in micro-dollars",
	RunE:  runPricing,
}

var pricingFile string

func init() {
	pricingCmd.Flags().StringVar(&pricingFile, "file", "", "Pricing JSON file (defaults to the built-in table)")

	rootCmd.AddCommand(pricingCmd)
}

func runPricing(cmd *cobra.Command, _ []string) error {
	table := usage.DefaultPricing()
	if pricingFile != "" {
		var err error
		if table, err = usage.LoadPricing(pricingFile); err != nil {
			return err
		}
	}

	entries := table.Entries()
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Provider != entries[j].Provider {
			return entries[i].Provider < entries[j].Provider
		}
		return entries[i].Model < entries[j].Model
	})

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tMODEL\tINPUT/1K\tOUTPUT/1K\tPER ITEM")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", e.Provider, e.Model, e.InputPer1K, e.OutputPer1K, e.PerItem)
	}
	d := table.Default()
	fmt.Fprintf(w, "(default)\t\t%d\t%d\t%d\n", d.InputPer1K, d.OutputPer1K, d.PerItem)
	return w.Flush()
}
