package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tbourn/k-kitchen/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Validate the catalog and summarize it",
	Long: `Loads CATALOG_PATH (or the embedded catalog), validates it and prints the
number of products each scenario can feature. Scenarios without a primary
product only ever produce no-op ticks.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			return err
		}
		return printCatalog(cmd, c)
	},
}

func printCatalog(cmd *cobra.Command, c *catalog.Catalog) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "products: %d  scenarios: %d  personas: %d  seed posts: %d\n\n",
		len(c.Products), len(c.Scenarios), len(c.Personas), len(c.SeedPosts))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tPRIMARY\tSECONDARY\tSTYLE")
	for _, s := range c.Scenarios {
		primary := len(c.Filter(s.Primary, nil))
		flag := ""
		if primary == 0 {
			flag = " (no-op)"
		}
		fmt.Fprintf(tw, "%s%s\t%d\t%d\t%s\n", s.Name, flag, primary, len(c.Filter(s.Secondary, nil)), s.ImageStyle)
	}
	return tw.Flush()
}
