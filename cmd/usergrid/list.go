package main

import (
	"github.com/spf13/cobra"

	"github.com/kittclouds/usergrid/pkg/coordinator"
	"github.com/kittclouds/usergrid/pkg/editsession"
	"github.com/kittclouds/usergrid/pkg/recordfilter"
	"github.com/kittclouds/usergrid/pkg/recordstore"
)

var listFilter string

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List user records",
	Example: `  # All users
  usergrid list

  # Users whose name, username or email contain every keyword
  usergrid list --filter "api name2"

  # From a running backend
  USERGRID_BACKEND_URL=http://localhost:3000 usergrid list --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listFilter, "filter", "f", "", "Keyword filter")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, release, err := openService(ctx)
	if err != nil {
		return err
	}
	defer release()

	c := coordinator.New(service, recordstore.New(), editsession.New(), coordinator.WithLogger(logger))
	defer c.Close()
	if err := c.Load(ctx); err != nil {
		return err
	}

	list := c.Records().List()
	if listFilter != "" {
		f, err := recordfilter.Compile(listFilter)
		if err != nil {
			return err
		}
		list = f.Apply(list)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), list)
	}
	return printRecords(cmd.OutOrStdout(), list, nil)
}
