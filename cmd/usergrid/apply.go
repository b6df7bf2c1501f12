package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kittclouds/usergrid/pkg/coordinator"
	"github.com/kittclouds/usergrid/pkg/editsession"
	"github.com/kittclouds/usergrid/pkg/recordstore"
	"github.com/kittclouds/usergrid/pkg/response"
)

var applyMetrics bool

var applyCmd = &cobra.Command{
	Use:   "apply <script.yaml>",
	Short: "Run a scripted edit session",
	Long: `Run a scripted edit session and print each outcome and the final records.

Steps:
  load                     fetch every record
  edit: <id>               open a draft for one row
  editAll                  open drafts for every row (bulk mode)
  patch: {id: <id>, ...}   merge fields into an open draft
  save: <id>               save one draft
  saveAll                  save every draft
  reset                    close every draft
  discard: <id>            close one draft
  upsert: {id: <id>, ...}  add or replace a row locally`,
	Example: `  usergrid apply session.yaml
  usergrid apply session.yaml --metrics`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().BoolVar(&applyMetrics, "metrics", false, "Print save counters after the run")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	script, err := ParseScript(data)
	if err != nil {
		return err
	}

	service, release, err := openService(ctx)
	if err != nil {
		return err
	}
	defer release()

	reg := prometheus.NewRegistry()
	opts := append(cfg.CoordinatorOptions(),
		coordinator.WithLogger(logger),
		coordinator.WithMetrics(coordinator.NewMetrics(reg)),
	)
	c := coordinator.New(service, recordstore.New(), editsession.New(), opts...)
	defer c.Close()

	out := cmd.OutOrStdout()
	var progress io.Writer = out
	if jsonOutput {
		progress = nil
	}

	results, runErr := script.Run(ctx, c, progress)

	if jsonOutput {
		if err := printJSON(out, map[string]any{
			"results": results,
			"records": c.Records().List(),
			"session": response.FromSession(editsession.Session{
				Drafts:         c.Edits().Drafts(),
				BulkInProgress: c.Edits().IsBulkInProgress(),
			}),
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out)
		if err := printRecords(out, c.Records().List(), c.Edits().Drafts()); err != nil {
			return err
		}
	}

	if applyMetrics {
		if err := printCounters(out, reg); err != nil {
			return err
		}
	}
	return runErr
}

// printCounters writes every counter sample in reg, one per line.
func printCounters(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			labels := ""
			for i, lp := range m.GetLabel() {
				if i > 0 {
					labels += ","
				}
				labels += fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue())
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %g", mf.GetName(), labels, m.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, mutedColor(l))
	}
	return nil
}
