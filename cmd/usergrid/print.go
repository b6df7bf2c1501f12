package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/kittclouds/usergrid/pkg/coordinator"
	"github.com/kittclouds/usergrid/pkg/records"
)

var (
	savedColor     = color.New(color.FgGreen).SprintFunc()
	simulatedColor = color.New(color.FgYellow, color.Bold).SprintFunc()
	failedColor    = color.New(color.FgRed).SprintFunc()
	mutedColor     = color.New(color.Faint).SprintFunc()
	draftColor     = color.New(color.FgCyan).SprintFunc()
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRecords writes a table. Rows with an open draft are marked.
func printRecords(w io.Writer, list []records.Record, drafts map[int]records.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tUSERNAME\tEMAIL\t")
	for _, r := range list {
		mark := ""
		if _, ok := drafts[r.ID]; ok {
			mark = draftColor("draft")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Username, r.Email, mark)
	}
	return tw.Flush()
}

func colorOutcome(o coordinator.Outcome) string {
	switch o {
	case coordinator.OutcomeSaved:
		return savedColor(string(o))
	case coordinator.OutcomeSimulated:
		return simulatedColor(string(o))
	case coordinator.OutcomeFailed:
		return failedColor(string(o))
	default:
		return mutedColor(string(o))
	}
}
