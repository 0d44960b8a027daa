package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/mesh-intelligence/ideas/pkg/types"
)

// timeLayout formats timestamps in human-readable output.
const timeLayout = "2006-01-02 15:04:05"

// titleWidth truncates titles in the list table.
const titleWidth = 48

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// printTable writes ideas as an aligned table.
func printTable(w io.Writer, ideas []types.Idea) error {
	if len(ideas) == 0 {
		_, err := fmt.Fprintln(w, "No ideas.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tRATING\tCREATED")
	for _, idea := range ideas {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			idea.ID, truncate(idea.Title, titleWidth), formatRating(idea.Rating), idea.CreatedAt.Local().Format(timeLayout))
	}
	return tw.Flush()
}

// printIdea writes one idea in detail.
func printIdea(w io.Writer, idea types.Idea) error {
	fmt.Fprintf(w, "ID:          %s\n", idea.ID)
	fmt.Fprintf(w, "Title:       %s\n", idea.Title)
	if idea.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", idea.Description)
	}
	fmt.Fprintf(w, "Rating:      %s\n", formatRating(idea.Rating))
	fmt.Fprintf(w, "Created:     %s\n", idea.CreatedAt.Local().Format(timeLayout))
	_, err := fmt.Fprintf(w, "Updated:     %s\n", idea.UpdatedAt.Local().Format(timeLayout))
	return err
}

func formatRating(r *int) string {
	if r == nil {
		return "-"
	}
	return strconv.Itoa(*r) + "/" + strconv.Itoa(types.MaxRating)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
