package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"resumeStudio/internal/render"
)

func newRenderCmd() *cobra.Command {
	var (
		in       string
		out      string
		variant  int
		imageURL string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a resume document to standalone HTML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := readDocument(cmd, in)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("template") {
				doc.Template = variant
			}
			html, err := render.MustNew(render.NewRegistry()).Render(doc, render.Options{ImageURL: imageURL})
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}
			return writeOutput(cmd, out, html)
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "-", "document JSON path")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output path")
	cmd.Flags().IntVarP(&variant, "template", "t", 0, "override template id")
	cmd.Flags().StringVar(&imageURL, "image-url", "", "profile image url or data uri")
	return cmd
}

func newTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List available templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(render.Variants())
		},
	}
}
