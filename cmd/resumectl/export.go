package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"resumeStudio/internal/capture"
	"resumeStudio/internal/config"
	"resumeStudio/internal/errcode"
	"resumeStudio/internal/pdf"
	"resumeStudio/internal/render"
	"resumeStudio/internal/resume"
	"resumeStudio/internal/store"
)

func newExportCmd(root *rootOptions) *cobra.Command {
	var (
		in      string
		out     string
		variant int
		flags   engineFlags
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print a resume document to an A4 PDF with a headless browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := readDocument(cmd, in)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("template") {
				doc.Template = variant
			}
			engine, cfg, err := flags.newEngine()
			if err != nil {
				return err
			}
			result, err := exportDocument(cmd.Context(), doc, engine, cfg, root.logger(cmd))
			if err != nil {
				return describeExportError(err)
			}
			if out == "" {
				out = result.Filename
			}
			return writeOutput(cmd, out, result.Data)
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "-", "document JSON path")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path, defaults to <Name>_Resume.pdf")
	cmd.Flags().IntVarP(&variant, "template", "t", 0, "override template id")
	flags.register(cmd)
	return cmd
}

// exportDocument 把文档存入内存存储，再走与 API 相同的按 ID 查找并打印的路径。
func exportDocument(ctx context.Context, doc resume.Document, engine pdf.Engine, cfg config.ExportConfig, logger *slog.Logger) (*pdf.Result, error) {
	st := store.NewMemoryStore()
	rec := &resume.Record{Document: doc}
	if err := st.Set(ctx, rec); err != nil {
		return nil, err
	}
	renderer := render.MustNew(render.NewRegistry())
	printer := pdf.NewPrinter(engine, pdf.OptionsFromConfig(cfg), logger)
	return pdf.NewService(st, renderer, printer, nil, logger).Export(ctx, rec.ID)
}

func newCaptureCmd(root *rootOptions) *cobra.Command {
	var (
		in      string
		out     string
		variant int
		quality int
		flags   engineFlags
	)
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Screenshot the rendered preview into a single-page PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := readDocument(cmd, in)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("template") {
				doc.Template = variant
			}
			engine, cfg, err := flags.newEngine()
			if err != nil {
				return err
			}

			html, err := render.MustNew(render.NewRegistry()).Render(doc, render.Options{})
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}
			svc := capture.NewService(engine, quality, cfg.LoadTimeout, cfg.BrowserTimeout, root.logger(cmd))
			data, err := svc.Capture(cmd.Context(), string(html))
			if err != nil {
				return describeExportError(err)
			}
			if out == "" {
				out = pdf.Filename(doc.Data.Personal.Name)
			}
			return writeOutput(cmd, out, data)
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "-", "document JSON path")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path, defaults to <Name>_Resume.pdf")
	cmd.Flags().IntVarP(&variant, "template", "t", 0, "override template id")
	cmd.Flags().IntVar(&quality, "quality", 90, "screenshot quality 1..100")
	flags.register(cmd)
	return cmd
}

func newHealthCmd(root *rootOptions) *cobra.Command {
	var flags engineFlags
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Print a probe document and report whether the output is readable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, cfg, err := flags.newEngine()
			if err != nil {
				return err
			}
			logger := root.logger(cmd)
			health, err := pdf.CheckPrinter(cmd.Context(), pdf.NewPrinter(engine, pdf.OptionsFromConfig(cfg), logger))
			if err != nil {
				return describeExportError(err)
			}
			logger.Info("health check finished", slog.Int("pages", health.Pages), slog.Bool("text_ok", health.TextOK))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(health)
		},
	}
	flags.register(cmd)
	return cmd
}

// describeExportError 在错误信息中附带错误码与是否可重试。
func describeExportError(err error) error {
	code := pdf.ErrorCode(err)
	return fmt.Errorf("%w (code %d, retryable %t)", err, code, errcode.Retryable(code))
}
