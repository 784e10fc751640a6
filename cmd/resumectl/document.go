package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"resumeStudio/internal/config"
	"resumeStudio/internal/pdf"
	"resumeStudio/internal/resume"
)

// readDocument 读取文档 JSON，路径为 "-" 时读标准输入。缺省字段取默认文档的值。
func readDocument(cmd *cobra.Command, path string) (resume.Document, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return resume.Document{}, fmt.Errorf("read document: %w", err)
	}
	if err := resume.ValidateDocumentJSON(raw); err != nil {
		return resume.Document{}, err
	}

	doc := resume.NewDocument()
	if err := json.Unmarshal(raw, &doc); err != nil {
		return resume.Document{}, fmt.Errorf("decode document: %w", err)
	}
	return doc.Normalize(), nil
}

// writeOutput 写入文件，路径为 "-" 时写标准输出。
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", path, len(data))
	return nil
}

type engineFlags struct {
	engine     string
	browserBin string
	timeout    config.ExportConfig
}

func (f *engineFlags) register(cmd *cobra.Command) {
	defaults := config.DefaultExportConfig()
	cmd.Flags().StringVar(&f.engine, "engine", defaults.Engine, "browser driver: rod or chromedp")
	cmd.Flags().StringVar(&f.browserBin, "browser-bin", os.Getenv("ROD_BROWSER_BIN"), "chromium executable")
	cmd.Flags().DurationVar(&f.timeout.LoadTimeout, "load-timeout", defaults.LoadTimeout, "document load timeout")
	cmd.Flags().DurationVar(&f.timeout.ImageTimeout, "image-timeout", defaults.ImageTimeout, "image load timeout")
	cmd.Flags().DurationVar(&f.timeout.BrowserTimeout, "browser-timeout", defaults.BrowserTimeout, "overall browser timeout")
}

func (f *engineFlags) exportConfig() (config.ExportConfig, error) {
	cfg := config.DefaultExportConfig()
	cfg.Engine = f.engine
	cfg.BrowserBin = f.browserBin
	cfg.LoadTimeout = f.timeout.LoadTimeout
	cfg.ImageTimeout = f.timeout.ImageTimeout
	cfg.BrowserTimeout = f.timeout.BrowserTimeout
	if err := config.ValidateExport(cfg); err != nil {
		return config.ExportConfig{}, err
	}
	return cfg, nil
}

func (f *engineFlags) newEngine() (pdf.Engine, config.ExportConfig, error) {
	cfg, err := f.exportConfig()
	if err != nil {
		return nil, config.ExportConfig{}, err
	}
	engine, err := pdf.NewEngine(cfg)
	if err != nil {
		return nil, config.ExportConfig{}, err
	}
	return engine, cfg, nil
}
