package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"raizes/internal/domain"
	"raizes/internal/report"
)

func NewRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one report request to a PDF file",
		Long: `Render reads a report request in the /generatepdf JSON format and writes
the PDF to --out, or to Relatorio_<nome>.pdf in the current directory.

Example:
  raizes render --in maria.json --out maria.pdf`,
		Args: cobra.NoArgs,
		RunE: runRenderCmd,
	}
	cmd.Flags().StringP("in", "i", "", "Report request JSON file")
	cmd.Flags().StringP("out", "o", "", "Output PDF path")
	cmd.Flags().String("engine", "", "Report engine override (fpdf or chrome)")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func runRenderCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if engine, _ := cmd.Flags().GetString("engine"); engine != "" {
		cfg.Report.Engine = engine
	}

	in, _ := cmd.Flags().GetString("in")
	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	var req domain.ReportRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("decode request %s: %w", in, err)
	}
	if req.SubjectName == "" {
		return fmt.Errorf("decode request %s: nome is required", in)
	}

	renderer, err := report.FromConfig(cfg.Report)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = report.Filename(req.SubjectName)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := renderer.Render(req, f); err != nil {
		_ = f.Close()
		_ = os.Remove(out)
		return fmt.Errorf("render %s: %w", out, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
	return nil
}
