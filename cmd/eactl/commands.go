package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/ea-backend/internal/impact/domain"
	"github.com/GoSim-25-26J-441/ea-backend/internal/impact/export"
	"github.com/GoSim-25-26J-441/ea-backend/internal/impact/service"
	"github.com/GoSim-25-26J-441/ea-backend/internal/inventory/ingest"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "eactl",
		Short:         "Offline tooling for EA inventory graph files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newValidateCmd(), newImpactCmd(), newExportDOTCmd())
	return root
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a YAML or JSON graph document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d artefacts, %d relationships\n", len(doc.Artefacts), len(doc.Relationships))
			return nil
		},
	}
}

func newImpactCmd() *cobra.Command {
	var format, outPath string

	cmd := &cobra.Command{
		Use:   "impact <file> <artefact-id>",
		Short: "Print the impact summary of an artefact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}
			res := service.AnalyzeSnapshot(args[1], doc.ToSnapshot())
			if !res.Found {
				return fmt.Errorf("artefact %q not found in %s", args[1], args[0])
			}

			out := cmd.OutOrStdout()
			if outPath != "" {
				// text has no file encoding; fall back to the extension
				name := format
				if name == "text" {
					name = strings.TrimPrefix(filepath.Ext(outPath), ".")
				}
				f, err := export.ParseFormat(name)
				if err != nil {
					return err
				}
				if err := export.WriteFile(outPath, f, res.Summary); err != nil {
					return err
				}
				fmt.Fprintf(out, "wrote %s\n", outPath)
				return nil
			}

			if format == "text" {
				printSummary(out, res.Summary)
				return nil
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			switch f {
			case export.FormatYAML:
				return export.WriteYAML(out, res.Summary)
			case export.FormatJSON:
				return export.WriteJSON(out, res.Summary)
			default:
				return fmt.Errorf("use export-dot for graphviz output")
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write json or yaml to a file instead of stdout")
	return cmd
}

func printSummary(w io.Writer, s domain.ImpactSummary) {
	fmt.Fprintf(w, "Impact of %s\n", s.RootID)
	fmt.Fprintf(w, "  affected (downstream): %d\n", s.TotalAffected)
	fmt.Fprintf(w, "  direct: %d  indirect: %d  high risk: %d\n", len(s.DirectImpact), len(s.IndirectImpact), s.HighRiskCount)

	section := func(title string, nodes []domain.ImpactNode) {
		fmt.Fprintf(w, "%s:\n", title)
		if len(nodes) == 0 {
			fmt.Fprintln(w, "  (none)")
			return
		}
		for _, n := range nodes {
			fmt.Fprintf(w, "  %-24s depth %d  %s\n", n.ArtefactID, n.Depth, n.ImpactType)
		}
	}
	section("Downstream", s.Downstream)
	section("Upstream", s.Upstream)
}

func newExportDOTCmd() *cobra.Command {
	var outPath, title string

	cmd := &cobra.Command{
		Use:   "export-dot <file> <artefact-id>",
		Short: "Render the impact subgraph of an artefact as Graphviz DOT",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}
			snap := doc.ToSnapshot()
			res := service.AnalyzeSnapshot(args[1], snap)
			if !res.Found {
				return fmt.Errorf("artefact %q not found in %s", args[1], args[0])
			}
			if title == "" {
				title = "Impact of " + args[1]
			}
			dot := export.ToDOT(snap, res.Summary, title)

			if outPath == "" {
				_, err := io.WriteString(cmd.OutOrStdout(), dot)
				return err
			}
			if err := os.WriteFile(outPath, []byte(dot), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to file instead of stdout")
	cmd.Flags().StringVar(&title, "title", "", "graph title")
	return cmd
}

func loadDocument(path string) (*ingest.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := ingest.Parse(f, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}
