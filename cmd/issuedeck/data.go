package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	humanize "github.com/dustin/go-humanize"
	"github.com/evanschultz/issuedeck/internal/app"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// tableCounter is implemented by backends that can count one entity table.
type tableCounter interface {
	Count(ctx context.Context, name string) (int, error)
}

func newSeedCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Replace all data with the demo dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := rt.svc.SeedDemo(cmd.Context())
			if err != nil {
				return err
			}
			writeLine(cmd.OutOrStdout(), "seeded %d projects, %d issues, %d sprints, %d rules",
				len(ds.Projects), len(ds.Issues), len(ds.Sprints), len(ds.AutomationRules))
			return nil
		},
	}
}

func newResetCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete all data, the session and dashboard layouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.svc.Reset(cmd.Context()); err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "storage reset")
			return nil
		},
	}
}

func newExportCmd(rt *runtime) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every entity table to a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd.Context(), rt.svc, outPath, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

// runExport runs the requested command flow.
func runExport(ctx context.Context, svc *app.Service, outPath string, stdout io.Writer) error {
	snap, err := svc.ExportSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot json: %w", err)
	}
	encoded = append(encoded, '\n')

	if outPath == "-" || outPath == "" {
		if _, err := stdout.Write(encoded); err != nil {
			return fmt.Errorf("write snapshot to stdout: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export output dir: %w", err)
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

func newImportCmd(rt *runtime) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace every entity table with a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := runImport(cmd.Context(), rt.svc, inPath); err != nil {
				return err
			}
			writeLine(cmd.OutOrStdout(), "imported %s", inPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot JSON file")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

// runImport runs the requested command flow.
func runImport(ctx context.Context, svc *app.Service, inPath string) error {
	content, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	var snap app.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return fmt.Errorf("decode snapshot json: %w", err)
	}
	if err := svc.ImportSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	return nil
}

func newDoctorCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Report the active backend and per-table row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			writeLine(out, "%s %s", labelStyle.Render("backend:"), rt.cfg.Database.Backend)
			writeLine(out, "%s %s", labelStyle.Render("path:"), rt.cfg.StoragePath())
			writeLine(out, "%s %t", labelStyle.Render("push:"), rt.svc.SupportsPush())

			counter, ok := rt.repo.(tableCounter)
			if !ok {
				writeLine(out, "%s", warnStyle.Render("backend cannot report table counts"))
				return nil
			}
			counts, err := countTables(cmd.Context(), counter, app.Tables)
			if err != nil {
				return err
			}
			t := newTable("TABLE", "ROWS")
			for idx, table := range app.Tables {
				t.Row(string(table), humanize.Comma(int64(counts[idx])))
			}
			writeLine(out, "%s", t.Render())
			return nil
		},
	}
}

// countTables counts every table concurrently. Results follow tables order.
func countTables(ctx context.Context, counter tableCounter, tables []app.Table) ([]int, error) {
	counts := make([]int, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for idx, table := range tables {
		g.Go(func() error {
			n, err := counter.Count(gctx, string(table))
			if err != nil {
				return fmt.Errorf("count %s: %w", table, err)
			}
			counts[idx] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}
