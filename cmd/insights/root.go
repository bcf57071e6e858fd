// Command insights runs the goal and metrics engines over an exported
// snapshot file, without a database.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"optileno-backend/internal/analytics"
	"optileno-backend/internal/goals"
	"optileno-backend/internal/habits"
	"optileno-backend/internal/tasks"
)

// snapshotFile is the export format read by every subcommand.
type snapshotFile struct {
	Tasks         []tasks.Task             `json:"tasks"`
	Goals         []goals.Goal             `json:"goals"`
	Habits        []habits.Habit           `json:"habits"`
	Events        []analytics.Event        `json:"events"`
	FocusSessions []analytics.FocusSession `json:"focus_sessions"`
	DeepWorkCount int                      `json:"deep_work_count"`
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "insights",
		Short:         "Goal probability and behavior metrics over a snapshot file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("file", "f", "", "snapshot JSON file (- for stdin)")
	root.PersistentFlags().String("now", "", "evaluation time in RFC3339 (default: current time)")
	_ = root.MarkPersistentFlagRequired("file")

	root.AddCommand(newAnalyzeCmd(), newMetricsCmd())
	return root
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Select the nearest active goals and score them",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, now, err := loadInputs(cmd)
			if err != nil {
				return err
			}
			maxGoals, _ := cmd.Flags().GetInt("max")

			sel := goals.SelectForAnalysis(snap.Goals, maxGoals)
			analyses, err := goals.AnalyzeAll(cmd.Context(), sel.Selected, goals.Snapshot{
				Tasks:         snap.Tasks,
				Habits:        snap.Habits,
				Events:        snap.Events,
				DeepWorkCount: snap.DeepWorkCount,
			}, now)
			if err != nil {
				return fmt.Errorf("analyze goals: %w", err)
			}
			if analyses == nil {
				analyses = []goals.Analysis{}
			}

			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"total_goals":    sel.TotalGoals,
				"is_max_reached": sel.IsMaxReached,
				"analyses":       analyses,
				"computed_at":    now,
			})
		},
	}
	cmd.Flags().Int("max", goals.DefaultMaxGoals, "maximum number of goals to analyze")
	return cmd
}

func newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Compute the behavior metrics snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, now, err := loadInputs(cmd)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), analytics.ComputeMetrics(snap.Events, snap.FocusSessions, now))
		},
	}
}

func loadInputs(cmd *cobra.Command) (snapshotFile, time.Time, error) {
	path, _ := cmd.Flags().GetString("file")
	nowFlag, _ := cmd.Flags().GetString("now")

	now := time.Now().UTC()
	if nowFlag != "" {
		t, err := time.Parse(time.RFC3339, nowFlag)
		if err != nil {
			return snapshotFile{}, time.Time{}, fmt.Errorf("invalid --now: %w", err)
		}
		now = t
	}

	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return snapshotFile{}, time.Time{}, fmt.Errorf("open snapshot: %w", err)
		}
		defer f.Close()
		r = f
	}

	var snap snapshotFile
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return snapshotFile{}, time.Time{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, now, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
