/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/friendsincode/slotbell/internal/clock"
	"github.com/friendsincode/slotbell/internal/db"
	"github.com/friendsincode/slotbell/internal/dispatch"
	"github.com/friendsincode/slotbell/internal/schedule"
	"github.com/friendsincode/slotbell/internal/scheduler"
	"github.com/friendsincode/slotbell/internal/slots"
)

var (
	triggerTime string
	triggerDay  int
	triggerSlot int
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Run one evaluation and print the result",
	Long: `Run the slot pipeline once, outside the minute loop, and print the
result as JSON. Without flags the current wall clock is used.

Examples:
  # Evaluate right now
  slotbell trigger

  # Evaluate Wednesday at 09:00
  slotbell trigger --time 09:00 --day 3

  # Evaluate the configured start of slot 2 today
  slotbell trigger --slot 2
`,
	RunE: runTrigger,
}

func init() {
	triggerCmd.Flags().StringVar(&triggerTime, "time", "", "Simulated time of day (HH:MM)")
	triggerCmd.Flags().IntVar(&triggerDay, "day", 0, "Simulated ISO weekday (1=Monday .. 7=Sunday)")
	triggerCmd.Flags().IntVar(&triggerSlot, "slot", 0, "Use the configured start time of this slot")
	triggerCmd.MarkFlagsMutuallyExclusive("time", "slot")
	rootCmd.AddCommand(triggerCmd)
}

func runTrigger(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(database) }()

	wall := clock.RealClock{Location: cfg.Location}
	overlay := clock.NewOverlay(wall)
	source := slots.FileSource{Path: cfg.SlotConfigPath}
	eval := scheduler.NewEvaluator(scheduler.Deps{
		Slots:      source,
		Clock:      overlay,
		Query:      schedule.NewQuery(schedule.NewGormStore(database), logger),
		Dispatcher: dispatch.New(cfg.DispatchTimeout, logger),
		Recorder:   dispatch.NewRecorder(database),
		Wall:       wall,
	}, logger)
	svc := scheduler.NewService(eval, overlay, source, nil, nil, logger)

	var day *int
	if cmd.Flags().Changed("day") {
		day = &triggerDay
	}

	var res scheduler.Result
	switch {
	case triggerSlot != 0:
		res, err = svc.TriggerSlot(cmd.Context(), triggerSlot, day)
	case triggerTime != "":
		res, err = svc.SetSimulatedTime(cmd.Context(), triggerTime, day)
	case day != nil:
		if _, err = svc.SetSimulatedDay(*day); err == nil {
			res, err = svc.Trigger(cmd.Context())
		}
	default:
		res, err = svc.Trigger(cmd.Context())
	}
	if err != nil {
		return fmt.Errorf("trigger: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
