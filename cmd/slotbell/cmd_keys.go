/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/friendsincode/slotbell/internal/daytime"
	"github.com/friendsincode/slotbell/internal/usn"
)

var (
	keyDay  int
	keySlot int
	keyDate string
	keyKind string
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Encode and decode timetable keys",
}

var keysEncodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Build a day:slot or DDMMYY:slot key",
	Long: `Build a timetable key.

Examples:
  # Wednesday, slot 2
  slotbell keys encode --day 3 --slot 2

  # Slot 4 on 18 January 2026
  slotbell keys encode --date 18/01/26 --slot 4
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return encodeKey(cmd.OutOrStdout())
	},
}

var keysDecodeCmd = &cobra.Command{
	Use:   "decode <key>",
	Short: "Decode a key and print its parts as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decodeKey(cmd.OutOrStdout(), daytime.KeyKind(keyKind), args[0])
	},
}

var expandCmd = &cobra.Command{
	Use:   "expand <start> <end>",
	Short: "List every roll number in an inclusive range",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, n := range usn.Expand(args[0], args[1]) {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), n); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	keysEncodeCmd.Flags().IntVar(&keyDay, "day", 0, "ISO weekday 1..6")
	keysEncodeCmd.Flags().IntVar(&keySlot, "slot", 0, "Slot 1..6")
	keysEncodeCmd.Flags().StringVar(&keyDate, "date", "", "Calendar date as DD/MM/YY; selects the date_slot form")
	keysEncodeCmd.MarkFlagsMutuallyExclusive("day", "date")
	_ = keysEncodeCmd.MarkFlagRequired("slot")

	keysDecodeCmd.Flags().StringVar(&keyKind, "kind", string(daytime.KindDayTime), "Key kind: day_time or date_slot")

	keysCmd.AddCommand(keysEncodeCmd, keysDecodeCmd)
	rootCmd.AddCommand(keysCmd, expandCmd)
}

func encodeKey(out io.Writer) error {
	var (
		key string
		err error
	)
	if keyDate != "" {
		key, err = daytime.EncodeDateSlot(keyDate, keySlot)
	} else {
		key, err = daytime.EncodeDayTime(keyDay, keySlot)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, key)
	return err
}

type decodedKey struct {
	Kind     daytime.KeyKind `json:"kind"`
	Key      string          `json:"key"`
	Day      int             `json:"day,omitempty"`
	DayName  string          `json:"dayName,omitempty"`
	Date     string          `json:"date,omitempty"`
	Slot     int             `json:"slot"`
	SlotName string          `json:"slotName"`
}

func decodeKey(out io.Writer, kind daytime.KeyKind, raw string) error {
	key, err := daytime.ParseKey(kind, raw)
	if err != nil {
		return err
	}

	res := decodedKey{Kind: key.Kind(), Key: key.String()}
	switch k := key.(type) {
	case daytime.DayTimeKey:
		res.Day, res.Slot = k.Day, k.Slot
		res.DayName, _ = daytime.DayName(k.Day)
	case daytime.DateSlotKey:
		res.Date, res.Slot = k.Date, k.Slot
	}
	res.SlotName, _ = daytime.SlotName(res.Slot)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
