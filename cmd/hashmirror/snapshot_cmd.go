package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hashmirror/hashmirror/internal/mirror"
	"github.com/hashmirror/hashmirror/internal/scan"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <remoteFolder> <outFile>",
	Short: "Capture a remote folder tree into a reusable snapshot file",
	Long: `Lists a remote folder recursively and stores the file records as a
snapshot. Later sync and dedup runs can consume the snapshot in place of a
live listing, avoiding repeated remote scans.`,
	Args: cobra.ExactArgs(2),
	RunE: runSnapshot,
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	folder, outFile := args[0], args[1]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Examining remote folder %s\n", cyan(folder))
	records, err := scan.Remote(ctx, client, folder, scan.Options{Recursive: true})
	if err != nil {
		return err
	}

	snap := mirror.NewSnapshot(folder, records)
	if err := snap.WriteFile(outFile); err != nil {
		return err
	}

	fmt.Printf("%s %d records captured to %s\n", green("Done."), len(snap.Records), outFile)
	return nil
}
