package main

import (
	"context"
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/cobra"

	"github.com/hashmirror/hashmirror/internal/mirror"
	"github.com/hashmirror/hashmirror/internal/scan"
	"github.com/hashmirror/hashmirror/internal/utils"
)

var syncCmd = &cobra.Command{
	Use:   "sync <localFolder> <remoteFolder>",
	Short: "Copy local files whose content is absent from the remote store",
	Long: `Scans a local folder, hashes its files, and uploads every file whose
content hash is not already present at the destination or in any exclusion
source. Copies are flat: files land directly under the remote folder, named
by their base name.`,
	Args: cobra.ExactArgs(2),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().SortFlags = false
	syncCmd.Flags().StringArray("exclude-folder", nil, "remote folder whose contents are excluded from sync (repeatable)")
	syncCmd.Flags().StringArray("exclude-snapshot", nil, "snapshot file whose contents are excluded from sync (repeatable)")
	syncCmd.Flags().StringArray("exclude-path", nil, "local subtree skipped during the scan (repeatable)")
	syncCmd.Flags().Bool("include-recursive", false, "include files in local subfolders (flattened at the destination)")
	syncCmd.Flags().Bool("include-media-only", false, "include only audio/video/image files")
	syncCmd.Flags().Bool("allow-duplicates", false, "proceed even when the local folder contains duplicate content")
	syncCmd.Flags().Bool("dry-run", false, "plan only, apply no remote changes")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	localRoot, remoteRoot := args[0], args[1]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	recursive, _ := cmd.Flags().GetBool("include-recursive")
	mediaOnly, _ := cmd.Flags().GetBool("include-media-only")
	allowDuplicates, _ := cmd.Flags().GetBool("allow-duplicates")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	excludeFolders, _ := cmd.Flags().GetStringArray("exclude-folder")
	excludeSnapshots, _ := cmd.Flags().GetStringArray("exclude-snapshot")
	excludePaths, _ := cmd.Flags().GetStringArray("exclude-path")

	var exclude mapset.Set[string]
	if len(excludePaths) > 0 {
		exclude = mapset.NewSet[string]()
		for _, p := range excludePaths {
			resolved, err := utils.ResolvePath(p)
			if err != nil {
				return err
			}
			exclude.Add(resolved)
		}
	}

	fmt.Printf("Hashing files under %s\n", cyan(localRoot))
	localRecords, err := scan.Local(ctx, localRoot, scan.Options{
		Recursive: recursive,
		MediaOnly: mediaOnly,
		Exclude:   exclude,
	})
	if err != nil {
		return err
	}

	if !allowDuplicates {
		if err := checkLocalDuplicates(localRecords); err != nil {
			return err
		}
	}

	client, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}

	destIndex, err := buildExclusionIndex(ctx, client, remoteRoot, excludeFolders, excludeSnapshots)
	if err != nil {
		return err
	}

	missing := mirror.Diff(localRecords, destIndex)
	if len(missing) == 0 {
		fmt.Println(green("Everything is already at the destination. Nothing to copy."))
		return nil
	}
	fmt.Printf("Planning to copy %d of %d files to %s\n", len(missing), len(localRecords), cyan(remoteRoot))

	journal, err := mirror.OpenJournal(cfg.JournalPath())
	if err != nil {
		return err
	}
	defer journal.Close()

	session, err := journal.CreateSession(mirror.SessionSync, mirror.NewCopyPlan(remoteRoot, missing))
	if err != nil {
		return err
	}

	executor := mirror.NewExecutor(journal, client, mirror.ExecOptions{
		DryRun:      dryRun,
		Concurrency: cfg.Concurrency,
	})
	summary, err := executor.Run(ctx, session)
	if err != nil {
		return err
	}
	return reportSummary(summary)
}

// checkLocalDuplicates refuses to sync a source tree holding the same
// content twice: each duplicate would race the others to the destination.
func checkLocalDuplicates(records []*mirror.FileRecord) error {
	dups := mirror.BuildIndex(records).DuplicateBuckets()
	if len(dups) == 0 {
		return nil
	}

	fmt.Println(red("Duplicate content found in the local folder:"))
	hashes := make([]string, 0, len(dups))
	for hash := range dups {
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)
	for _, hash := range hashes {
		fmt.Printf("------ %s ------\n", hash)
		for _, rec := range dups[hash] {
			fmt.Println(" ", rec.Path)
		}
	}
	return &mirror.ConfigError{Reason: "local duplicates present, re-run with --allow-duplicates to sync anyway"}
}

// buildExclusionIndex merges every exclusion source into one destination
// view: the destination folder itself, any extra remote folders, and any
// stored snapshots.
func buildExclusionIndex(ctx context.Context, client mirror.StorageClient, destRoot string, folders, snapshots []string) (*mirror.HashIndex, error) {
	fmt.Printf("Examining remote folder %s\n", cyan(destRoot))
	destRecords, err := scan.Remote(ctx, client, destRoot, scan.Options{Recursive: true})
	if err != nil {
		return nil, err
	}
	index := mirror.BuildIndex(destRecords)

	for _, folder := range folders {
		fmt.Printf("Examining excluded remote folder %s\n", cyan(folder))
		records, err := scan.Remote(ctx, client, folder, scan.Options{Recursive: true})
		if err != nil {
			return nil, err
		}
		index.Merge(mirror.BuildIndex(records))
	}

	for _, path := range snapshots {
		fmt.Printf("Reading stored snapshot %s\n", cyan(path))
		snap, err := mirror.LoadSnapshot(path)
		if err != nil {
			return nil, err
		}
		index.Merge(mirror.BuildIndex(scan.FromSnapshot(snap, scan.Options{})))
	}

	if n := index.Unhashable(); n > 0 {
		fmt.Printf("Note: %d destination files carry no content hash and cannot be matched.\n", n)
	}
	return index, nil
}
