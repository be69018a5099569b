package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hashmirror/hashmirror/internal/mirror"
	"github.com/hashmirror/hashmirror/internal/scan"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Find and remove redundant copies of identical content",
}

var dedupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List duplicate groups at the destination",
	Args:  cobra.NoArgs,
	RunE:  runDedupList,
}

var dedupApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Delete redundant duplicates, keeping the copy under the most preferred prefix",
	Args:  cobra.NoArgs,
	RunE:  runDedupApply,
}

func init() {
	dedupCmd.PersistentFlags().String("folder", "", "remote folder to examine")
	dedupCmd.PersistentFlags().String("snapshot", "", "stored snapshot to examine instead of a live listing")

	dedupListCmd.Flags().Bool("json", false, "machine readable output")

	dedupApplyCmd.Flags().SortFlags = false
	dedupApplyCmd.Flags().String("prefixes", "", "comma separated path prefixes, most preferred first")
	dedupApplyCmd.Flags().String("prefix-file", "", "YAML file with a ranked `prefixes:` list")
	dedupApplyCmd.Flags().Bool("strict-prefixes", false, "abort when a duplicate path matches no prefix")
	dedupApplyCmd.Flags().Bool("dry-run", false, "plan only, delete nothing")

	dedupCmd.AddCommand(dedupListCmd, dedupApplyCmd)
}

// dedupSource loads records from the snapshot or live folder named by the
// persistent flags, plus the root they describe.
func dedupSource(ctx context.Context, cmd *cobra.Command) ([]*mirror.FileRecord, string, error) {
	folder, _ := cmd.Flags().GetString("folder")
	snapshotPath, _ := cmd.Flags().GetString("snapshot")

	switch {
	case folder != "" && snapshotPath != "":
		return nil, "", &mirror.ConfigError{Reason: "--folder and --snapshot are mutually exclusive"}

	case snapshotPath != "":
		snap, err := mirror.LoadSnapshot(snapshotPath)
		if err != nil {
			return nil, "", err
		}
		return scan.FromSnapshot(snap, scan.Options{}), snap.RootPath, nil

	case folder != "":
		cfg, err := loadConfig()
		if err != nil {
			return nil, "", err
		}
		client, err := newClient(ctx, cfg)
		if err != nil {
			return nil, "", err
		}
		records, err := scan.Remote(ctx, client, folder, scan.Options{Recursive: true})
		if err != nil {
			return nil, "", err
		}
		return records, folder, nil

	default:
		return nil, "", &mirror.ConfigError{Reason: "one of --folder or --snapshot is required"}
	}
}

func runDedupList(cmd *cobra.Command, args []string) error {
	records, _, err := dedupSource(cmd.Context(), cmd)
	if err != nil {
		return err
	}

	dups := mirror.BuildIndex(records).DuplicateBuckets()
	if len(dups) == 0 {
		fmt.Println(green("Hooray! There are no duplicates."))
		return nil
	}

	hashes := make([]string, 0, len(dups))
	for hash := range dups {
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		type member struct {
			ID   string `json:"id"`
			Path string `json:"path"`
		}
		summary := make(map[string][]member, len(dups))
		for _, hash := range hashes {
			for _, rec := range dups[hash] {
				summary[hash] = append(summary[hash], member{ID: rec.RemoteID, Path: rec.Path})
			}
		}
		out, err := json.MarshalIndent(summary, "", "   ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	for _, hash := range hashes {
		fmt.Printf("------ %s ------\n", hash)
		for _, rec := range dups[hash] {
			fmt.Printf("%s (%s)\n", rec.Path, rec.RemoteID)
		}
		fmt.Println()
	}
	return nil
}

func runDedupApply(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	prefixes, err := rankedPrefixes(cmd)
	if err != nil {
		return err
	}

	records, destRoot, err := dedupSource(ctx, cmd)
	if err != nil {
		return err
	}

	strict, _ := cmd.Flags().GetBool("strict-prefixes")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	groups, err := mirror.Resolve(mirror.BuildIndex(records), prefixes, mirror.ResolveOptions{Strict: strict})
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Println(green("Hooray! There are no duplicates."))
		return nil
	}

	deletions := 0
	for _, group := range groups {
		fmt.Printf("keep %s\n", green(group.Keep.Path))
		for _, rec := range group.Delete {
			fmt.Printf("  delete %s (%s)\n", rec.Path, rec.RemoteID)
			deletions++
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}

	journal, err := mirror.OpenJournal(cfg.JournalPath())
	if err != nil {
		return err
	}
	defer journal.Close()

	fmt.Printf("Queueing %d deletions under %s\n", deletions, cyan(destRoot))
	session, err := journal.CreateSession(mirror.SessionDedup, mirror.NewDeletePlan(destRoot, groups))
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

func rankedPrefixes(cmd *cobra.Command) (mirror.PrefixList, error) {
	csv, _ := cmd.Flags().GetString("prefixes")
	file, _ := cmd.Flags().GetString("prefix-file")

	switch {
	case csv != "" && file != "":
		return nil, &mirror.ConfigError{Reason: "--prefixes and --prefix-file are mutually exclusive"}
	case file != "":
		return mirror.LoadPrefixFile(file)
	case csv != "":
		return mirror.ParsePrefixes(csv)
	default:
		return nil, &mirror.ConfigError{Reason: "a prefix ranking is required (--prefixes or --prefix-file)"}
	}
}
