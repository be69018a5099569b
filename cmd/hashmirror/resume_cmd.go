package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hashmirror/hashmirror/internal/mirror"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the unfinished session, re-verifying destination state first",
	Args:  cobra.NoArgs,
	RunE:  runResume,
}

func init() {
	resumeCmd.Flags().Bool("abandon", false, "discard the unfinished session instead of resuming it")
}

func runResume(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	journal, err := mirror.OpenJournal(cfg.JournalPath())
	if err != nil {
		return err
	}
	defer journal.Close()

	if abandon, _ := cmd.Flags().GetBool("abandon"); abandon {
		n, err := journal.Abandon()
		if err != nil {
			return err
		}
		fmt.Printf("Abandoned %d session(s).\n", n)
		return nil
	}

	session, err := journal.UnfinishedSession()
	if err != nil {
		return err
	}
	if session == nil {
		return mirror.ErrNothingToResume
	}
	fmt.Printf("Resuming %s session %s against %s\n", session.Kind, cyan(session.ID), cyan(session.DestRoot))

	client, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}

	executor := mirror.NewExecutor(journal, client, mirror.ExecOptions{
		Concurrency: cfg.Concurrency,
	})
	summary, err := executor.Run(ctx, session)
	if err != nil {
		return err
	}
	return reportSummary(summary)
}
