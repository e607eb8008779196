package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"healthassist/internal/config"
	"healthassist/internal/store"
)

func newFactsCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "facts",
		Short: "Inspect or clear long-term user memory",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print a user's facts, or every user with memory when --user is empty",
		RunE: func(cmd *cobra.Command, _ []string) error {
			facts, err := factStore()
			if err != nil {
				return err
			}
			if user == "" {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "USER\tUPDATED\tPREVIEW")
				for _, u := range facts.Users() {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", u.UserID, u.LastUpdated.Format(time.RFC3339), u.Preview)
				}
				return tw.Flush()
			}
			for _, f := range facts.Facts(user) {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
	listCmd.Flags().StringVarP(&user, "user", "u", "", "User ID")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all facts stored for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			facts, err := factStore()
			if err != nil {
				return err
			}
			if err := facts.Delete(user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared memory for %s\n", user)
			return nil
		},
	}
	clearCmd.Flags().StringVarP(&user, "user", "u", "", "User ID (required)")
	_ = clearCmd.MarkFlagRequired("user")

	cmd.AddCommand(listCmd, clearCmd)
	return cmd
}

func factStore() (*store.FactStore, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	return store.NewFactStore(cfg.DataDir), nil
}

