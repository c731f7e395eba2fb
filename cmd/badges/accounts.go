package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tbourn/checkin-badges/internal/domain"
	"github.com/tbourn/checkin-badges/internal/services"
	"github.com/tbourn/checkin-badges/internal/sysutil"
)

func newAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List linked check-in accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := openDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer closeDB()

			svc := &services.AccountService{DB: db}
			accts, err := svc.ListAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("list accounts: %w", err)
			}
			return printAccounts(cmd.OutOrStdout(), accts)
		},
	}
}

func printAccounts(w io.Writer, accts []domain.Account) error {
	if len(accts) == 0 {
		_, err := fmt.Fprintln(w, "No linked accounts.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tEMAIL\tLINKED")
	for _, a := range accts {
		email := sysutil.FirstNonEmpty(a.Email, "-")
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Username, email, a.CreatedAt.Format("2006-01-02"))
	}
	return tw.Flush()
}
