package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/sales-intel/internal/model"
)

var (
	accountTenant string
	accountName   string
	accountDomain string
	accountID     string
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage accounts that reports attach to",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if accountName == "" && accountDomain == "" {
			return eris.New("account: --name or --domain is required")
		}

		st, err := openStore(ctx, "account")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		acct, err := st.CreateAccount(ctx, &model.Account{
			ID:       accountID,
			TenantID: accountTenant,
			Name:     accountName,
			Domain:   model.NormalizeSubject(accountDomain),
		})
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), acct)
	},
}

var accountGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show an account and its attached report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx, "account")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		acct, err := st.GetAccount(ctx, accountTenant, args[0])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), acct)
	},
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode json")
}

func init() {
	accountCmd.PersistentFlags().StringVar(&accountTenant, "tenant", "", "tenant id")
	accountCreateCmd.Flags().StringVar(&accountName, "name", "", "account name")
	accountCreateCmd.Flags().StringVar(&accountDomain, "domain", "", "company domain")
	accountCreateCmd.Flags().StringVar(&accountID, "id", "", "account id (generated when empty)")
	accountCmd.AddCommand(accountCreateCmd, accountGetCmd)
	rootCmd.AddCommand(accountCmd)
}
