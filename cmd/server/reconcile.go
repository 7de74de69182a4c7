package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/diewo77/go-gstbooks/internal/reconcile"
	"github.com/diewo77/go-gstbooks/money"
	"github.com/spf13/cobra"
)

func newReconcileCmd(_ *globals) *cobra.Command {
	var (
		bankPath, bookPath string
		bankBal, bookBal   string
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match bank transactions against book entries",
		Long: `Reads two JSON arrays of transactions ({id, date, description, amount, reference})
and prints the reconciliation result as JSON. Balances default to the sum of each set.`,
		Example: `  gstbooks reconcile --bank bank.json --book book.json --bank-balance 50000 --book-balance 42000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := reconcile.Request{}
			if err := readJSON(bankPath, &req.Bank); err != nil {
				return err
			}
			if err := readJSON(bookPath, &req.Book); err != nil {
				return err
			}
			var err error
			if req.BankBalance, err = optionalMoney(bankBal); err != nil {
				return fmt.Errorf("--bank-balance: %w", err)
			}
			if req.BookBalance, err = optionalMoney(bookBal); err != nil {
				return fmt.Errorf("--book-balance: %w", err)
			}
			res := reconcile.NewEngine().Run(req)
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&bankPath, "bank", "", "JSON file with bank transactions")
	cmd.Flags().StringVar(&bookPath, "book", "", "JSON file with book transactions")
	cmd.Flags().StringVar(&bankBal, "bank-balance", "", "closing balance on the bank statement")
	cmd.Flags().StringVar(&bookBal, "book-balance", "", "closing balance in the books")
	_ = cmd.MarkFlagRequired("bank")
	_ = cmd.MarkFlagRequired("book")
	return cmd
}

func readJSON(path string, dst any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func optionalMoney(s string) (*money.Money, error) {
	if s == "" {
		return nil, nil
	}
	m, err := money.Parse(s)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
