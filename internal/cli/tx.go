package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"token-oracle-kit/internal/domain"
)

// txView is the JSON shape of a journaled transaction.
type txView struct {
	ID        string                 `json:"id"`
	From      string                 `json:"from"`
	To        string                 `json:"to"`
	Method    string                 `json:"method"`
	Tracking  domain.TrackingMode    `json:"tracking"`
	Status    domain.TxStatus        `json:"status"`
	Hash      string                 `json:"hash,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Metadata  *domain.ActionMetadata `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

func newTxView(rec *domain.TxRecord) txView {
	v := txView{
		ID:        rec.ID,
		From:      rec.From.Hex(),
		To:        rec.To.Hex(),
		Method:    rec.Method,
		Tracking:  rec.Tracking,
		Status:    rec.Status,
		Error:     rec.Error,
		Metadata:  rec.Metadata,
		CreatedAt: time.UnixMilli(rec.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(rec.UpdatedAt).UTC(),
	}
	if rec.Hash != nil {
		v.Hash = rec.Hash.Hex()
	}
	return v
}

func newTxCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Inspect the transaction journal",
	}
	cmd.AddCommand(newTxListCmd(opts), newTxShowCmd(opts))
	return cmd
}

func newTxListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List journaled transactions, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			records, err := app.Tx.List(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMETHOD\tSTATUS\tHASH")
			for _, rec := range records {
				v := newTxView(rec)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.ID, v.Method, v.Status, v.Hash)
			}
			return w.Flush()
		},
	}
}

func newTxShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print one journaled transaction as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			rec, err := app.Tx.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(newTxView(rec))
		},
	}
}

// reportTx prints a submitted transaction. With wait set it blocks until the
// transaction is terminal and returns its failure cause.
func reportTx(cmd *cobra.Command, tx domain.PendingTx, wait bool) error {
	var err error
	if wait {
		err = tx.Wait(cmd.Context())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", tx.ID(), tx.Hash().Hex(), tx.Status())
	return err
}
