package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bububa/smart-shop/httpapi"
	"github.com/bububa/smart-shop/receipt"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()
		server := httpapi.New(a.svc,
			httpapi.WithLogger(logger.Named("http")),
			httpapi.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
			httpapi.WithMaxUploadSize(cfg.Server.MaxUploadSize),
			httpapi.WithVersion(version),
		)
		srv := &http.Server{
			Addr:         cfg.Server.Addr(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
		return server.Serve(ctx, srv, cfg.Server.ShutdownTimeout)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the shopping list and current inventory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			report, err := a.svc.ShoppingList(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		})
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <receipt.json>",
	Short: "Apply the items of an extracted receipt to the grocery list",
	Long: `Reads a receipt JSON document ({"items":[{"item","quantity","price"}]}),
either a plain receipt or an archived extraction record, and reconciles it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bs, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		rec, err := decodeReceipt(bs)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			report, err := a.svc.Reconcile(ctx, rec.Items)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		})
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract <image>",
	Short: "Extract a receipt image and reconcile its items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bs, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			res, err := a.svc.ProcessImage(ctx, bs)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the grocery list to the default template",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if _, err := a.svc.Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Grocery list reset to default")
			return nil
		})
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <grocery_list.json>",
	Short: "Replace the grocery list with a JSON document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bs, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			c, err := a.svc.Upload(ctx, bs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Grocery list uploaded: %d items\n", c.Len())
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <shopping_list.xlsx>",
	Short: "Write the shopping list as an xlsx workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := a.svc.Export(ctx, f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			logger.Info("shopping list exported", zap.String("path", args[0]))
			return nil
		})
	},
}

func withApp(cmd *cobra.Command, fn func(context.Context, *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// decodeReceipt accepts a receipt or an archived record wrapping one
func decodeReceipt(bs []byte) (*receipt.Receipt, error) {
	var rec receipt.Record
	if err := json.Unmarshal(bs, &rec); err == nil && rec.Receipt != nil {
		return rec.Receipt, nil
	}
	r := new(receipt.Receipt)
	if err := json.Unmarshal(bs, r); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return r, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
