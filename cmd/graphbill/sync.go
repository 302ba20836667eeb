package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphbill/graphbill/internal/config"
)

var syncCmd = &cobra.Command{
	Use:   "sync <object> <id>",
	Short: "Sync a single provider object into the graph",
	Long: `Fetch one object from the payment provider and upsert it into the graph.
Object is one of: customer, product, price, subscription, invoice.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		log, err := newLogger(true)
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx := cmd.Context()
		app, err := buildApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer app.close(context.Background())

		object, id := args[0], args[1]
		switch object {
		case "customer":
			err = app.syncer.SyncCustomer(ctx, id)
		case "product":
			err = app.syncer.SyncProduct(ctx, id)
		case "price":
			err = app.syncer.SyncPrice(ctx, id)
		case "subscription":
			err = app.syncer.SyncSubscription(ctx, id)
		case "invoice":
			err = app.syncer.SyncInvoice(ctx, id)
		default:
			return fmt.Errorf("unknown object type %q", object)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Synced %s %s\n", object, id)
		return nil
	},
}
