package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/storefront-sync/internal/bus"
	"github.com/example/storefront-sync/internal/cartsync"
)

var (
	cartKafkaBrokers string
	cartKafkaTopic   string
)

// newSynchronizer builds the synchronizer every cart subcommand runs on.
// With --kafka-brokers set, a bridge on the same broker relays the
// resulting cart:updated broadcast to other storefront instances; the
// returned cleanup flushes it.
func newSynchronizer() (*cartsync.Synchronizer, func()) {
	broker := bus.NewBroker()
	cleanup := func() {}
	if cartKafkaBrokers != "" {
		bridge := bus.NewBridge(
			broker,
			strings.Split(cartKafkaBrokers, ","),
			cartKafkaTopic,
			"shopctl-cart",
			bus.TopicCartUpdated,
		)
		cleanup = func() { bridge.Close() }
	}
	return cartsync.New(newClient(), broker, cartsync.WithMetrics(newMetrics())), cleanup
}

func printCart(cart *cartsync.Cart) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(cart)
}

// resultErr turns a failed operation result into a command error.
func resultErr(res cartsync.Result) error {
	if res.Success {
		return nil
	}
	return errors.New(res.Message)
}

func newCartCmd() *cobra.Command {
	cartCmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and mutate the shopping cart",
	}
	cartCmd.PersistentFlags().StringVar(&cartKafkaBrokers, "kafka-brokers", "",
		"relay cart:updated broadcasts over these Kafka brokers (comma-separated)")
	cartCmd.PersistentFlags().StringVar(&cartKafkaTopic, "kafka-topic", "storefront-broadcasts",
		"Kafka topic carrying bridged broadcasts")

	cartCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Fetch and print the current cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			sync, done := newSynchronizer()
			defer done()
			res := sync.Fetch(cmd.Context())
			if err := resultErr(res); err != nil {
				return err
			}
			printCart(res.Cart)
			return nil
		},
	})

	var quantity int
	addCmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sync, done := newSynchronizer()
			defer done()
			res := sync.Add(cmd.Context(), args[0], quantity)
			if err := resultErr(res); err != nil {
				return err
			}
			printCart(res.Cart)
			return nil
		},
	}
	addCmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "quantity to add")
	cartCmd.AddCommand(addCmd)

	var newQuantity int
	updateCmd := &cobra.Command{
		Use:   "update <item-id>",
		Short: "Change a cart line's quantity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sync, done := newSynchronizer()
			defer done()
			// Quantity 0 means remove, matching the storefront's routing.
			if newQuantity == 0 {
				res := sync.Remove(cmd.Context(), args[0])
				if err := resultErr(res); err != nil {
					return err
				}
				printCart(res.Cart)
				return nil
			}
			res := sync.UpdateItem(cmd.Context(), args[0], newQuantity)
			if err := resultErr(res); err != nil {
				return err
			}
			printCart(res.Cart)
			return nil
		},
	}
	updateCmd.Flags().IntVarP(&newQuantity, "quantity", "q", 1, "new quantity (0 removes the line)")
	cartCmd.AddCommand(updateCmd)

	cartCmd.AddCommand(&cobra.Command{
		Use:   "rm <item-id>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sync, done := newSynchronizer()
			defer done()
			res := sync.Remove(cmd.Context(), args[0])
			if err := resultErr(res); err != nil {
				return err
			}
			printCart(res.Cart)
			return nil
		},
	})

	cartCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			sync, done := newSynchronizer()
			defer done()
			res := sync.Clear(cmd.Context())
			if err := resultErr(res); err != nil {
				return err
			}
			fmt.Println("cart cleared")
			return nil
		},
	})

	cartCmd.AddCommand(&cobra.Command{
		Use:   "merge <source-cart-id>",
		Short: "Merge another cart (e.g. a guest cart) into this one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sync, done := newSynchronizer()
			defer done()
			res := sync.Merge(cmd.Context(), args[0])
			if err := resultErr(res); err != nil {
				return err
			}
			printCart(res.Cart)
			return nil
		},
	})

	return cartCmd
}
