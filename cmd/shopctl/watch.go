package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/storefront-sync/internal/bus"
)

// newWatchCmd tails cart:updated broadcasts from other storefront instances
// via the Kafka bridge, the cross-process leg of the pub/sub channel.
func newWatchCmd() *cobra.Command {
	var kafkaBrokers, kafkaTopic, groupID string

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Print cart:updated broadcasts relayed over Kafka",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			broker := bus.NewBroker()
			broker.Subscribe(bus.TopicCartUpdated, func(topic string, payload any) {
				data, err := json.Marshal(payload)
				if err != nil {
					fmt.Fprintf(os.Stderr, "unreadable payload on %s: %v\n", topic, err)
					return
				}
				fmt.Printf("%s %s\n", topic, data)
			})

			bridge := bus.NewBridge(
				broker,
				strings.Split(kafkaBrokers, ","),
				kafkaTopic,
				groupID,
				bus.TopicCartUpdated,
			)
			defer bridge.Close()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				cancel()
			}()

			if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}

	watchCmd.Flags().StringVar(&kafkaBrokers, "kafka-brokers", "localhost:9092", "comma-separated Kafka brokers")
	watchCmd.Flags().StringVar(&kafkaTopic, "kafka-topic", "storefront-broadcasts", "Kafka topic carrying bridged broadcasts")
	watchCmd.Flags().StringVar(&groupID, "group", "shopctl-watch", "Kafka consumer group")

	return watchCmd
}
