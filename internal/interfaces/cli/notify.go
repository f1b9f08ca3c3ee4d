package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/folira/folira/internal/infrastructure/messaging/kafka"
)

func newNotifyTailCmd(opts *rootOptions) *cobra.Command {
	var topic string

	cmd := &cobra.Command{
		Use:   "notify-tail",
		Short: "Tail a notification topic and print events",
		Long: "Consumes one of the owner-notification topics (rebalanced, notify, " +
			"drawdown) from the tail and prints each event as JSON. Ctrl-C to stop.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch topic {
			case kafka.TopicSuffixRebalanced, kafka.TopicSuffixAdvisory, kafka.TopicSuffixDrawdown:
			default:
				return fmt.Errorf("unknown topic %q; expected %s|%s|%s", topic,
					kafka.TopicSuffixRebalanced, kafka.TopicSuffixAdvisory, kafka.TopicSuffixDrawdown)
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
				Brokers:     cfg.Kafka.Brokers,
				TopicPrefix: cfg.Kafka.TopicPrefix,
				GroupID:     "folira-cli",
			}, topic, nil)
			if err != nil {
				return err
			}
			defer consumer.Close()

			for {
				event, err := consumer.Next(cmd.Context())
				if err != nil {
					if cmd.Context().Err() != nil {
						return nil
					}
					return err
				}
				if err := printJSON(cmd, event); err != nil {
					return err
				}
			}
		},
	}

	cmd.Flags().StringVar(&topic, "topic", kafka.TopicSuffixDrawdown, "topic suffix: rebalanced|notify|drawdown")
	return cmd
}
