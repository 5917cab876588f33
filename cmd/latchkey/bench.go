package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/postalsys/latchkey/internal/logging"
	"github.com/postalsys/latchkey/internal/session"
)

func benchCmd() *cobra.Command {
	var configPath string
	var addr string
	var count int
	var size int

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Drive messages through an established channel and report throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			log := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)

			manager, err := cfg.BuildManager(log)
			if err != nil {
				return err
			}

			handshakeStart := time.Now()
			client, err := session.Dial(addr, manager, log)
			if err != nil {
				return err
			}
			defer client.Close()
			handshakeTime := time.Since(handshakeStart)

			payload := make([]byte, size)
			for i := range payload {
				payload[i] = byte('a' + i%26)
			}

			start := time.Now()
			for i := 0; i < count; i++ {
				if err := client.SendMessage(payload); err != nil {
					return fmt.Errorf("message %d: %w", i, err)
				}
			}
			elapsed := time.Since(start)

			total := uint64(count) * uint64(size)
			perSecond := float64(total) / elapsed.Seconds()

			fmt.Printf("handshake: %s\n", handshakeTime.Round(time.Millisecond))
			fmt.Printf("sent %d messages (%s) in %s\n", count, humanize.Bytes(total), elapsed.Round(time.Millisecond))
			fmt.Printf("throughput: %s/s, %.0f msg/s\n", humanize.Bytes(uint64(perSecond)), float64(count)/elapsed.Seconds())
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVarP(&addr, "addr", "a", "localhost:7800", "server address")
	cmd.Flags().IntVarP(&count, "count", "n", 1000, "number of messages")
	cmd.Flags().IntVarP(&size, "size", "s", 256, "message payload size in bytes")
	return cmd
}
