package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/postalsys/latchkey/internal/logging"
	"github.com/postalsys/latchkey/internal/prompt"
	"github.com/postalsys/latchkey/internal/secure"
	"github.com/postalsys/latchkey/internal/session"
)

func connectCmd() *cobra.Command {
	var configPath string
	var addr string
	var message string

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a server and send messages",
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

			client, err := session.Dial(addr, manager, log)
			if err != nil {
				return err
			}
			defer client.Close()

			switch {
			case message != "":
				if err := client.SendMessage([]byte(message)); err != nil {
					return err
				}
			case term.IsTerminal(int(os.Stdin.Fd())):
				if err := chatLoop(client, manager, addr); err != nil {
					return err
				}
			default:
				if err := pipeLoop(client); err != nil {
					return err
				}
			}

			messages, bytes := client.Stats()
			fmt.Printf("sent %d messages, %s\n", messages, humanize.Bytes(bytes))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVarP(&addr, "addr", "a", "localhost:7800", "server address")
	cmd.Flags().StringVarP(&message, "message", "m", "", "send a single message and exit")
	return cmd
}

// chatLoop prompts for messages interactively until the user quits.
func chatLoop(client *session.Client, manager *secure.Manager, addr string) error {
	pub, _ := manager.PKC()
	fmt.Println(prompt.Banner(addr, pub.Name(), manager.Symmetric().Name()))

	for {
		text, err := prompt.ReadMessage()
		if err != nil {
			// An aborted form (ctrl-c) ends the chat, not the program.
			return nil
		}
		if text == prompt.QuitCommand {
			return nil
		}
		if text == "" {
			continue
		}

		if err := client.SendMessage([]byte(text)); err != nil {
			return err
		}
		fmt.Println(prompt.Sent(text))
	}
}

// pipeLoop sends each stdin line as one message.
func pipeLoop(client *session.Client) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := client.SendMessage(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}
