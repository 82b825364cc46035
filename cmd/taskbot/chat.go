package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func chatCmd() *cobra.Command {
	var phone string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the bot from the terminal",
		Long: `Read messages from stdin, one per line, and print the bot's replies.

Examples:
  taskbot chat --phone +15551234567
  echo "show tasks" | taskbot chat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			scanner := bufio.NewScanner(cmd.InOrStdin())
			fmt.Fprint(out, "> ")
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					fmt.Fprint(out, "> ")
					continue
				}
				if line == "/quit" || line == "/exit" {
					return nil
				}

				reply, err := a.conv.HandleMessage(ctx, phone, line)
				if err != nil {
					a.log.Error("message failed", "error", err)
				}
				fmt.Fprintf(out, "%s\n\n> ", reply)
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVarP(&phone, "phone", "p", "+10000000000", "phone number to chat as")

	return cmd
}
