package main

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/taskbot/internal/app/command"
	"github.com/PabloGalante/taskbot/internal/app/dates"
	"github.com/PabloGalante/taskbot/internal/app/fields"
	"github.com/PabloGalante/taskbot/internal/config"
)

type interpretation struct {
	command.Command
	Fields *fieldsView `json:"fields,omitempty"`
	Error  string      `json:"error,omitempty"`
}

type fieldsView struct {
	Description string `json:"description"`
	Due         string `json:"due"`
	Priority    string `json:"priority,omitempty"`
	Course      string `json:"course,omitempty"`
	Repeat      string `json:"repeat,omitempty"`
}

func interpretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interpret [message]",
		Short: "Print how a message would be understood, as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			now := time.Now().In(cfg.Location)
			msg := strings.Join(args, " ")

			out := interpretation{Command: command.Interpret(msg)}
			if out.Intent == command.IntentCreateTask {
				f, err := fields.Extract(msg)
				if err != nil {
					out.Error = err.Error()
				} else {
					out.Fields = &fieldsView{
						Description: f.Description,
						Due:         dates.NewResolver().ResolveOrDefault(f.Due, now).Format("2006-01-02T15:04:05Z07:00"),
						Priority:    string(f.Priority),
						Course:      f.Course,
						Repeat:      string(f.Repeat),
					}
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
