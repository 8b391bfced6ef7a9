package cmds

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/voyagen/guidevault/internal/reminder"
)

func NewRemindCLI() *cobra.Command {
	var (
		eventID string
		lead    time.Duration
	)

	remindCmd := &cobra.Command{
		Use:   "remind <channel>",
		Short: "Wait for the next programme on a channel and notify before it starts.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			warnEphemeral()

			fired := make(chan struct{}, 1)
			notify := reminder.NotifierFunc(func(title, body string) error {
				fmt.Fprintf(out, "%s: %s\n", body, title)
				select {
				case fired <- struct{}{}:
				default:
				}
				return nil
			})

			a, err := newApp(ctx, notify, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			h, ev, err := a.guide.Remind(args[0], eventID, lead)
			if err != nil {
				return err
			}
			if h == nil {
				return nil
			}
			fmt.Fprintf(out, "Reminder set for %s at %s\n", ev.Title, h.FireAt.Local().Format(time.DateTime))

			select {
			case <-fired:
			case <-ctx.Done():
				a.guide.CancelReminder(h.ID)
			}
			return nil
		},
	}

	remindCmd.Flags().StringVar(&eventID, "event", "", "programme id; the next programme when empty")
	remindCmd.Flags().DurationVar(&lead, "lead", 0, "how long before the start to notify, e.g. `5m` (default from config)")

	return remindCmd
}
