package cmds

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/voyagen/guidevault/internal/models"
	"github.com/voyagen/guidevault/internal/reminder"
)

func NewGuideCLI() *cobra.Command {
	guideCmd := &cobra.Command{
		Use:   "guide",
		Short: "Query and adjust the stored guide.",
	}
	guideCmd.AddCommand(newNowNextCLI())
	guideCmd.AddCommand(newOffsetCLI())
	return guideCmd
}

func newNowNextCLI() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "now-next <channel>",
		Short: "Show the programme airing now and the one after it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			when := time.Now()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				when = t
			}
			warnEphemeral()

			a, err := newApp(cmd.Context(), reminder.LogNotifier{}, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			np, err := a.guide.NowNext(args[0], when)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printSlot(out, "Now ", np.Current)
			printSlot(out, "Next", np.Next)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "instant to query in RFC 3339, e.g. `2025-01-01T20:00:00Z`")

	return cmd
}

func printSlot(w io.Writer, label string, ev *models.EPGEvent) {
	if ev == nil {
		fmt.Fprintf(w, "%s  -\n", label)
		return
	}
	fmt.Fprintf(w, "%s  %s-%s  %s\n", label,
		ev.Start.Local().Format("15:04"), ev.End.Local().Format("15:04"), ev.Title)
}

func newOffsetCLI() *cobra.Command {
	return &cobra.Command{
		Use:     "offset <channel> <minutes>",
		Short:   "Shift every programme of a channel by a number of minutes.",
		Example: "  guidevault guide offset bbc1.uk -- -30",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePersistentStore(); err != nil {
				return err
			}
			minutes, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("minutes: %w", err)
			}

			a, err := newApp(cmd.Context(), reminder.LogNotifier{}, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			ch, err := a.guide.AdjustOffset(cmd.Context(), args[0], minutes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s shifted by %d minutes (total offset %d)\n",
				ch.ID, minutes, ch.OffsetMinutes)
			return nil
		},
	}
}
