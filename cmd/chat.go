package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pawlive/classmate/internal/domain"
)

func newChatCmd(app *app) *cobra.Command {
	var (
		message string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Send a chat message to the classroom",
		RunE: func(cmd *cobra.Command, _ []string) error {
			classroomID := classroomArg(cmd, app)

			session, cleanup, err := app.openSession(cmd.Context(), classroomID)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := waitConnected(cmd, session, timeout); err != nil {
				return err
			}

			if session.Screen().Mode == domain.ScreenEntryGate {
				return errors.New("join the classroom first: classmate join --name \"Your Name\"")
			}

			if err := session.SendMessage(cmd.Context(), message); err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Message sent.")
			return err
		},
	}

	cmd.Flags().StringVar(&message, "message", "", "the message text")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "how long to wait for the classroom")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}
