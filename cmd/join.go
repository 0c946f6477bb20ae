package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newJoinCmd(app *app) *cobra.Command {
	var (
		name    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Pass the classroom entry gate with your display name",
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

			if err := session.Enter(cmd.Context(), name); err != nil {
				return fmt.Errorf("join classroom: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Joined %s as %s.\n", classroomID, strings.TrimSpace(name))
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "your full display name")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "how long to wait for the classroom")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
