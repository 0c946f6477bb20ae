package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/pawlive/classmate/internal/domain"
)

func newWatchCmd(app *app) *cobra.Command {
	var (
		once    bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the classroom screen as it changes",
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

			if err := writeViewOutput(cmd, app, session.View(), false); err != nil {
				return err
			}
			if once {
				return nil
			}

			changes := make(chan domain.Screen, 1)
			remove := session.OnScreenChange(func(screen domain.Screen) {
				select {
				case changes <- screen:
				default:
				}
			})
			defer remove()

			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-changes:
					if err := writeViewOutput(cmd, app, session.View(), false); err != nil {
						return err
					}
				}
			}
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "render the current screen once and exit")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "how long to wait for the classroom")

	return cmd
}
