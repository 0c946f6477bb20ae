package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pawlive/classmate/internal/adapters/render/screen"
	"github.com/pawlive/classmate/internal/application"
	"github.com/pawlive/classmate/internal/domain"
)

func newStatusCmd(app *app) *cobra.Command {
	var (
		asJSON  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current classroom screen once",
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

			return writeViewOutput(cmd, app, session.View(), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output the raw view as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "how long to wait for the classroom")

	return cmd
}

func writeViewOutput(cmd *cobra.Command, app *app, view application.View, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	rendered, err := app.screenRenderer(view, screen.RenderOptions{Now: time.Now()})
	if err != nil {
		return fmt.Errorf("render screen: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

// waitConnected blocks, with a spinner on stderr, until the first classroom
// snapshot has arrived. A classroom that never materializes times out.
func waitConnected(cmd *cobra.Command, session *application.Session, timeout time.Duration) error {
	if session.Screen().Mode != domain.ScreenConnecting {
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	err := runConnectSpinner(ctx, cmd.ErrOrStderr(), func(ctx context.Context) error {
		_, err := session.WaitScreen(ctx, func(s domain.Screen) bool {
			return s.Mode != domain.ScreenConnecting
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("wait for classroom: %w", err)
	}
	return nil
}
