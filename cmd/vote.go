package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pawlive/classmate/internal/domain"
)

func newVoteCmd(app *app) *cobra.Command {
	var (
		options []int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "vote",
		Short: "Cast your vote on the active poll",
		Long:  "vote submits your selection for the classroom's active poll. Options are numbered from 1 as shown by status/watch; repeat --option for multiple-choice polls.",
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

			pollCtx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			screen, err := session.WaitScreen(pollCtx, func(s domain.Screen) bool {
				return s.Mode == domain.ScreenPoll
			})
			if err != nil {
				return errors.New("no active poll is open right now")
			}
			if screen.PollLocked {
				return errors.New("voting is locked for the active poll")
			}
			if screen.VoteConfirmed {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "You already voted on this poll.")
				return err
			}

			selected := make([]int, 0, len(options))
			for _, option := range options {
				selected = append(selected, option-1)
			}

			if err := session.SubmitVote(cmd.Context(), selected); err != nil {
				return err
			}

			// The vote subscription confirms the write; a short wait keeps
			// the success message honest without blocking forever.
			confirmCtx, cancelConfirm := context.WithTimeout(cmd.Context(), timeout)
			defer cancelConfirm()
			if _, err := session.WaitScreen(confirmCtx, func(s domain.Screen) bool {
				return s.VoteConfirmed
			}); err != nil {
				return errors.New("vote was not accepted (check the option numbers)")
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Vote submitted.")
			return err
		},
	}

	cmd.Flags().IntSliceVar(&options, "option", nil, "option number to vote for (1-based; repeatable)")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "how long to wait for the classroom and poll")
	_ = cmd.MarkFlagRequired("option")

	return cmd
}
