package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "classmate",
		Short:         "PawLive participant client: join a classroom, vote, and chat",
		Long:          "classmate is the participant-side client for PawLive live classrooms. It keeps a synchronized view of the classroom, lets you pass the entry gate, cast poll votes, and send chat messages from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.PersistentFlags().String("classroom", "", "classroom id (default from config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newJoinCmd(app),
		newVoteCmd(app),
		newChatCmd(app),
		newStatusCmd(app),
		newWatchCmd(app),
	)

	return rootCmd
}

func classroomArg(cmd *cobra.Command, app *app) string {
	if classroom, _ := cmd.Flags().GetString("classroom"); classroom != "" {
		return classroom
	}
	return app.cfg.classroom
}
