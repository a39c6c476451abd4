package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tutor-backend",
	Short: "AI study companion API",
	Long:  "tutor-backend serves topic-focused tutoring chats, generated quizzes, study progress and a pomodoro timer over HTTP.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "./configs/config.yaml", "配置文件路径")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
