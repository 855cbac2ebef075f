package commands

import (
	"github.com/spf13/cobra"
)

var (
	// logDir is the directory used for rotating log files (empty
	// disables file logging).
	logDir string

	// maxLogFiles bounds how many rotated log files are kept on disk.
	maxLogFiles int

	// maxLogFileSize bounds a single rotated log file's size, in MB.
	maxLogFileSize int
)

var rootCmd = &cobra.Command{
	Use:   "mailboxd",
	Short: "Demo CLI for the mailbox actor core",
	Long: `mailboxd drives a small producer/consumer demo over a priority
mailbox, showing how an actor's mailbox can route higher-priority messages
ahead of plain FIFO traffic.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&logDir, "log-dir", "",
		"Directory for rotating log files (empty disables file logging)",
	)
	rootCmd.PersistentFlags().IntVar(
		&maxLogFiles, "max-log-files", 10,
		"Maximum number of rotated log files to keep",
	)
	rootCmd.PersistentFlags().IntVar(
		&maxLogFileSize, "max-log-file-size", 20,
		"Maximum log file size in MB before rotation",
	)

	rootCmd.AddCommand(runCmd)
}
