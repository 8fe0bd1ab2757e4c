/*
Package cli provides command-line interface utilities for the ccr gateway.

The cli package includes output formatters and common CLI helpers used by
the ccr command.

Output Formatting:

The cli package supports text and JSON output for displaying command
results, selected via each command's --output flag:

	formatter := cli.NewFormatter(cli.FormatJSON)
	data := MyCommandResult{...}
	if err := formatter.FormatTo(os.Stdout, data); err != nil {
		return err
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	// Use ctx for operations that should be cancelled on shutdown
*/
package cli
