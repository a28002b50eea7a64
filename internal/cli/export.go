// export.go implements the "spate export" command group.
//
// Export translates a devcontainer.json into other artifact formats. The
// only exporter today is compose, which renders an image-pattern
// configuration as a docker compose file.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/spate/internal/devcontainer"
	"github.com/mmr-tortoise/spate/internal/model"
	"github.com/mmr-tortoise/spate/internal/workspace"
)

// exportComposeFlags holds the flag values for "export compose".
type exportComposeFlags struct {
	// output is the file to write; stdout when empty.
	output string

	// project overrides the compose project name derived from the
	// workspace directory.
	project string
}

// NewExportCommand creates the "export" cobra command and its subcommands.
func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export devcontainer.json to other formats",
	}

	cmd.AddCommand(newExportComposeCommand())
	return cmd
}

func newExportComposeCommand() *cobra.Command {
	flags := &exportComposeFlags{}

	cmd := &cobra.Command{
		Use:   "compose [path]",
		Short: "Render devcontainer.json as a docker compose file",
		Long: `Render an image-pattern devcontainer.json as a docker compose file.

Mounts become service volumes, forwarded ports become port mappings,
and named volume mounts get top-level volume declarations.

Examples:
  spate export compose
  spate export compose ~/src/my-project -o compose.yaml`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			return runExportCompose(path, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().StringVar(&flags.project, "project", "", "Compose project name (default: directory name)")

	return cmd
}

// runExportCompose is the main logic function for "export compose".
func runExportCompose(path string, flags *exportComposeFlags) error {
	// Step 1: Resolve the workspace and parse its configuration.
	ws, err := workspace.Resolve(path)
	if err != nil {
		return err
	}
	raw, err := ws.LoadConfig()
	if err != nil {
		return err
	}

	// Step 2: Render the compose document.
	project := flags.project
	if project == "" {
		project = ws.Name
	}
	data, err := devcontainer.ExportCompose(raw, project)
	if err != nil {
		return err
	}

	// Step 3: Write to the requested destination.
	if flags.output == "" {
		fmt.Print(string(data))
		return nil
	}
	if err := os.WriteFile(flags.output, data, 0o644); err != nil {
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to write %s", flags.output), err)
	}
	if !IsJSONOutput() {
		fmt.Printf("Wrote %s\n", flags.output)
	}
	return nil
}
