// inspect.go implements the "spate inspect" command.
//
// Inspect parses a workspace's devcontainer.json and prints a structured
// summary: the configuration pattern, image, normalized mounts, feature
// references, forwarded ports, and VS Code customizations. With
// --normalize, the canonical JSON of the whole document is printed
// instead, unknown fields included.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/spate/internal/devcontainer"
	"github.com/mmr-tortoise/spate/internal/model"
	"github.com/mmr-tortoise/spate/internal/workspace"
)

// inspectFlags holds the flag values for the inspect command.
type inspectFlags struct {
	// normalize prints the canonical JSON form of the document instead
	// of the parsed summary.
	normalize bool

	// output writes the normalized document to a file instead of stdout.
	// Only meaningful together with normalize.
	output string
}

// NewInspectCommand creates the "inspect" cobra command.
func NewInspectCommand() *cobra.Command {
	flags := &inspectFlags{}

	cmd := &cobra.Command{
		Use:   "inspect [path]",
		Short: "Show the parsed devcontainer configuration of a workspace",
		Long: `Parse a workspace's devcontainer.json and display its contents:
configuration pattern, image, mounts, features, ports, and editor
customizations.

Examples:
  spate inspect
  spate inspect ~/src/my-project
  spate inspect --normalize > devcontainer.normalized.json
  spate inspect --json`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			return runInspect(path, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.normalize, "normalize", false,
		"Print the configuration as canonical JSON (comments stripped, keys sorted)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "",
		"With --normalize, write the canonical JSON to a file")

	return cmd
}

// inspectResult is the JSON output structure of the inspect command.
type inspectResult struct {
	Name       string                 `json:"name"`
	Pattern    string                 `json:"pattern"`
	Image      string                 `json:"image,omitempty"`
	ConfigPath string                 `json:"configPath"`
	Mounts     []model.MountSpec      `json:"mounts,omitempty"`
	Features   []model.FeatureRef     `json:"features,omitempty"`
	Ports      []model.PortSpec       `json:"ports,omitempty"`
	Settings   map[string]interface{} `json:"vscodeSettings,omitempty"`
	Extensions []string               `json:"vscodeExtensions,omitempty"`
}

// runInspect is the main logic function for the inspect command.
func runInspect(path string, flags *inspectFlags) error {
	// Step 1: Resolve the workspace and locate its devcontainer.json.
	ws, err := workspace.Resolve(path)
	if err != nil {
		return err
	}
	configPath, err := ws.RequireConfig()
	if err != nil {
		return err
	}

	// Step 2: --normalize bypasses the typed parse entirely so unknown
	// fields survive in the output.
	if flags.normalize {
		normalized, err := devcontainer.NormalizeFile(configPath)
		if err != nil {
			return model.WrapCLIError(model.ExitConfigInvalid, "failed to normalize devcontainer.json", err)
		}
		if flags.output != "" {
			if err := devcontainer.WriteNormalized(flags.output, normalized); err != nil {
				return model.WrapCLIError(model.ExitGeneralError,
					fmt.Sprintf("failed to write %s", flags.output), err)
			}
			if !IsJSONOutput() {
				fmt.Printf("Wrote %s\n", flags.output)
			}
			return nil
		}
		fmt.Print(string(normalized))
		return nil
	}

	// Step 3: Parse and normalize the fields the summary shows.
	raw, err := devcontainer.LoadConfig(configPath)
	if err != nil {
		return err
	}

	mounts, err := raw.MountSpecs()
	if err != nil {
		return model.WrapCLIError(model.ExitConfigInvalid, "invalid mounts in devcontainer.json", err)
	}
	features, err := raw.FeatureRefs()
	if err != nil {
		return model.WrapCLIError(model.ExitConfigInvalid, "invalid features in devcontainer.json", err)
	}

	result := inspectResult{
		Name:       raw.Name,
		Pattern:    devcontainer.DetectPattern(raw).String(),
		Image:      raw.Image,
		ConfigPath: configPath,
		Mounts:     mounts,
		Features:   features,
		Ports:      devcontainer.ExtractPorts(raw),
		Settings:   raw.VSCodeSettings(),
		Extensions: raw.VSCodeExtensions(),
	}

	printInspectResult(&result)
	return nil
}

// printInspectResult outputs the summary in text or JSON format.
func printInspectResult(result *inspectResult) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Name:     %s\n", result.Name)
	fmt.Printf("Pattern:  %s\n", result.Pattern)
	if result.Image != "" {
		fmt.Printf("Image:    %s\n", result.Image)
	}
	fmt.Printf("Config:   %s\n", result.ConfigPath)

	if len(result.Mounts) > 0 {
		fmt.Println("\nMounts:")
		for _, m := range result.Mounts {
			fmt.Printf("  %s\n", m.String())
		}
	}

	if len(result.Features) > 0 {
		fmt.Println("\nFeatures:")
		for _, f := range result.Features {
			fmt.Printf("  %s (version %s)\n", f.Registry, f.Version)
		}
	}

	if len(result.Ports) > 0 {
		fmt.Println("\nPorts:")
		for _, p := range result.Ports {
			label := ""
			if p.Label != "" {
				label = "  " + p.Label
			}
			host := p.HostPort
			if host == 0 {
				host = p.ContainerPort
			}
			fmt.Printf("  %d -> %d/%s%s\n", host, p.ContainerPort, p.Protocol, label)
		}
	}

	if len(result.Extensions) > 0 {
		fmt.Println("\nVS Code extensions:")
		for _, ext := range result.Extensions {
			fmt.Printf("  %s\n", ext)
		}
	}
}
