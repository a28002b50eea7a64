// list.go implements the "spate list" command.
//
// The list command displays all managed environments by querying Docker
// for containers with the "spate.managed-by=spate" label. Containers are
// grouped by environment name and presented as a text table or JSON
// array, depending on the --json flag.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/spate/internal/docker"
	"github.com/mmr-tortoise/spate/internal/logging"
	"github.com/mmr-tortoise/spate/internal/model"
)

// listFlags holds the flag values for the list command.
type listFlags struct {
	// status filters environments by their lifecycle state.
	// Valid values: "running", "stopped", "all" (default).
	status string
}

// NewListCommand creates the "list" cobra command.
func NewListCommand() *cobra.Command {
	flags := &listFlags{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all workspace environments",
		Long: `List all managed workspace environments and their status.

Each environment is shown with its name, image, lifecycle status,
container count, and published host ports.

Examples:
  spate list
  spate list --status running
  spate list --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.status, "status", "all",
		"Filter by status: running, stopped, all (default: all)")

	return cmd
}

// runList is the main logic function for the list command.
func runList(ctx context.Context, flags *listFlags) error {
	log := logging.WithComponent("list")

	// Step 1: Validate the --status flag value.
	statusFilter := flags.status
	if statusFilter != "all" {
		if _, err := model.ParseEnvStatus(statusFilter); err != nil {
			return model.NewCLIError(model.ExitGeneralError,
				fmt.Sprintf("invalid status filter %q: valid values are running, stopped, all", statusFilter))
		}
	}

	// Step 2: Connect to Docker and verify the daemon is available.
	cli, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	// Step 3: List all containers managed by spate.
	containers, err := docker.ListManagedContainers(ctx, cli)
	if err != nil {
		return err
	}
	log.Debug().Int("containers", len(containers)).Msg("managed containers found")

	// Step 4: Group containers by environment and build domain objects.
	groups := docker.GroupByEnvironment(containers)

	var envs []*model.Environment
	for envName, group := range groups {
		env, err := docker.BuildEnvironment(envName, group)
		if err != nil {
			// A single corrupted environment must not prevent listing the
			// rest.
			log.Warn().Str("env", envName).Err(err).Msg("skipping environment")
			continue
		}
		envs = append(envs, env)
	}

	// Step 5: Sort alphabetically for stable output.
	sort.Slice(envs, func(i, j int) bool {
		return envs[i].Name < envs[j].Name
	})

	// Step 6: Apply the --status filter if specified.
	if statusFilter != "all" {
		filtered := make([]*model.Environment, 0, len(envs))
		for _, env := range envs {
			if env.Status.String() == statusFilter {
				filtered = append(filtered, env)
			}
		}
		envs = filtered
	}

	printListResult(envs)
	return nil
}

// printListResult outputs the list of environments in text or JSON
// format, depending on the global --json flag.
func printListResult(envs []*model.Environment) {
	if IsJSONOutput() {
		printListResultJSON(envs)
	} else {
		printListResultText(envs)
	}
}

// printListResultJSON outputs the environment list as structured JSON.
// The top-level key is "environments" containing an array of objects.
func printListResultJSON(envs []*model.Environment) {
	type resultJSON struct {
		Environments []*model.Environment `json:"environments"`
	}

	result := resultJSON{
		// Empty slice instead of nil so empty output shows [] not null.
		Environments: make([]*model.Environment, 0, len(envs)),
	}
	result.Environments = append(result.Environments, envs...)

	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(data))
}

// printListResultText outputs the environment list as a human-readable
// text table with aligned columns.
//
// The table format is:
//
//	NAME           IMAGE                         STATUS    CONTAINERS  PORTS
//	my-project     rust:1-bullseye               running   1           8000
//	old-project    node:20                       stopped   1           -
func printListResultText(envs []*model.Environment) {
	if len(envs) == 0 {
		fmt.Println("No environments found.")
		return
	}

	fmt.Printf("%-20s %-35s %-10s %-11s %s\n",
		"NAME", "IMAGE", "STATUS", "CONTAINERS", "PORTS")

	for _, env := range envs {
		fmt.Printf("%-20s %-35s %-10s %-11d %s\n",
			env.Name,
			env.Image,
			env.Status.String(),
			len(env.Containers),
			FormatHostPorts(env.Ports),
		)
	}
}

// FormatHostPorts converts a slice of port specs into a comma-separated
// string of host ports, sorted numerically. Returns "-" when no ports
// are published.
//
// Example:
//
//	[{HostPort: 8000}, {HostPort: 3000}] → "3000,8000"
//	[]                                   → "-"
func FormatHostPorts(ports []model.PortSpec) string {
	if len(ports) == 0 {
		return "-"
	}

	nums := make([]int, 0, len(ports))
	for _, p := range ports {
		nums = append(nums, p.HostPort)
	}

	// Numeric sort; lexicographic would order "15432" before "3000".
	sort.Ints(nums)

	out := make([]string, 0, len(nums))
	for _, n := range nums {
		out = append(out, strconv.Itoa(n))
	}
	return strings.Join(out, ",")
}
