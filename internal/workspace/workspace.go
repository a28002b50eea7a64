package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mmr-tortoise/spate/internal/devcontainer"
	"github.com/mmr-tortoise/spate/internal/model"
)

// Workspace describes a resolved project directory.
type Workspace struct {
	// Path is the absolute path to the project directory.
	Path string

	// Name is the environment name derived from the directory, sanitized
	// to satisfy model.ValidateName.
	Name string

	// ConfigPath is the absolute path to the devcontainer.json file.
	// Empty if the workspace has no devcontainer configuration yet.
	ConfigPath string
}

// Resolve turns a user-supplied path (possibly relative, possibly ".")
// into a Workspace. The directory must exist; the devcontainer.json is
// optional at this stage and its absence leaves ConfigPath empty.
func Resolve(path string) (*Workspace, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.NewCLIError(model.ExitGeneralError,
				fmt.Sprintf("workspace directory does not exist: %s", absPath))
		}
		return nil, fmt.Errorf("failed to stat %s: %w", absPath, err)
	}
	if !info.IsDir() {
		return nil, model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("workspace path is not a directory: %s", absPath))
	}

	ws := &Workspace{
		Path: absPath,
		Name: DeriveName(absPath),
	}

	// The config is optional here. Commands that need it call
	// RequireConfig, which turns the absence into ExitConfigNotFound.
	if configPath, err := devcontainer.FindDevContainerJSON(absPath); err == nil {
		ws.ConfigPath = configPath
	}

	return ws, nil
}

// RequireConfig returns the workspace's devcontainer.json path, or a
// CLIError with ExitConfigNotFound when the workspace has none.
func (w *Workspace) RequireConfig() (string, error) {
	if w.ConfigPath == "" {
		return "", model.NewCLIError(model.ExitConfigNotFound,
			fmt.Sprintf("no devcontainer.json found in %s (expected .devcontainer/devcontainer.json or .devcontainer.json)", w.Path))
	}
	return w.ConfigPath, nil
}

// LoadConfig parses the workspace's devcontainer.json.
func (w *Workspace) LoadConfig() (*devcontainer.RawDevContainer, error) {
	configPath, err := w.RequireConfig()
	if err != nil {
		return nil, err
	}
	return devcontainer.LoadConfig(configPath)
}

// invalidNameChars matches every character that may not appear in an
// environment name.
var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9-]+`)

// DeriveName derives an environment name from a project directory path.
// The base directory name is lowercased, runs of disallowed characters
// collapse to a single hyphen, and leading/trailing hyphens are trimmed.
// A path whose base name contains no usable characters falls back to
// "workspace".
func DeriveName(path string) string {
	base := strings.ToLower(filepath.Base(path))
	name := invalidNameChars.ReplaceAllString(base, "-")
	name = strings.Trim(name, "-")
	if name == "" {
		return "workspace"
	}
	return name
}
