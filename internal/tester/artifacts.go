package tester

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Capturer persists run artifacts beneath a root directory. Distinct test
// IDs write to disjoint directories, so concurrent calls are safe; repeat
// calls for the same ID overwrite, last write wins.
type Capturer struct{}

// Persist writes the four artifact files for one run under
// outDir/<testID>/ and returns their paths.
func (Capturer) Persist(testID, outDir string, capture *PageCapture) (ArtifactPaths, error) {
	dir := filepath.Join(outDir, testID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ArtifactPaths{}, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	console := capture.Console
	if console == nil {
		console = []ConsoleEntry{}
	}
	netLog := capture.Network
	if netLog == nil {
		netLog = []NetworkEntry{}
	}

	consoleJSON, err := json.MarshalIndent(console, "", "  ")
	if err != nil {
		return ArtifactPaths{}, fmt.Errorf("failed to encode console log: %w", err)
	}
	networkJSON, err := json.MarshalIndent(netLog, "", "  ")
	if err != nil {
		return ArtifactPaths{}, fmt.Errorf("failed to encode network log: %w", err)
	}

	paths := ArtifactPaths{
		Screenshot: filepath.Join(dir, "screenshot.png"),
		DOM:        filepath.Join(dir, "dom.html"),
		Console:    filepath.Join(dir, "console.json"),
		Network:    filepath.Join(dir, "network.json"),
	}

	files := []struct {
		path string
		data []byte
	}{
		{paths.Screenshot, capture.Screenshot},
		{paths.DOM, []byte(capture.DOM)},
		{paths.Console, consoleJSON},
		{paths.Network, networkJSON},
	}
	for _, f := range files {
		if err := os.WriteFile(f.path, f.data, 0644); err != nil {
			return ArtifactPaths{}, fmt.Errorf("failed to write %s: %w", f.path, err)
		}
	}

	return paths, nil
}
