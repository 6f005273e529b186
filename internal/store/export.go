// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/review-insights/pkg/types"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// exportLimit bounds the number of tasks written by an export.
const exportLimit = 1000000

// Snapshot is the exported view of the store.
type Snapshot struct {
	Categories []types.CategoryAggregate `json:"categories" yaml:"categories"`
	Tasks      []types.Task              `json:"tasks" yaml:"tasks"`
}

// Export writes the category ranking and the tasks matching opts to
// index/export.<format> and returns the file path.
func (s *Store) Export(ctx context.Context, format string, opts QueryOptions) (string, error) {
	opts.MaxResults = exportLimit
	tasks, err := s.Tasks(ctx, opts)
	if err != nil {
		return "", fmt.Errorf("querying for export: %w", err)
	}
	cats, err := s.Categories(ctx, opts.IncludeOther)
	if err != nil {
		return "", fmt.Errorf("querying for export: %w", err)
	}
	snap := Snapshot{Categories: cats, Tasks: tasks}

	var data []byte
	switch format {
	case FormatYAML, "":
		format = FormatYAML
		data, err = yaml.Marshal(snap)
	case FormatJSON:
		data, err = json.MarshalIndent(snap, "", "  ")
	default:
		return "", fmt.Errorf("unknown export format %q (want yaml or json)", format)
	}
	if err != nil {
		return "", fmt.Errorf("marshaling %s: %w", format, err)
	}

	path := filepath.Join(s.analysisDir, indexDir, "export."+format)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
