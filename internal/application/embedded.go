package application

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/ahrav/refclust/internal/domain"
)

//go:embed workflows/*.yaml
var embeddedWorkflows embed.FS

const embeddedDir = "workflows"

// EmbeddedWorkflows lists the names of the workflows shipped with the
// binary, sorted.
func EmbeddedWorkflows() []string {
	entries, err := fs.ReadDir(embeddedWorkflows, embeddedDir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".yaml"); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func readEmbeddedWorkflow(name string) ([]byte, error) {
	data, err := embeddedWorkflows.ReadFile(path.Join(embeddedDir, name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w: no embedded workflow %q (available: %s)",
			domain.ErrInvalidConfiguration, name, strings.Join(EmbeddedWorkflows(), ", "))
	}
	return data, nil
}
