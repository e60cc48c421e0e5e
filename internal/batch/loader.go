package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// MissionSpec is one entry in a missions file.
type MissionSpec struct {
	Name          string `yaml:"name"`
	Prompt        string `yaml:"prompt"`
	Goal          string `yaml:"goal"`
	MaxIterations int    `yaml:"max_iterations"`
}

/*
LoadMissionsFile loads one or many mission specs from a YAML file and always
returns a slice. Two shapes are supported:

 1. Object with "missions" (preferred):
    missions:
      - name: alpha
        prompt: ...
        goal: ...
        max_iterations: 4

 2. Bare list of mission entries at the top level.

Unnamed missions are auto-named "batch:<base>#<index>".
*/
func LoadMissionsFile(path string) ([]MissionSpec, error) {
	clean := filepath.Clean(path)
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("missions file not found: %s", clean)
	}

	var specs []MissionSpec
	var obj struct {
		Missions []MissionSpec `yaml:"missions"`
	}
	if err := yaml.Unmarshal(data, &obj); err == nil && len(obj.Missions) > 0 {
		specs = obj.Missions
	} else {
		var list []MissionSpec
		if err := yaml.Unmarshal(data, &list); err != nil || len(list) == 0 {
			return nil, fmt.Errorf("unrecognized missions format in %s", clean)
		}
		specs = list
	}

	base := filepath.Base(clean)
	for i := range specs {
		if strings.TrimSpace(specs[i].Name) == "" {
			specs[i].Name = fmt.Sprintf("batch:%s#%d", base, i+1)
		}
	}
	return specs, nil
}

// SelectByNames returns specs matching the given names (case-insensitive,
// order preserved) plus the names that matched nothing. An empty name list
// selects everything.
func SelectByNames(specs []MissionSpec, names []string) ([]MissionSpec, []string) {
	if len(names) == 0 {
		return specs, nil
	}

	var selected []MissionSpec
	var missing []string

	for _, want := range names {
		w := strings.TrimSpace(want)
		if w == "" {
			continue
		}

		found := false
		for i := range specs {
			if strings.EqualFold(specs[i].Name, w) {
				selected = append(selected, specs[i])
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}

	return selected, missing
}
