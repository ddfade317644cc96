package policy

import (
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/sentinel/core"
	"gopkg.in/yaml.v3"
)

// File is the YAML document shape of a rank table:
//
//	ranks:
//	  Commander: [create-agent, update-agent, delete-agent, create-project, manipulate-environment]
//	  CPT: [create-project, manipulate-environment]
type File struct {
	Ranks map[string][]string `yaml:"ranks"`
}

// LoadTable reads a YAML rank table from path.
func LoadTable(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("open policy file: %w", err)
	}
	defer f.Close()
	return ReadTable(f)
}

// ReadTable decodes a YAML rank table. Unknown ranks or kinds are errors so a
// typo cannot silently widen or narrow permissions.
func ReadTable(r io.Reader) (Table, error) {
	var doc File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return Table{}, fmt.Errorf("decode policy file: %w", err)
	}
	grants := make(map[core.Rank][]core.ActionKind, len(doc.Ranks))
	for name, kinds := range doc.Ranks {
		rank := core.ParseRank(name)
		if rank == core.RankUnknown {
			return Table{}, fmt.Errorf("policy file: unknown rank %q", name)
		}
		for _, raw := range kinds {
			kind, ok := core.ParseActionKind(raw)
			if !ok {
				return Table{}, fmt.Errorf("policy file: unknown action kind %q for rank %q", raw, name)
			}
			grants[rank] = append(grants[rank], kind)
		}
		if _, seen := grants[rank]; !seen {
			grants[rank] = nil
		}
	}
	return NewTable(grants)
}
