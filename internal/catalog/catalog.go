// Package catalog loads play template JSON documents from a directory.
// The catalog only consumes what the authoring layer ships; it defines no
// storage format of its own.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/rinkworks/rinkmotion/internal/play"
)

// Load reads every *.json file under dir as a Play. Files that fail to parse
// or validate are reported together; valid plays still load.
func Load(dir string) ([]*play.Play, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	var plays []*play.Play
	var bad []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		p, err := loadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			bad = append(bad, fmt.Sprintf("%s: %v", e.Name(), err))
			continue
		}
		plays = append(plays, p)
	}
	sort.Slice(plays, func(i, j int) bool { return plays[i].Name < plays[j].Name })

	if len(bad) > 0 {
		return plays, fmt.Errorf("catalog: %d invalid template(s): %s", len(bad), strings.Join(bad, "; "))
	}
	return plays, nil
}

func loadFile(path string) (*play.Play, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := play.Decode(data)
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return p, nil
}
