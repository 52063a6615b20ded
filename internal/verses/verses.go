// Package verses serves the daily verse from an embedded list.
package verses

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/dytgt/internal/models"
)

//go:embed verses.yaml
var versesYAML []byte

var (
	loadOnce sync.Once
	all      []models.Verse
	loadErr  error
)

// Parse decodes a YAML list of verses
func Parse(data []byte) ([]models.Verse, error) {
	var list []models.Verse
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse verses: %w", err)
	}
	for i, v := range list {
		if v.Reference == "" || v.Text == "" {
			return nil, fmt.Errorf("verse %d is missing a reference or text", i+1)
		}
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no verses defined")
	}
	return list, nil
}

// All returns the embedded verses
func All() ([]models.Verse, error) {
	loadOnce.Do(func() {
		all, loadErr = Parse(versesYAML)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	out := make([]models.Verse, len(all))
	copy(out, all)
	return out, nil
}

// ForDate picks the verse for t's day of month
func ForDate(t time.Time) (models.Verse, error) {
	list, err := All()
	if err != nil {
		return models.Verse{}, err
	}
	return Pick(list, t), nil
}

// Pick selects list[day % len(list)]. list must not be empty.
func Pick(list []models.Verse, t time.Time) models.Verse {
	return list[t.Day()%len(list)]
}
