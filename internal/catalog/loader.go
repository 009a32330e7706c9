// Package catalog publishes the YAML contest catalogue into the database.
//
// The catalogue is laid out as <root>/<source>/<year>.yaml for single-stage
// contests and <root>/<source>/<year>/<stage>.yaml for multi-stage ones. A
// sibling scores_<file>.json holds the reference population.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Link struct {
	Platform string `yaml:"platform"`
	URL      string `yaml:"url"`
}

type Medal struct {
	Name   string  `yaml:"name"`
	Cutoff float64 `yaml:"cutoff"`
}

type Problem struct {
	Number int    `yaml:"number"`
	Name   string `yaml:"name"`
	// Source, Year and Extra default to the contest's values; set them when
	// a contest reuses a problem published elsewhere.
	Source string `yaml:"source"`
	Year   int    `yaml:"year"`
	Extra  string `yaml:"extra"`
	Links  []Link `yaml:"links"`
}

type Contest struct {
	Name     string    `yaml:"name"`
	Stage    string    `yaml:"stage"`
	Source   string    `yaml:"-"`
	Year     int       `yaml:"year"`
	Duration int       `yaml:"duration"`
	Date     string    `yaml:"date"`
	Website  string    `yaml:"website"`
	Private  bool      `yaml:"private"`
	Medals   []Medal   `yaml:"medals"`
	Problems []Problem `yaml:"problems"`

	// Scores maps problem number (1-based position) to the population's scores.
	Scores map[string][]float64 `yaml:"-"`
	Path   string               `yaml:"-"`
}

func (c *Contest) Slug() string {
	return slug.Make(strings.TrimSpace(c.Name + " " + c.Stage))
}

// ValidateScores checks that the reference population covers every problem
// and that all arrays describe the same participants.
func (c *Contest) ValidateScores() error {
	if c.Scores == nil {
		return nil
	}
	if len(c.Scores) != len(c.Problems) {
		return fmt.Errorf("scores cover %d problems, contest has %d", len(c.Scores), len(c.Problems))
	}
	size := -1
	for i := range c.Problems {
		col, ok := c.Scores[strconv.Itoa(i+1)]
		if !ok {
			return fmt.Errorf("scores are missing problem %d", i+1)
		}
		if size >= 0 && len(col) != size {
			return fmt.Errorf("problem %d has %d scores, expected %d", i+1, len(col), size)
		}
		size = len(col)
	}
	return nil
}

// Load reads every contest definition below root.
func Load(root string) ([]*Contest, error) {
	if root == "" {
		zap.S().Warn("catalog root is not configured. No contests will be loaded.")
		return nil, nil
	}

	sources, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog root '%s': %w", root, err)
	}

	var contests []*Contest
	for _, src := range sources {
		if !src.IsDir() {
			continue
		}
		dir := filepath.Join(root, src.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			zap.S().Warnf("failed to read source directory %s: %v", dir, err)
			continue
		}
		for _, entry := range entries {
			switch {
			case entry.IsDir():
				year, err := strconv.Atoi(entry.Name())
				if err != nil {
					zap.S().Warnf("skipping %s: directory name is not a year", filepath.Join(dir, entry.Name()))
					continue
				}
				staged, err := loadStages(filepath.Join(dir, entry.Name()), src.Name(), year)
				if err != nil {
					zap.S().Warnf("failed to load stages in %s: %v", entry.Name(), err)
					continue
				}
				contests = append(contests, staged...)
			case isYAML(entry.Name()):
				contest, err := loadContest(filepath.Join(dir, entry.Name()))
				if err != nil {
					zap.S().Warnf("failed to load contest %s: %v", entry.Name(), err)
					continue
				}
				contest.Source = src.Name()
				if year, err := strconv.Atoi(trimExt(entry.Name())); err == nil {
					contest.Year = year
				}
				contests = append(contests, contest)
			}
		}
	}

	sort.Slice(contests, func(i, j int) bool {
		if contests[i].Name != contests[j].Name {
			return contests[i].Name < contests[j].Name
		}
		return contests[i].Stage < contests[j].Stage
	})
	return contests, nil
}

func loadStages(dir, source string, year int) ([]*Contest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var contests []*Contest
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		contest, err := loadContest(filepath.Join(dir, entry.Name()))
		if err != nil {
			zap.S().Warnf("failed to load contest %s: %v", entry.Name(), err)
			continue
		}
		contest.Source = source
		contest.Year = year
		if contest.Stage == "" {
			contest.Stage = strings.ReplaceAll(trimExt(entry.Name()), "_", " ")
		}
		contests = append(contests, contest)
	}
	return contests, nil
}

func loadContest(path string) (*Contest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var contest Contest
	if err := yaml.Unmarshal(data, &contest); err != nil {
		return nil, err
	}
	if contest.Name == "" {
		return nil, errors.New("contest has no name")
	}
	if contest.Duration <= 0 {
		return nil, fmt.Errorf("contest %s has no positive duration", contest.Name)
	}
	contest.Path = path

	// A corresponding scores_<file>.json might exist.
	scoresPath := filepath.Join(filepath.Dir(path), "scores_"+trimExt(filepath.Base(path))+".json")
	if raw, err := os.ReadFile(scoresPath); err == nil {
		var scores map[string][]float64
		if err := json.Unmarshal(raw, &scores); err != nil {
			zap.S().Warnf("failed to parse %s: %v", scoresPath, err)
		} else {
			contest.Scores = scores
		}
	}
	return &contest, nil
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func trimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
