// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package insights

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/review-insights/pkg/types"
)

// Category names a developer focus area and the regular expressions that
// place a task in it.
type Category struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
}

// DefaultCategories returns the built-in category table. Order matters:
// the first category with a matching pattern wins.
func DefaultCategories() []Category {
	return []Category{
		{"netcode/desync", []string{`\bdesync\b`, `netcode`, `\b(registr|hit reg)`, `packet`, `sync`, `latenc`, `rubberband`, `compensat`}},
		{"performance/fps", []string{`\bfps\b`, `stutter`, `frame`, `perf(ormance)?`, `optimi[sz]`, `gpu`, `cpu`, `drops?`}},
		{"stability/crashes", []string{`crash`, `ctd`, `freeze`, `fatal`, `hang`, `memory`, `game is not working`, `wont work`}},
		{"matchmaking/servers", []string{`server`, `matchmaking`, `queue`, `timeout`, `disconnect`, `dc\b`}},
		{"weapon/ai balance", []string{`weapon`, `gun`, `balance`, `ttk`, `time to kill`, `ai\b`, `damage`, `unbalance`, `meta`}},
		{"pvp experience", []string{`\bpvp\b`, `third person`, `tpv`, `camp`, `spawn`, `grief`, `toxic`}},
		{"pve/mission loop", []string{`\bpve\b`, `mission`, `quest`, `objective`, `loop`, `variety`, `reward`, `loot`}},
		{"ui/ux/controls", []string{`\bui\b`, `menu`, `hud`, `inventory`, `controls?`, `bind`, `map`, `cursor`}},
		{"bugs/polish", []string{`\bbug(s)?\b`, `glitch`, `polish`, `jank`}},
		{"anti-cheat", []string{`cheat`, `aimbot`, `wallhack`, `anti-?cheat`, `cheater`}},
		{"social experience", []string{
			`\bcoop\b`, `\bco[- ]?op\b`, `multiplayer`, `teamplay`, `team play`,
			`friends?`, `party`, `group`, `match with`, `invite`, `join (friends|party)`,
			`social`, `communication`, `chat`, `voice chat`, `mic`, `talk`, `text chat`,
			`grief`, `toxic`, `troll`, `kick(ed)?`, `report system`, `match with randoms`,
			`bad teammates?`, `team(?:mate)?s? (?:dont|won't|wont|never) (?:help|revive|play)`,
			`buddy`, `buddies`, `ally`, `revive`, `rescue`, `support`, `assist`,
			`bounty`,
		}},
	}
}

type compiledCategory struct {
	name     string
	patterns []*regexp.Regexp
}

// Categorizer assigns tasks to categories.
type Categorizer struct {
	cats []compiledCategory
}

// NewCategorizer compiles a category table.
func NewCategorizer(cats []Category) (*Categorizer, error) {
	c := &Categorizer{cats: make([]compiledCategory, 0, len(cats))}
	for _, cat := range cats {
		if strings.TrimSpace(cat.Name) == "" {
			return nil, fmt.Errorf("category with empty name")
		}
		cc := compiledCategory{name: cat.Name}
		for _, p := range cat.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("category %q: pattern %q: %w", cat.Name, p, err)
			}
			cc.patterns = append(cc.patterns, re)
		}
		c.cats = append(c.cats, cc)
	}
	return c, nil
}

// DefaultCategorizer returns a Categorizer over DefaultCategories.
func DefaultCategorizer() *Categorizer {
	c, err := NewCategorizer(DefaultCategories())
	if err != nil {
		panic(fmt.Sprintf("default categories: %v", err))
	}
	return c
}

// LoadCategories reads a YAML list of {name, patterns} entries.
func LoadCategories(path string) ([]Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading categories %s: %w", path, err)
	}
	var cats []Category
	if err := yaml.Unmarshal(data, &cats); err != nil {
		return nil, fmt.Errorf("parsing categories %s: %w", path, err)
	}
	if len(cats) == 0 {
		return nil, fmt.Errorf("categories %s: no categories defined", path)
	}
	return cats, nil
}

// Categorize returns the first category whose pattern matches the
// lowercased task, "other" when none does, and "" for an empty task.
func (c *Categorizer) Categorize(task string) string {
	if task == "" {
		return ""
	}
	t := strings.ToLower(task)
	for _, cat := range c.cats {
		for _, re := range cat.patterns {
			if re.MatchString(t) {
				return cat.name
			}
		}
	}
	return types.CategoryOther
}

// Names returns the category names in match order.
func (c *Categorizer) Names() []string {
	names := make([]string, len(c.cats))
	for i, cat := range c.cats {
		names[i] = cat.name
	}
	return names
}
