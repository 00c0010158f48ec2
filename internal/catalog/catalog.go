// Package catalog provides the immutable building type catalog.
// The catalog is loaded once at startup from JSON, validated against a JSON
// schema, and never mutated afterwards; every engine pass reads from it.
package catalog

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"lukechampine.com/blake3"
)

// ErrUnknownBuildingType reports a catalog miss. Fatal when raised during
// load; recoverable as a logged no-op at runtime.
var ErrUnknownBuildingType = errors.New("unknown building type")

// ResourceCategory enumerates the six core resource categories
// (jobs, energy, education, food, housing, healthcare).
type ResourceCategory string

const (
	Jobs       ResourceCategory = "jobs"
	Energy     ResourceCategory = "energy"
	Education  ResourceCategory = "education"
	Food       ResourceCategory = "food"
	Housing    ResourceCategory = "housing"
	Healthcare ResourceCategory = "healthcare"
)

// ResourceCategories lists all core categories in canonical order.
// Iteration over this slice (never over maps) keeps aggregation deterministic.
var ResourceCategories = []ResourceCategory{Jobs, Energy, Education, Food, Housing, Healthcare}

// LivabilityCategory enumerates the six livability categories
// (culture, affordability, resilience, environment, noise, safety).
type LivabilityCategory string

const (
	Culture       LivabilityCategory = "culture"
	Affordability LivabilityCategory = "affordability"
	Resilience    LivabilityCategory = "resilience"
	Environment   LivabilityCategory = "environment"
	Noise         LivabilityCategory = "noise"
	Safety        LivabilityCategory = "safety"
)

// LivabilityCategories lists all livability categories in canonical order.
var LivabilityCategories = []LivabilityCategory{Culture, Affordability, Resilience, Environment, Noise, Safety}

// Economics holds the per-type revenue and upkeep parameters.
type Economics struct {
	MaxRevenue       float64 `json:"max_revenue"`
	MaintenanceCost  float64 `json:"maintenance_cost"`
	DecayRatePercent float64 `json:"decay_rate_percent"`
	ConstructionDays int     `json:"construction_days"`
}

// ResourceProfile lists what a building provides and requires per category.
// Absent categories mean zero.
type ResourceProfile struct {
	Provided map[ResourceCategory]float64 `json:"provided,omitempty"`
	Required map[ResourceCategory]float64 `json:"required,omitempty"`
}

// LivabilityEffect is a signed impact with its own attenuation radius.
// Attenuation is linear: full impact at distance 0, zero past Radius.
type LivabilityEffect struct {
	Impact float64 `json:"impact"`
	Radius int     `json:"radius"`
}

// BuildingType is one immutable catalog entry.
type BuildingType struct {
	ID         string                                   `json:"id"`
	Category   string                                   `json:"category"`
	Economics  Economics                                `json:"economics"`
	Resources  ResourceProfile                          `json:"resources"`
	Livability map[LivabilityCategory]LivabilityEffect `json:"livability,omitempty"`
}

// IsHousing reports whether the type houses residents.
func (bt *BuildingType) IsHousing() bool {
	return bt.Category == "housing"
}

// HousingProvided returns the housing capacity of the type.
func (bt *BuildingType) HousingProvided() float64 {
	return bt.Resources.Provided[Housing]
}

// Catalog is the loaded, validated building type catalog.
type Catalog struct {
	Types  map[string]BuildingType
	Digest string // blake3 of the raw catalog file, for snapshot integrity
}

// Load reads buildings.json from dir, validates it against
// buildings.schema.json, and indexes the entries by ID.
func Load(dir string) (*Catalog, error) {
	schemaPath := filepath.Join(dir, "buildings.schema.json")
	schema, err := jsonschema.Compile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "buildings.json"))
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}

	var entries []BuildingType
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	sum := blake3.Sum256(raw)
	return FromEntries(entries, hex.EncodeToString(sum[:]))
}

// FromEntries builds a catalog from in-memory entries. Duplicate IDs are a
// load-time error.
func FromEntries(entries []BuildingType, digest string) (*Catalog, error) {
	types := make(map[string]BuildingType, len(entries))
	for _, e := range entries {
		if _, dup := types[e.ID]; dup {
			return nil, fmt.Errorf("duplicate building type %q", e.ID)
		}
		types[e.ID] = e
	}
	return &Catalog{Types: types, Digest: digest}, nil
}

// Get returns the building type by ID, or ErrUnknownBuildingType.
func (c *Catalog) Get(id string) (BuildingType, error) {
	bt, ok := c.Types[id]
	if !ok {
		return BuildingType{}, fmt.Errorf("%w: %q", ErrUnknownBuildingType, id)
	}
	return bt, nil
}

// MaxLivabilityRadius returns the largest attenuation radius used by any
// entry for the given category. Sizes dirty regions after mutations.
func (c *Catalog) MaxLivabilityRadius(cat LivabilityCategory) int {
	max := 0
	for _, bt := range c.Types {
		if eff, ok := bt.Livability[cat]; ok && eff.Radius > max {
			max = eff.Radius
		}
	}
	return max
}

// MaxAnyLivabilityRadius returns the largest attenuation radius across all
// categories and entries.
func (c *Catalog) MaxAnyLivabilityRadius() int {
	max := 0
	for _, cat := range LivabilityCategories {
		if r := c.MaxLivabilityRadius(cat); r > max {
			max = r
		}
	}
	return max
}
