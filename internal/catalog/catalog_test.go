package catalog

import (
	"errors"
	"testing"
)

func TestLoadShippedCatalog(t *testing.T) {
	cat, err := Load("../../configs")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cat.Types) == 0 {
		t.Fatal("catalog is empty")
	}
	if cat.Digest == "" {
		t.Error("catalog digest is empty")
	}

	house, err := cat.Get("small_house")
	if err != nil {
		t.Fatalf("Get(small_house): %v", err)
	}
	if !house.IsHousing() {
		t.Error("small_house must be housing")
	}
	if house.HousingProvided() <= 0 {
		t.Error("small_house provides no housing")
	}

	plant, err := cat.Get("power_plant")
	if err != nil {
		t.Fatalf("Get(power_plant): %v", err)
	}
	if plant.IsHousing() {
		t.Error("power_plant must not be housing")
	}
	if plant.Resources.Provided[Energy] <= 0 {
		t.Error("power_plant provides no energy")
	}
}

func TestGetUnknownType(t *testing.T) {
	cat, err := FromEntries(nil, "d")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cat.Get("nope"); !errors.Is(err, ErrUnknownBuildingType) {
		t.Errorf("Get(nope) error = %v, want ErrUnknownBuildingType", err)
	}
}

func TestFromEntriesRejectsDuplicates(t *testing.T) {
	entries := []BuildingType{
		{ID: "hut", Category: "housing"},
		{ID: "hut", Category: "housing"},
	}
	if _, err := FromEntries(entries, "d"); err == nil {
		t.Fatal("duplicate IDs must fail")
	}
}

func TestMaxLivabilityRadius(t *testing.T) {
	entries := []BuildingType{
		{ID: "a", Category: "leisure", Livability: map[LivabilityCategory]LivabilityEffect{
			Environment: {Impact: 10, Radius: 4},
			Noise:       {Impact: -2, Radius: 1},
		}},
		{ID: "b", Category: "civic", Livability: map[LivabilityCategory]LivabilityEffect{
			Safety: {Impact: 12, Radius: 5},
		}},
	}
	cat, err := FromEntries(entries, "d")
	if err != nil {
		t.Fatal(err)
	}
	if got := cat.MaxLivabilityRadius(Environment); got != 4 {
		t.Errorf("MaxLivabilityRadius(environment) = %d, want 4", got)
	}
	if got := cat.MaxLivabilityRadius(Culture); got != 0 {
		t.Errorf("MaxLivabilityRadius(culture) = %d, want 0", got)
	}
	if got := cat.MaxAnyLivabilityRadius(); got != 5 {
		t.Errorf("MaxAnyLivabilityRadius = %d, want 5", got)
	}
}

func TestCanonicalCategoryOrders(t *testing.T) {
	if len(ResourceCategories) != 6 {
		t.Fatalf("resource categories = %d, want 6", len(ResourceCategories))
	}
	if ResourceCategories[0] != Jobs || ResourceCategories[5] != Healthcare {
		t.Error("resource category order changed")
	}
	if len(LivabilityCategories) != 6 {
		t.Fatalf("livability categories = %d, want 6", len(LivabilityCategories))
	}
}
