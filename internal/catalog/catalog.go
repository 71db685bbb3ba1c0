// Package catalog holds the static search tables: the ordered list of areas
// with their postal hints and the business categories searched in each.
package catalog

import (
	"fmt"

	"github.com/JakeFAU/directory-crawler/internal/crawler"
)

// Area is a named place searched with a representative postal code.
type Area struct {
	Name   string `mapstructure:"name"`
	Postal string `mapstructure:"postal"`
}

// DefaultAreas are traversed in this order.
var DefaultAreas = []Area{
	{Name: "Madrid", Postal: "28001"},
	{Name: "Barcelona", Postal: "08001"},
	{Name: "Valencia", Postal: "46001"},
	{Name: "Malaga", Postal: "29001"},
	{Name: "Sevilla", Postal: "41001"},
	{Name: "Zaragoza", Postal: "50001"},
	{Name: "Valladolid", Postal: "47001"},
	{Name: "Segovia", Postal: "40001"},
	{Name: "Murcia", Postal: "30001"},
	{Name: "Cartagena", Postal: "30201"},
	{Name: "La Coruña", Postal: "15001"},
	{Name: "Bilbao", Postal: "48001"},
}

// Units returns the cross product of areas and categories, area-major, with
// duplicates of the same (area, category) pair dropped.
func Units(areas []Area, categories []string) []crawler.SearchUnit {
	seen := make(map[string]struct{}, len(areas)*len(categories))
	units := make([]crawler.SearchUnit, 0, len(areas)*len(categories))
	for _, area := range areas {
		for _, category := range categories {
			unit := crawler.SearchUnit{Area: area.Name, Category: category, PostalHint: area.Postal}
			if _, dup := seen[unit.Key()]; dup {
				continue
			}
			seen[unit.Key()] = struct{}{}
			units = append(units, unit)
		}
	}
	return units
}

// Validate rejects empty tables and areas without a name.
func Validate(areas []Area, categories []string) error {
	if len(areas) == 0 {
		return fmt.Errorf("no search areas configured")
	}
	if len(categories) == 0 {
		return fmt.Errorf("no search categories configured")
	}
	for i, a := range areas {
		if a.Name == "" {
			return fmt.Errorf("search area %d has no name", i)
		}
	}
	for i, c := range categories {
		if c == "" {
			return fmt.Errorf("search category %d is empty", i)
		}
	}
	return nil
}
