// Package scenario supplies board data for the vision engine: the standard
// map layout, PNG mask loading, and a database-backed scenario store.
package scenario

import "github.com/Garsondee/tactical-vision/internal/vision"

// Scenario is a named, storable board setup.
type Scenario struct {
	Name       string              `json:"name"`
	View       string              `json:"view"`
	Units      []vision.Unit       `json:"units"`
	Structures []vision.Structure  `json:"structures"`
	Sensors    []vision.Sensor     `json:"sensors"`
	Zones      []vision.ZoneReveal `json:"zones"`
}

// Snapshot converts the scenario into engine input. Activations are left
// nil so the engine derives them.
func (s Scenario) Snapshot() vision.Snapshot {
	return vision.Snapshot{
		View:       vision.ParseViewMode(s.View),
		Units:      s.Units,
		Structures: s.Structures,
		Sensors:    s.Sensors,
		Zones:      s.Zones,
	}.Clone()
}

// Default returns the standard opening layout: both teams in base, every
// structure up, no sensors placed.
func Default() Scenario {
	return Scenario{
		Name:       "default",
		View:       vision.ViewBlue.String(),
		Units:      DefaultUnits(),
		Structures: DefaultStructures(),
		Zones:      DefaultZones(),
	}
}

// DefaultUnits are the ten lane units at their spawn points.
func DefaultUnits() []vision.Unit {
	return []vision.Unit{
		{ID: "blue-top", Team: vision.TeamBlue, Role: "TOP", X: 0.045, Y: 0.940},
		{ID: "blue-jungle", Team: vision.TeamBlue, Role: "JUNGLE", X: 0.060, Y: 0.952},
		{ID: "blue-mid", Team: vision.TeamBlue, Role: "MID", X: 0.034, Y: 0.970},
		{ID: "blue-adc", Team: vision.TeamBlue, Role: "ADC", X: 0.025, Y: 0.951},
		{ID: "blue-support", Team: vision.TeamBlue, Role: "SUPPORT", X: 0.054, Y: 0.969},

		{ID: "red-top", Team: vision.TeamRed, Role: "TOP", X: 0.955, Y: 0.062},
		{ID: "red-jungle", Team: vision.TeamRed, Role: "JUNGLE", X: 0.939, Y: 0.047},
		{ID: "red-mid", Team: vision.TeamRed, Role: "MID", X: 0.972, Y: 0.052},
		{ID: "red-adc", Team: vision.TeamRed, Role: "ADC", X: 0.973, Y: 0.031},
		{ID: "red-support", Team: vision.TeamRed, Role: "SUPPORT", X: 0.950, Y: 0.027},
	}
}

type towerSpec struct {
	id   string
	x, y float64
	tier vision.StructureTier
}

var blueTowers = []towerSpec{
	{"blue-top-outer", 0.07, 0.3, vision.TierOuter},
	{"blue-top-inner", 0.11, 0.55, vision.TierInner},
	{"blue-top-inhibitor", 0.08, 0.72, vision.TierInhibitor},
	{"blue-mid-outer", 0.4, 0.57, vision.TierOuter},
	{"blue-mid-inner", 0.34, 0.67, vision.TierInner},
	{"blue-mid-inhibitor", 0.25, 0.75, vision.TierInhibitor},
	{"blue-bot-outer", 0.71, 0.93, vision.TierOuter},
	{"blue-bot-inner", 0.47, 0.9, vision.TierInner},
	{"blue-bot-inhibitor", 0.29, 0.91, vision.TierInhibitor},
	{"blue-nexus-1", 0.12, 0.84, vision.TierNexus},
	{"blue-nexus-2", 0.15, 0.88, vision.TierNexus},
}

var redTowers = []towerSpec{
	{"red-top-outer", 0.3, 0.07, vision.TierOuter},
	{"red-top-inner", 0.54, 0.1, vision.TierInner},
	{"red-top-inhibitor", 0.7, 0.09, vision.TierInhibitor},
	{"red-mid-outer", 0.6, 0.43, vision.TierOuter},
	{"red-mid-inner", 0.66, 0.32, vision.TierInner},
	{"red-mid-inhibitor", 0.75, 0.25, vision.TierInhibitor},
	{"red-bot-outer", 0.93, 0.7, vision.TierOuter},
	{"red-bot-inner", 0.89, 0.45, vision.TierInner},
	{"red-bot-inhibitor", 0.91, 0.29, vision.TierInhibitor},
	{"red-nexus-1", 0.85, 0.13, vision.TierNexus},
	{"red-nexus-2", 0.87, 0.16, vision.TierNexus},
}

// DefaultStructures are all 22 towers, active. Range is left at 0 so the
// engine applies its tier defaults.
func DefaultStructures() []vision.Structure {
	out := make([]vision.Structure, 0, len(blueTowers)+len(redTowers))
	for _, t := range blueTowers {
		out = append(out, vision.Structure{ID: t.id, Team: vision.TeamBlue, Tier: t.tier, X: t.x, Y: t.y, Active: true})
	}
	for _, t := range redTowers {
		out = append(out, vision.Structure{ID: t.id, Team: vision.TeamRed, Tier: t.tier, X: t.x, Y: t.y, Active: true})
	}
	return out
}

// zoneDetectionRadius is how close a sensor must be to a zone's trigger point.
const zoneDetectionRadius = 0.014

// DefaultZones are the twelve zone reveals. MaskPath is relative to the
// zone mask directory.
func DefaultZones() []vision.ZoneReveal {
	z := func(id, name, category string, x, y float64, mask string) vision.ZoneReveal {
		return vision.ZoneReveal{
			ID:              id,
			Name:            name,
			X:               x,
			Y:               y,
			DetectionRadius: zoneDetectionRadius,
			MaskPath:        mask,
			Category:        category,
		}
	}
	return []vision.ZoneReveal{
		z("faelight-banana-blue", "Banana Blue", "banana", 0.334, 0.418, "faelight-banana-blue.png"),
		z("faelight-banana-red", "Banana Red", "banana", 0.681, 0.597, "faelight-banana-red.png"),
		z("faelight-pixel-top", "Pixel Top", "pixel", 0.229, 0.242, "faelight-pixel-top.png"),
		z("faelight-pixel-bot", "Pixel Bot", "pixel", 0.774, 0.738, "faelight-pixel-bot.png"),
		z("faelight-short-blue-top", "Short Blue Top", "short", 0.157, 0.349, "faelight-short-blue-top.png"),
		z("faelight-short-blue-bot", "Short Blue Bot", "short", 0.621, 0.854, "faelight-short-blue-bot.png"),
		z("faelight-short-red-top", "Short Red Top", "short", 0.361, 0.132, "faelight-short-red-top.png"),
		z("faelight-short-red-bot", "Short Red Bot", "short", 0.869, 0.603, "faelight-short-red-bot.png"),
		z("faelight-base-blue-top", "Base Blue Top", "base", 0.191, 0.664, "faelight-top-base-blue.png"),
		z("faelight-base-blue-bot", "Base Blue Bot", "base", 0.338, 0.812, "faelight-bot-base-blue.png"),
		z("faelight-base-red-top", "Base Red Top", "base", 0.662, 0.192, "faelight-top-base-red.png"),
		z("faelight-base-red-bot", "Base Red Bot", "base", 0.810, 0.337, "faelight-bot-base-red.png"),
	}
}
