package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type SyncParameters struct {
	Title             string  `yaml:"Title"`
	PatchSize         int     `yaml:"PatchSize"`
	Levels            int     `yaml:"Levels"`
	Channels          int     `yaml:"Channels"`
	FluxChannels      int     `yaml:"FluxChannels"`
	CellWidth         float64 `yaml:"CellWidth"`
	GhostWidth        int     `yaml:"GhostWidth"`
	FixUpFlux         bool    `yaml:"FixUpFlux"`
	FixUpRestrict     bool    `yaml:"FixUpRestrict"`
	PositiveDensity   bool    `yaml:"PositiveDensity"`
	ExchangePotential bool    `yaml:"ExchangePotential"`
	Gamma             float64 `yaml:"Gamma"`
	PressureFloor     float64 `yaml:"PressureFloor"`
	Workers           int     `yaml:"Workers"`
	Debug             bool    `yaml:"Debug"`
}

// Defaults returns the parameter set used when no input file is given: a
// five-channel hydro layout on 8^3 patches.
func Defaults() *SyncParameters {
	return &SyncParameters{
		Title:         "amr-sync",
		PatchSize:     8,
		Levels:        2,
		Channels:      5,
		FluxChannels:  5,
		CellWidth:     1.0,
		GhostWidth:    2,
		FixUpFlux:     true,
		FixUpRestrict: true,
		Gamma:         5.0 / 3.0,
	}
}

func (sp *SyncParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, sp)
}

// Validate reports the first out-of-range parameter.
func (sp *SyncParameters) Validate() error {
	if sp.PatchSize < 2 || sp.PatchSize%2 != 0 {
		return fmt.Errorf("PatchSize = %d, must be even and positive", sp.PatchSize)
	}
	if sp.GhostWidth < 0 || sp.GhostWidth > sp.PatchSize {
		return fmt.Errorf("GhostWidth = %d, accepted range = [0 ... %d]", sp.GhostWidth, sp.PatchSize)
	}
	if sp.FluxChannels > sp.Channels {
		return fmt.Errorf("FluxChannels = %d exceeds Channels = %d", sp.FluxChannels, sp.Channels)
	}
	return nil
}

func (sp *SyncParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", sp.Title)
	fmt.Printf("[%d]\t\t\t= PatchSize\n", sp.PatchSize)
	fmt.Printf("[%d]\t\t\t= Levels\n", sp.Levels)
	fmt.Printf("[%d/%d]\t\t\t= Channels/FluxChannels\n", sp.Channels, sp.FluxChannels)
	fmt.Printf("%8.5f\t\t= CellWidth\n", sp.CellWidth)
	fmt.Printf("[%d]\t\t\t= GhostWidth\n", sp.GhostWidth)
	fmt.Printf("[%v/%v]\t\t= FixUpFlux/FixUpRestrict\n", sp.FixUpFlux, sp.FixUpRestrict)
	fmt.Printf("[%v]\t\t\t= PositiveDensity\n", sp.PositiveDensity)
	fmt.Printf("[%v]\t\t\t= ExchangePotential\n", sp.ExchangePotential)
	fmt.Printf("%8.5f\t\t= Gamma\n", sp.Gamma)
	fmt.Printf("%8.5f\t\t= PressureFloor\n", sp.PressureFloor)
}
