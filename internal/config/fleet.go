package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FleetConfig describes the fleet the directory tables are synced from.
// Vehicles, drivers and routes are provisioned by operations through this
// file; the dispatch core only reads them.
type FleetConfig struct {
	Vehicles []VehicleConfig `yaml:"vehicles"`
	Drivers  []DriverConfig  `yaml:"drivers"`
	Routes   []RouteConfig   `yaml:"routes"`
}

type VehicleConfig struct {
	ID       string `yaml:"id"`
	Capacity int    `yaml:"capacity"`
	Terminal string `yaml:"terminal"`
	IsActive bool   `yaml:"is_active"`
}

type DriverConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Terminal string `yaml:"terminal"`
	IsActive bool   `yaml:"is_active"`
}

type RouteConfig struct {
	ID            string  `yaml:"id"`
	Name          string  `yaml:"name"`
	Terminal      string  `yaml:"terminal"`
	DurationHours float64 `yaml:"duration_hours"`
	Fare          int64   `yaml:"fare"`
	IsActive      bool    `yaml:"is_active"`
}

// LoadFleet reads and validates the fleet file.
func LoadFleet(path string) (*FleetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = []byte(os.ExpandEnv(string(data)))

	var cfg FleetConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	for _, v := range cfg.Vehicles {
		if v.ID == "" {
			return nil, fmt.Errorf("fleet: vehicle with empty id")
		}
		if v.Capacity <= 0 {
			return nil, fmt.Errorf("fleet: vehicle %s has non-positive capacity", v.ID)
		}
	}
	for _, d := range cfg.Drivers {
		if d.ID == "" {
			return nil, fmt.Errorf("fleet: driver with empty id")
		}
	}
	for _, r := range cfg.Routes {
		if r.ID == "" {
			return nil, fmt.Errorf("fleet: route with empty id")
		}
		if r.DurationHours <= 0 {
			return nil, fmt.Errorf("fleet: route %s has non-positive duration", r.ID)
		}
	}
	return &cfg, nil
}
