// Package config loads BASim's process configuration from environment
// variables, as specified for the simulator's external interfaces.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// CampusSize selects the topology profile the assembler builds from.
type CampusSize string

const (
	SizeSmall  CampusSize = "Small"
	SizeMedium CampusSize = "Medium"
	SizeLarge  CampusSize = "Large"
)

// UnitSystem controls display-only unit conversion.
type UnitSystem string

const (
	UnitsUS     UnitSystem = "US"
	UnitsMetric UnitSystem = "Metric"
)

// Config is the immutable process configuration, built once at startup
// and passed explicitly to the assembler and each gateway (no ambient
// globals, per the Design Notes).
type Config struct {
	CampusSize        CampusSize
	SimulationSpeed   float64
	GeoLat            float64
	UnitSystem        UnitSystem
	DeviceID          int
	HTTPPort          int
	ModbusPort        int
	BACnetPort        int
	BACnetSCPort      int
	ControllerProfile string
	AdminUser         string
	AdminPassword     string
	LogLevel         string
}

// FromEnv builds a Config from the process environment, applying the
// documented defaults for anything unset.
func FromEnv() (Config, error) {
	c := Config{
		CampusSize:      SizeMedium,
		SimulationSpeed: 1.0,
		GeoLat:          36.16, // Nashville, TN — matches the original almanac baseline
		UnitSystem:      UnitsUS,
		DeviceID:        389999,
		HTTPPort:        8080,
		ModbusPort:      5020,
		BACnetPort:      47808,
		BACnetSCPort:    8443,
		ControllerProfile: "Generic",
		AdminUser:       "admin",
		AdminPassword:   "admin",
		LogLevel:        "info",
	}

	if v := os.Getenv("CAMPUS_SIZE"); v != "" {
		switch CampusSize(v) {
		case SizeSmall, SizeMedium, SizeLarge:
			c.CampusSize = CampusSize(v)
		default:
			return c, fmt.Errorf("config: invalid CAMPUS_SIZE %q", v)
		}
	}

	if v := os.Getenv("SIMULATION_SPEED"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return c, fmt.Errorf("config: invalid SIMULATION_SPEED %q", v)
		}
		c.SimulationSpeed = f
	}

	if v := os.Getenv("GEO_LAT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < -90 || f > 90 {
			return c, fmt.Errorf("config: invalid GEO_LAT %q", v)
		}
		c.GeoLat = f
	}

	if v := os.Getenv("UNIT_SYSTEM"); v != "" {
		switch UnitSystem(v) {
		case UnitsUS, UnitsMetric:
			c.UnitSystem = UnitSystem(v)
		default:
			return c, fmt.Errorf("config: invalid UNIT_SYSTEM %q", v)
		}
	}

	if err := intFromEnv("DEVICE_ID", &c.DeviceID); err != nil {
		return c, err
	}
	if err := intFromEnv("HTTP_PORT", &c.HTTPPort); err != nil {
		return c, err
	}
	if err := intFromEnv("MODBUS_PORT", &c.ModbusPort); err != nil {
		return c, err
	}
	if err := intFromEnv("BACNET_PORT", &c.BACnetPort); err != nil {
		return c, err
	}
	if err := intFromEnv("BACNET_SC_PORT", &c.BACnetSCPort); err != nil {
		return c, err
	}

	if v := os.Getenv("CONTROLLER_PROFILE"); v != "" {
		switch v {
		case "Generic", "Alerton", "Delta", "Distech", "Honeywell", "JCI":
			c.ControllerProfile = v
		default:
			return c, fmt.Errorf("config: invalid CONTROLLER_PROFILE %q", v)
		}
	}

	if v := os.Getenv("ADMIN_USER"); v != "" {
		c.AdminUser = v
	}
	if v := os.Getenv("ADMIN_PASSWORD"); v != "" {
		c.AdminPassword = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	return c, nil
}

func intFromEnv(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: invalid %s %q", name, v)
	}
	*dst = n
	return nil
}
