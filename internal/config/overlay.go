package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// CompaniesFile is the optional companies.yml next to config.yml. It lets
// the tracked company lists be maintained apart from the main config.
type CompaniesFile struct {
	Sources struct {
		SmartHirePro struct {
			For []string `yaml:"for"`
		} `yaml:"smarthirepro"`
		Greenhouse struct {
			Companies []Company `yaml:"companies"`
		} `yaml:"greenhouse"`
		Lever struct {
			Companies []Company `yaml:"companies"`
		} `yaml:"lever"`
	} `yaml:"sources"`
}

func OverlayCompanies(cfg *Config, companiesPath string) error {
	b, err := os.ReadFile(companiesPath)
	if err != nil {
		// Missing companies file should not kill startup
		return nil
	}

	var cf CompaniesFile
	if err := yaml.Unmarshal(b, &cf); err != nil {
		return err
	}

	if len(cf.Sources.SmartHirePro.For) > 0 {
		cfg.Sources.SmartHirePro.For = cf.Sources.SmartHirePro.For
	}
	if len(cf.Sources.Greenhouse.Companies) > 0 {
		cfg.Sources.Greenhouse.Companies = cf.Sources.Greenhouse.Companies
	}
	if len(cf.Sources.Lever.Companies) > 0 {
		cfg.Sources.Lever.Companies = cf.Sources.Lever.Companies
	}
	return nil
}
