package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// EnvProfile selects which .env flavor feeds script invocations.
type EnvProfile int

const (
	EnvDev EnvProfile = iota
	EnvStaging
	EnvProd
)

var AllEnvProfiles = [...]EnvProfile{EnvDev, EnvStaging, EnvProd}

func (p EnvProfile) String() string {
	switch p {
	case EnvStaging:
		return "staging"
	case EnvProd:
		return "prod"
	default:
		return "dev"
	}
}

func (p EnvProfile) FileName() string {
	return ".env." + p.String()
}

// ParseEnvProfile maps a config string to a profile, defaulting to dev.
func ParseEnvProfile(s string) (EnvProfile, bool) {
	switch s {
	case "dev", "":
		return EnvDev, true
	case "staging":
		return EnvStaging, true
	case "prod":
		return EnvProd, true
	default:
		return EnvDev, false
	}
}

// LoadEnv reads root/.env.<profile>, falling back to root/.env when the
// profile file is missing or empty. A missing file is not an error; the
// result is just empty.
func LoadEnv(root string, profile EnvProfile) (map[string]string, error) {
	vars, err := readEnvFile(filepath.Join(root, profile.FileName()))
	if err != nil {
		return nil, err
	}
	if len(vars) > 0 {
		return vars, nil
	}
	return readEnvFile(filepath.Join(root, ".env"))
}

func readEnvFile(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return vars, nil
}

// SaveEnv writes the profile file with sorted keys.
func SaveEnv(root string, profile EnvProfile, vars map[string]string) error {
	path := filepath.Join(root, profile.FileName())
	if err := godotenv.Write(vars, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
