package config

import (
	"context"
	"fmt"

	"gopkg.in/ini.v1"
)

type SourceType string

const (
	SourceFixture   SourceType = "fixture"
	SourceWarehouse SourceType = "warehouse"
)

// Profile names one configured data source. The source is chosen once
// per process from a profile; there is no runtime switching. A
// warehouse profile carries either an inline db_path or a config_file
// pointing at a full warehouse config.
type Profile struct {
	Name       string
	Type       SourceType
	DbPath     string
	ConfigFile string
	Seed       int64
}

type Registry interface {
	GetProfiles(ctx context.Context) ([]Profile, error)
	GetProfile(ctx context.Context, name string) (*Profile, error)
}

type cfgRegistry struct {
	cfg *ini.File
}

func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	return &cfgRegistry{cfg: cfg}, nil
}

func (cr *cfgRegistry) GetProfiles(ctx context.Context) ([]Profile, error) {
	var profiles []Profile
	for _, section := range cr.cfg.Sections() {
		if len(section.Keys()) == 0 {
			continue
		}
		p, err := cr.GetProfile(ctx, section.Name())
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, nil
}

func (cr *cfgRegistry) GetProfile(_ context.Context, name string) (*Profile, error) {
	section := cr.cfg.Section(name)
	if section == nil || len(section.Keys()) == 0 {
		return nil, fmt.Errorf("profile %s not found", name)
	}

	profile := &Profile{
		Name:       name,
		Type:       SourceType(section.Key("type").MustString(string(SourceFixture))),
		DbPath:     section.Key("db_path").String(),
		ConfigFile: section.Key("config_file").String(),
		Seed:       section.Key("seed").MustInt64(0),
	}

	switch profile.Type {
	case SourceFixture, SourceWarehouse:
	default:
		return nil, fmt.Errorf("profile %s has unknown type %q", name, profile.Type)
	}

	if profile.Type == SourceWarehouse && profile.DbPath == "" && profile.ConfigFile == "" {
		return nil, fmt.Errorf("profile %s requires db_path or config_file", name)
	}

	return profile, nil
}
