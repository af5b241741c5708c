package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

type Validator interface {
	Validate() error
}

type ConfigInterface interface {
	Bind(instance any) error
	BindWithDefaults(instance any) error
	Export(path string) error
	Files() []string
}

type Config struct {
	instance   *viper.Viper
	opts       ConfigOptions
	files      []string
	watchOnce  sync.Once
	watchMutex sync.RWMutex
}

type ConfigOptions struct {
	BasePath  string
	FileName  string
	FileType  string
	EnvPrefix string
	// Fs is the filesystem config files are read from. Defaults to the OS.
	Fs        afero.Fs
	// AllowMissing loads an empty config when no file is found, leaving
	// struct defaults and environment variables.
	AllowMissing bool
	WatchAble    bool
	OnChange     func(e fsnotify.Event)
}
