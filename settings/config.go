package settings

import (
	indexfile "SeqIndex/storage_engine/access/indexfile_manager"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database Database `yaml:"database"`
	Index    Index    `yaml:"index"`
	Logger   Logger   `yaml:"logger"`
}

// Database is where the indexes live
type Database struct {
	Dir string `yaml:"dir"`
}

// Index is the shape of newly created indexes and their cache sizes
type Index struct {
	Order     int   `yaml:"order"`
	Fill      int   `yaml:"fill"`
	Order2    int   `yaml:"order2"`
	Fill2     int   `yaml:"fill2"`
	PageSize  int   `yaml:"pagesize"`
	CacheSize int   `yaml:"cachesize"`
	KwLimit   int   `yaml:"kwlimit"`
	NodeCache int64 `yaml:"nodecache"` // bytes, 0 disables
}

// Logger is the configuration for the logger
type Logger struct {
	LogLevel    string `yaml:"log_level"`
	FileLogName string `yaml:"file_log_name"`
	MaxBackups  int    `yaml:"max_backups"`
	MaxAge      int    `yaml:"max_age"`
	MaxSize     int    `yaml:"max_size"`
	Compress    bool   `yaml:"compress"`
}

func Default() Config {
	o := indexfile.DefaultOptions()
	return Config{
		Database: Database{Dir: "."},
		Index: Index{
			Order:     o.Order,
			Fill:      o.Fill,
			Order2:    o.Order2,
			Fill2:     o.Fill2,
			PageSize:  o.PageSize,
			CacheSize: o.CacheSize,
			KwLimit:   o.KwLimit,
			NodeCache: o.NodeCacheCost,
		},
		Logger: Logger{LogLevel: "info", MaxSize: 100, MaxBackups: 3, MaxAge: 28},
	}
}

// Load reads path over the defaults. An empty path or a missing file gives
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(err, "failed to read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config %s", path)
	}
	return cfg, nil
}

// IndexOptions turns the index section into index options.
func (c Config) IndexOptions() indexfile.Options {
	return indexfile.Options{
		Order:         c.Index.Order,
		Fill:          c.Index.Fill,
		Order2:        c.Index.Order2,
		Fill2:         c.Index.Fill2,
		PageSize:      c.Index.PageSize,
		CacheSize:     c.Index.CacheSize,
		KwLimit:       c.Index.KwLimit,
		NodeCacheCost: c.Index.NodeCache,
	}
}
