package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Host     string   `koanf:"host"`
	Port     int      `koanf:"port"`
	Google   Google   `koanf:"google"`
	Database Database `koanf:"db"`
	Sync     Sync     `koanf:"sync"`
}

type Google struct {
	ClientId     string `koanf:"clientid"`
	ClientSecret string `koanf:"clientsecret"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

// Sync tunes the calendar synchronization engine.
type Sync struct {
	// ChunkSize is the number of (user, event) items dispatched concurrently.
	ChunkSize int `koanf:"chunksize"`
	// ChunkPause is the pause inserted between two consecutive chunks.
	ChunkPause time.Duration `koanf:"chunkpause"`
	// Interval of the scheduled pull sync. Zero disables the scheduler.
	Interval time.Duration `koanf:"interval"`
	// MaxRetries bounds the backoff retries of a rate limited provider call.
	MaxRetries uint64 `koanf:"maxretries"`
	// RequestTimeout is the write deadline of a pull sync started over HTTP.
	RequestTimeout time.Duration `koanf:"requesttimeout"`
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Application{
		Host: "http://localhost:3000",
		Port: 8181,
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "lernio",
			Pass:   "",
			Name:   "lernio",
			Schema: "lernio",
		},
		Sync: Sync{
			ChunkSize:      10,
			ChunkPause:     time.Second,
			Interval:       time.Hour,
			MaxRetries:     5,
			RequestTimeout: 10 * time.Minute,
		},
	}, "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "LERNIO_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "LERNIO_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
