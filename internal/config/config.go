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
	Host         string       `koanf:"host"`
	Port         int          `koanf:"port"`
	Frontend     Frontend     `koanf:"frontend"`
	Google       Google       `koanf:"google"`
	Store        Store        `koanf:"store"`
	Database     Database     `koanf:"db"`
	Schedule     Schedule     `koanf:"schedule"`
	Session      Session      `koanf:"session"`
	Subscription Subscription `koanf:"subscription"`
}

type Frontend struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

type Google struct {
	ClientId     string `koanf:"clientid"`
	ClientSecret string `koanf:"clientsecret"`
}

type StoreDriver string

const (
	MemoryDriver   StoreDriver = "memory"
	PostgresDriver StoreDriver = "postgres"
)

type Store struct {
	Driver StoreDriver `koanf:"driver"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Schedule struct {
	// Timezone used to combine form dates and times; empty means the server's local zone.
	Timezone           string        `koanf:"timezone"`
	DefaultOwnColor    string        `koanf:"defaultowncolor"`
	DefaultFriendColor string        `koanf:"defaultfriendcolor"`
	Page               string        `koanf:"page"`
	HangoutPage        string        `koanf:"hangoutpage"`
	LoginPage          string        `koanf:"loginpage"`
	PromptTimeout      time.Duration `koanf:"prompttimeout"`
}

type Session struct {
	CookieName string        `koanf:"cookiename"`
	TTL        time.Duration `koanf:"ttl"`
}

type Subscription struct {
	RetryAttempts uint          `koanf:"retryattempts"`
	RetryDelay    time.Duration `koanf:"retrydelay"`
	RetryMaxDelay time.Duration `koanf:"retrymaxdelay"`
}

func Defaults() Application {
	return Application{
		Host: "http://localhost:8181",
		Port: 8181,
		Frontend: Frontend{
			Enabled: true,
			Dir:     "frontend",
		},
		Store: Store{
			Driver: MemoryDriver,
		},
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "hangout",
			Pass:   "",
			Name:   "hangout",
			Schema: "hangout",
		},
		Schedule: Schedule{
			DefaultOwnColor:    "#3788d8",
			DefaultFriendColor: "#6c757d",
			Page:               "/schedule.html",
			HangoutPage:        "/hangout.html",
			LoginPage:          "/login.html",
			PromptTimeout:      2 * time.Minute,
		},
		Session: Session{
			CookieName: "hangout_session",
			TTL:        14 * 24 * time.Hour,
		},
		Subscription: Subscription{
			RetryAttempts: 0,
			RetryDelay:    500 * time.Millisecond,
			RetryMaxDelay: 30 * time.Second,
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
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

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: "HANGOUT_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "HANGOUT_")), "_", ".")
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

// Location resolves the schedule timezone, falling back to the local zone.
func (s Schedule) Location() *time.Location {
	if s.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		log.Warnf("unknown schedule timezone %q, using local time: %v", s.Timezone, err)
		return time.Local
	}
	return loc
}
