package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.Driver != DriverMongo {
		t.Errorf("Expected default driver mongo, got %s", cfg.Store.Driver)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 10*time.Second {
		t.Errorf("Expected 10s request timeout, got %v", cfg.Server.RequestTimeout)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("REQUEST_TIMEOUT", "3s")
	t.Setenv("API_TOKEN", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Expected DB host from env, got %s", cfg.Database.Host)
	}
	if cfg.Database.MaxOpenConns != 7 {
		t.Errorf("Expected 7 max open conns, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Server.RequestTimeout != 3*time.Second {
		t.Errorf("Expected 3s request timeout, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.APIToken != "secret" {
		t.Errorf("Expected API token from env, got %q", cfg.Server.APIToken)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("DB_MAX_OPEN_CONNS", "many")
	t.Setenv("SERVER_READ_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("Expected fallback 25, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("Expected fallback 15s, got %v", cfg.Server.ReadTimeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"memory driver", func(c *Config) { c.Store.Driver = DriverMemory }, false},
		{"unknown driver", func(c *Config) { c.Store.Driver = "sqlite" }, true},
		{"mongo without database", func(c *Config) { c.Mongo.Database = "" }, true},
		{"postgres without host", func(c *Config) { c.Store.Driver = DriverPostgres; c.Database.Host = "" }, true},
		{"zero request timeout", func(c *Config) { c.Server.RequestTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Server:   ServerConfig{RequestTimeout: time.Second},
				Store:    StoreConfig{Driver: DriverMongo},
				Mongo:    MongoConfig{URI: "mongodb://localhost:27017", Database: "cafe"},
				Database: DatabaseConfig{Host: "localhost", Name: "cafe"},
			}
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetDSN(t *testing.T) {
	c := &DatabaseConfig{Host: "h", Port: "1", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	want := "host=h port=1 user=u password=p dbname=n sslmode=disable"
	if got := c.GetDSN(); got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}
}
