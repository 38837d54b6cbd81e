package config

import (
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				App:  AppConfig{Name: "saginctl"},
				HTTP: HTTPConfig{Port: 8080},
				Log:  LogConfig{Level: "info"},
				Sim:  SimConfig{NormalAdmission: 0.90, EmergencyAdmission: 0.95, MaxStepsPerHop: 12},
			},
			wantErr: false,
		},
		{
			name: "missing app name",
			cfg: Config{
				HTTP: HTTPConfig{Port: 8080},
				Log:  LogConfig{Level: "info"},
				Sim:  SimConfig{NormalAdmission: 0.90, EmergencyAdmission: 0.95, MaxStepsPerHop: 12},
			},
			wantErr: true,
		},
		{
			name: "invalid port - zero",
			cfg: Config{
				App:  AppConfig{Name: "test"},
				HTTP: HTTPConfig{Port: 0},
				Sim:  SimConfig{NormalAdmission: 0.90, EmergencyAdmission: 0.95, MaxStepsPerHop: 12},
			},
			wantErr: true,
		},
		{
			name: "invalid port - too high",
			cfg: Config{
				App:  AppConfig{Name: "test"},
				HTTP: HTTPConfig{Port: 70000},
				Sim:  SimConfig{NormalAdmission: 0.90, EmergencyAdmission: 0.95, MaxStepsPerHop: 12},
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			cfg: Config{
				App:  AppConfig{Name: "test"},
				HTTP: HTTPConfig{Port: 8080},
				Log:  LogConfig{Level: "invalid"},
				Sim:  SimConfig{NormalAdmission: 0.90, EmergencyAdmission: 0.95, MaxStepsPerHop: 12},
			},
			wantErr: true,
		},
		{
			name: "valid debug level",
			cfg: Config{
				App:  AppConfig{Name: "test"},
				HTTP: HTTPConfig{Port: 8080},
				Log:  LogConfig{Level: "debug"},
				Sim:  SimConfig{NormalAdmission: 0.90, EmergencyAdmission: 0.95, MaxStepsPerHop: 12},
			},
			wantErr: false,
		},
		{
			name: "emergency admission below normal",
			cfg: Config{
				App:  AppConfig{Name: "test"},
				HTTP: HTTPConfig{Port: 8080},
				Log:  LogConfig{Level: "info"},
				Sim:  SimConfig{NormalAdmission: 0.95, EmergencyAdmission: 0.90, MaxStepsPerHop: 12},
			},
			wantErr: true,
		},
		{
			name: "zero max steps per hop",
			cfg: Config{
				App:  AppConfig{Name: "test"},
				HTTP: HTTPConfig{Port: 8080},
				Log:  LogConfig{Level: "info"},
				Sim:  SimConfig{NormalAdmission: 0.90, EmergencyAdmission: 0.95, MaxStepsPerHop: 0},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"development", true},
		{"dev", true},
		{"production", false},
		{"staging", false},
	}

	for _, tt := range tests {
		cfg := &Config{App: AppConfig{Environment: tt.env}}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment() for %s = %v, want %v", tt.env, got, tt.want)
		}
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"production", true},
		{"prod", true},
		{"development", false},
		{"staging", false},
	}

	for _, tt := range tests {
		cfg := &Config{App: AppConfig{Environment: tt.env}}
		if got := cfg.IsProduction(); got != tt.want {
			t.Errorf("IsProduction() for %s = %v, want %v", tt.env, got, tt.want)
		}
	}
}

func TestStoreConfig_DSN(t *testing.T) {
	cfg := StoreConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "sagin",
		Username: "user",
		Password: "pass",
		SSLMode:  "disable",
	}

	want := "host=localhost port=5432 user=user password=pass dbname=sagin sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("expected DSN %s, got %s", want, got)
	}
}

func TestCacheConfig_Address(t *testing.T) {
	cfg := CacheConfig{
		Host: "redis.local",
		Port: 6379,
	}

	addr := cfg.Address()
	if addr != "redis.local:6379" {
		t.Errorf("expected 'redis.local:6379', got %s", addr)
	}
}
