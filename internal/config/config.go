// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/codr1/seitai-booking/internal/catalog"
	"github.com/codr1/seitai-booking/internal/clock"
	"github.com/codr1/seitai-booking/internal/schedule"
)

type DatabaseConfig struct {
	// Driver is "sqlite" or "memory". The memory driver exists for demos
	// and tests; it loses every booking on restart.
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type HoursConfig struct {
	Open       string `yaml:"open"`
	Close      string `yaml:"close"`
	LunchStart string `yaml:"lunch_start,omitempty"`
	LunchEnd   string `yaml:"lunch_end,omitempty"`
}

type ClinicConfig struct {
	Hours          HoursConfig  `yaml:"hours"`
	Saturday       *HoursConfig `yaml:"saturday,omitempty"`
	ClosedWeekdays []int        `yaml:"closed_weekdays"`

	// NotifyEmail receives the nightly day sheet.
	NotifyEmail string `yaml:"notify_email,omitempty"`
	// DaySheetTime is the local "HH:MM" the day sheet goes out.
	DaySheetTime string `yaml:"day_sheet_time,omitempty"`
}

type ServiceConfig struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name"`
	DurationMinutes int    `yaml:"duration_minutes"`
	// Price is a non-negative yen amount, or "consult" / empty when the
	// price is quoted at the clinic.
	Price           string `yaml:"price,omitempty"`
	Description     string `yaml:"description,omitempty"`
	FirstTimeOnly   bool   `yaml:"first_time_only,omitempty"`
	SlotStepMinutes int    `yaml:"slot_step_minutes,omitempty"`
	SlotMinutes     []int  `yaml:"slot_minutes,omitempty"`
}

type EmailConfig struct {
	Region          string `yaml:"region"`
	Sender          string `yaml:"sender"`
	AccessKeyID     string `yaml:"-"` // Loaded from environment
	SecretAccessKey string `yaml:"-"` // Loaded from environment
}

type Config struct {
	App struct {
		Name          string `yaml:"name"`
		Environment   string `yaml:"environment"`
		Port          int    `yaml:"port"`
		BaseURL       string `yaml:"base_url"`
		SessionSecret string `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Database DatabaseConfig  `yaml:"database"`
	Clinic   ClinicConfig    `yaml:"clinic"`
	Menu     []ServiceConfig `yaml:"menu,omitempty"`
	Email    EmailConfig     `yaml:"email,omitempty"`

	Features struct {
		EnableEmail    bool `yaml:"enable_email"`
		EnableDaySheet bool `yaml:"enable_day_sheet"`
		EnableDebug    bool `yaml:"enable_debug"`
	} `yaml:"features"`
}

// Load loads both .env and yaml configuration.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Load sensitive values from environment
	cfg.App.SessionSecret = os.Getenv("SESSION_SECRET")
	cfg.Email.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	cfg.Email.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration the clinic runs with when the yaml file
// omits a section: stock hours, stock menu, sqlite storage.
func Default() *Config {
	cfg := &Config{}
	cfg.App.Name = "Seitai Booking"
	cfg.App.Environment = "development"
	cfg.App.Port = 8080
	cfg.Database.Driver = "sqlite"
	cfg.Database.Filename = "data/bookings.db"
	cfg.Clinic = ClinicConfig{
		Hours: HoursConfig{
			Open:       "10:00",
			Close:      "20:00",
			LunchStart: "14:00",
			LunchEnd:   "15:00",
		},
		Saturday:       &HoursConfig{Open: "10:00", Close: "13:00"},
		ClosedWeekdays: []int{0},
		DaySheetTime:   "20:30",
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if _, err := c.Calendar(); err != nil {
		return err
	}
	if _, err := c.Catalog(); err != nil {
		return err
	}

	if c.Features.EnableEmail || c.Features.EnableDaySheet {
		if c.Email.Region == "" || c.Email.Sender == "" {
			return fmt.Errorf("email region and sender are required when email features are enabled")
		}
	}
	if c.Features.EnableDaySheet {
		if c.Clinic.NotifyEmail == "" {
			return fmt.Errorf("clinic notify_email is required for the day sheet")
		}
		if _, err := clock.ParseTime(c.Clinic.DaySheetTime); err != nil {
			return fmt.Errorf("clinic day_sheet_time: %w", err)
		}
	}

	return nil
}

// Calendar builds the schedule calendar from the configured hours.
func (c *Config) Calendar() (*schedule.Calendar, error) {
	weekday, err := c.Clinic.Hours.dayHours()
	if err != nil {
		return nil, fmt.Errorf("clinic hours: %w", err)
	}

	var saturday *schedule.DayHours
	if c.Clinic.Saturday != nil {
		hours, err := c.Clinic.Saturday.dayHours()
		if err != nil {
			return nil, fmt.Errorf("clinic saturday hours: %w", err)
		}
		saturday = &hours
	}

	closed := make([]time.Weekday, 0, len(c.Clinic.ClosedWeekdays))
	for _, day := range c.Clinic.ClosedWeekdays {
		if day < 0 || day > 6 {
			return nil, fmt.Errorf("closed weekday %d out of range", day)
		}
		closed = append(closed, time.Weekday(day))
	}

	return schedule.NewCalendar(weekday, saturday, closed)
}

// Catalog builds the service menu; an empty menu section falls back to the
// stock clinic menu.
func (c *Config) Catalog() (*catalog.Catalog, error) {
	if len(c.Menu) == 0 {
		return catalog.Default(), nil
	}

	services := make([]catalog.Service, 0, len(c.Menu))
	for _, item := range c.Menu {
		svc := catalog.Service{
			ID:            item.ID,
			Name:          item.Name,
			Duration:      item.DurationMinutes,
			Description:   item.Description,
			FirstTimeOnly: item.FirstTimeOnly,
			SlotStep:      item.SlotStepMinutes,
			SlotMinutes:   item.SlotMinutes,
		}
		price, err := parsePrice(item.Price)
		if err != nil {
			return nil, fmt.Errorf("service %q: %w", item.ID, err)
		}
		svc.Price = price
		services = append(services, svc)
	}
	return catalog.New(services)
}

// parsePrice maps "" and "consult" to an unset price; anything else must be
// a non-negative integer.
func parsePrice(raw string) (*int, error) {
	if raw == "" || raw == "consult" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return nil, fmt.Errorf("price must be a non-negative integer or \"consult\"")
	}
	return &value, nil
}

func (h HoursConfig) dayHours() (schedule.DayHours, error) {
	open, err := clock.ParseTime(h.Open)
	if err != nil {
		return schedule.DayHours{}, fmt.Errorf("open: %w", err)
	}
	close, err := clock.ParseTime(h.Close)
	if err != nil {
		return schedule.DayHours{}, fmt.Errorf("close: %w", err)
	}

	hours := schedule.DayHours{Open: open, Close: close}

	// Lunch break fields come in pairs.
	if (h.LunchStart == "") != (h.LunchEnd == "") {
		return schedule.DayHours{}, fmt.Errorf("lunch_start and lunch_end must both be set or both be empty")
	}
	if h.LunchStart != "" {
		start, err := clock.ParseTime(h.LunchStart)
		if err != nil {
			return schedule.DayHours{}, fmt.Errorf("lunch_start: %w", err)
		}
		end, err := clock.ParseTime(h.LunchEnd)
		if err != nil {
			return schedule.DayHours{}, fmt.Errorf("lunch_end: %w", err)
		}
		hours.Lunch = &clock.Interval{Start: start, End: end}
	}

	return hours, nil
}
