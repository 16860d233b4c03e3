package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type DB struct {
	Driver   string `yaml:"driver"` // postgres | sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Pass     string `yaml:"password"`
	Name     string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
	Path     string `yaml:"path"` // sqlite file
	Migrate  bool   `yaml:"migrate"`
}

// DSN is the pgx connection string for the postgres driver.
func (d DB) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Pass),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

type MQ struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	User    string `yaml:"user"`
	Pass    string `yaml:"password"`
	VHost   string `yaml:"vhost"`
	UseTLS  bool   `yaml:"tls"`
}

type Feed struct {
	Source  string `yaml:"source"` // postgres | amqp | none
	Channel string `yaml:"channel"`
	Queue   string `yaml:"queue"`
}

type Device struct {
	Name   string `yaml:"name"`
	Port   string `yaml:"port"`
	Status string `yaml:"status"`
}

type Printers struct {
	Kitchen         string        `yaml:"kitchen"`
	Cashier         string        `yaml:"cashier"`
	Target          string        `yaml:"target"`
	Vendor          string        `yaml:"vendor"`
	PortPriority    string        `yaml:"port_priority"` // AUTO | USB | TMUSB | any port prefix
	Discovery       string        `yaml:"discovery"`     // cups | static
	Devices         []Device      `yaml:"devices"`
	SelfTest        bool          `yaml:"self_test"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

type Dispatcher struct {
	PollInterval    time.Duration `yaml:"poll_interval"`
	DeliveryTimeout time.Duration `yaml:"delivery_timeout"`
	Workers         int           `yaml:"workers"`
	QueueSize       int           `yaml:"queue_size"`
	// HistoryRetention bounds the print attempt log; zero keeps it forever.
	HistoryRetention time.Duration `yaml:"history_retention"`
}

type HTTP struct {
	Addr   string `yaml:"addr"`
	Intake bool   `yaml:"intake"` // mount POST /api/v1/orders
}

type Ticket struct {
	Brand          []string `yaml:"brand"`
	Footer         string   `yaml:"footer"`
	Currency       string   `yaml:"currency"`
	DefaultPayment string   `yaml:"default_payment"`
}

type App struct {
	LogLevel   string     `yaml:"log_level"`
	Database   DB         `yaml:"database"`
	Rabbit     MQ         `yaml:"rabbitmq"`
	Feed       Feed       `yaml:"feed"`
	Printers   Printers   `yaml:"printers"`
	Dispatcher Dispatcher `yaml:"dispatcher"`
	HTTP       HTTP       `yaml:"http"`
	Ticket     Ticket     `yaml:"ticket"`
}

// ErrNoStoreCredentials is the one configuration error the dispatcher
// cannot run without.
var ErrNoStoreCredentials = errors.New("invalid config: missing order store connection settings")

func Default() App {
	return App{
		LogLevel: "info",
		Database: DB{Driver: "postgres", Port: 5432, SSLMode: "disable", MaxConns: 10},
		Rabbit:   MQ{Port: 5672, VHost: "/"},
		Feed:     Feed{Source: "postgres", Channel: "orders_inserted", Queue: "orders_inserted"},
		Printers: Printers{
			Vendor:          "EPSON",
			PortPriority:    "AUTO",
			Discovery:       "cups",
			RefreshInterval: time.Minute,
		},
		Dispatcher: Dispatcher{
			PollInterval:     5 * time.Second,
			DeliveryTimeout:  5 * time.Second,
			Workers:          4,
			QueueSize:        256,
			HistoryRetention: 30 * 24 * time.Hour,
		},
		HTTP: HTTP{Addr: ":9090"},
		Ticket: Ticket{
			Brand:          []string{"MITAKE RAMEN", "TICKET CLIENT"},
			Footer:         "Merci de votre visite !",
			Currency:       "EUR",
			DefaultPayment: "CB / Especes",
		},
	}
}

func Load(path string) (App, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return App{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults, then applies environment overrides
// and validates.
func Parse(b []byte) (App, error) {
	a := Default()
	if err := yaml.Unmarshal(b, &a); err != nil {
		return App{}, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&a)
	if err := a.Validate(); err != nil {
		return App{}, err
	}
	return a, nil
}

var envOverrides = []struct {
	key string
	set func(a *App, v string)
}{
	{"PRINTER_KITCHEN_NAME", func(a *App, v string) { a.Printers.Kitchen = v }},
	{"PRINTER_CASHIER_NAME", func(a *App, v string) { a.Printers.Cashier = v }},
	{"TARGET_PRINTER_NAME", func(a *App, v string) { a.Printers.Target = v }},
	{"PRINTER_PORT_PRIORITY", func(a *App, v string) { a.Printers.PortPriority = v }},
	{"DATABASE_PASSWORD", func(a *App, v string) { a.Database.Pass = v }},
	{"RABBITMQ_PASSWORD", func(a *App, v string) { a.Rabbit.Pass = v }},
}

func applyEnv(a *App) {
	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.key); ok && strings.TrimSpace(v) != "" {
			o.set(a, strings.TrimSpace(v))
		}
	}
}

func (a App) Validate() error {
	switch a.Database.Driver {
	case "postgres":
		if a.Database.Host == "" || a.Database.User == "" || a.Database.Name == "" {
			return ErrNoStoreCredentials
		}
	case "sqlite":
		if a.Database.Path == "" {
			return ErrNoStoreCredentials
		}
	default:
		return fmt.Errorf("invalid config: unknown database driver %q", a.Database.Driver)
	}
	switch a.Feed.Source {
	case "postgres":
		if a.Database.Driver != "postgres" {
			return errors.New("invalid config: feed source postgres needs the postgres driver")
		}
	case "amqp":
		if !a.Rabbit.Enabled || a.Rabbit.Host == "" {
			return errors.New("invalid config: feed source amqp needs rabbitmq.enabled and rabbitmq.host")
		}
	case "none":
	default:
		return fmt.Errorf("invalid config: unknown feed source %q", a.Feed.Source)
	}
	if a.Dispatcher.PollInterval <= 0 || a.Dispatcher.DeliveryTimeout <= 0 {
		return errors.New("invalid config: dispatcher intervals must be positive")
	}
	if a.Dispatcher.Workers <= 0 {
		return errors.New("invalid config: dispatcher.workers must be positive")
	}
	return nil
}

func FindConfig() (string, error) {
	candidates := []string{"config.yaml", "deploy/config.example.yaml"}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fs.ErrNotExist
}
