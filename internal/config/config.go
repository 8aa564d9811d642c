// Package config loads a RunConfig for either a sender or receiver
// process: endpoint string, .mes file path, protocol/mode, handshake
// approve count, and the ambient metrics/telemetry toggles, using viper
// for YAML plus environment overlay, with defaults for any key that
// neither the file nor the environment sets.
package config

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// MetricsConfig toggles the prometheus/pprof HTTP servers.
type MetricsConfig struct {
	Enable bool
	Port   int
}

// TelemetryConfig selects an optional forwarder for C11 log lines.
type TelemetryConfig struct {
	Backend  string // "", "amqp", or "stomp"
	URL      string
	Exchange string // amqp exchange, or stomp topic
	Username string // stomp only
	Password string // stomp only
	Host     string // stomp virtual host
	UseTLS   bool   // stomp only
}

// RunConfig is the fully resolved configuration for one sender or receiver
// process.
type RunConfig struct {
	ListenIP     string
	ListenPort   int
	PeerAddr     string // receiver only
	Protocol     string // "tcp" or "udp"
	Mode         string // "blocking" or "nonblocking"
	FilePath     string // sender: input .mes path
	OutputPath   string // receiver: output .mes path
	ApproveCount int
	Debug        bool

	Metrics   MetricsConfig
	Telemetry TelemetryConfig
}

// EndpointString renders the fields the netio endpoint parser expects:
// "ip:port" for a server role, "ip:port peer-ip:peer-port" for a client
// role, with an optional trailing "mode=" field.
func (c RunConfig) EndpointString() string {
	local := fmt.Sprintf("%s:%d", c.ListenIP, c.ListenPort)
	parts := []string{local}
	if c.PeerAddr != "" {
		parts = append(parts, c.PeerAddr)
	}
	if c.Mode == "nonblocking" {
		parts = append(parts, "mode=nonblocking")
	}
	return strings.Join(parts, " ")
}

// Load reads configPaths (directories searched in order via AddConfigPath)
// for a "config.yaml", overlays environment variables, and returns the
// resolved RunConfig. logger is used only for debug-level tracing of what
// was read; it may be nil.
func Load(configPaths []string, logger logrus.FieldLogger) (RunConfig, error) {
	if logger == nil {
		logger = logrus.New()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return RunConfig{}, errors.Wrap(err, "config: reading config file")
		}
		logger.Debugln("config: no config file found, relying on defaults and environment")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("listen.ip", "0.0.0.0")
	v.SetDefault("listen.port", 9700)
	v.SetDefault("protocol", "tcp")
	v.SetDefault("mode", "blocking")
	v.SetDefault("approve_count", 3)
	v.SetDefault("metrics.enable", false)
	v.SetDefault("metrics.port", 9701)

	cfg := RunConfig{
		ListenIP:     v.GetString("listen.ip"),
		ListenPort:   v.GetInt("listen.port"),
		PeerAddr:     v.GetString("peer.addr"),
		Protocol:     v.GetString("protocol"),
		Mode:         v.GetString("mode"),
		FilePath:     v.GetString("file.path"),
		OutputPath:   v.GetString("output.path"),
		ApproveCount: v.GetInt("approve_count"),
		Debug:        v.GetBool("debug"),
		Metrics: MetricsConfig{
			Enable: v.GetBool("metrics.enable"),
			Port:   v.GetInt("metrics.port"),
		},
		Telemetry: TelemetryConfig{
			Backend:  v.GetString("telemetry.backend"),
			URL:      v.GetString("telemetry.url"),
			Exchange: v.GetString("telemetry.exchange"),
			Username: v.GetString("telemetry.username"),
			Password: v.GetString("telemetry.password"),
			Host:     v.GetString("telemetry.host"),
			UseTLS:   v.GetBool("telemetry.tls"),
		},
	}

	logger.Debugln("config: listen endpoint:", cfg.ListenIP, cfg.ListenPort)
	logger.Debugln("config: protocol/mode:", cfg.Protocol, cfg.Mode)
	return cfg, nil
}
