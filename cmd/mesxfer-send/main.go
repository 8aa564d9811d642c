package main

import (
	"net/url"
	"os"
	"os/signal"
	"syscall"

	flags "github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mesxfer/mesxfer/internal/config"
	"github.com/mesxfer/mesxfer/internal/metrics"
	"github.com/mesxfer/mesxfer/internal/netio"
	"github.com/mesxfer/mesxfer/internal/session"
	"github.com/mesxfer/mesxfer/internal/sink"
	"github.com/mesxfer/mesxfer/internal/telemetry"
)

var (
	version string
	commit  string
	date    string
)

// Options is the sender's go-flags option set.
type Options struct {
	Verbose []bool `short:"v" long:"verbose" description:"Show verbose debug information"`
	Version bool   `short:"V" long:"version" description:"Print version information"`
	Config  string `short:"c" long:"config" description:"Configuration file directory to use" default:"."`
	Listen  string `short:"l" long:"listen" description:"Listen address ip:port, overrides config"`
	File    string `short:"f" long:"file" description:"Path to the .mes file to send, overrides config"`
	Proto   string `short:"p" long:"proto" description:"Transport protocol: tcp or udp, overrides config"`
}

func main() {
	var options Options
	parser := flags.NewParser(&options, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if options.Version {
		logrus.Infoln("mesxfer-send", version, "commit:", commit, "built on:", date)
		os.Exit(0)
	}

	logger := logrus.New()
	textFormatter := logrus.TextFormatter{FullTimestamp: true, DisableLevelTruncation: true}
	logger.SetFormatter(&textFormatter)
	if len(options.Verbose) > 0 {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	cfg, err := config.Load([]string{options.Config}, logger)
	if err != nil {
		logger.Fatalln("failed to load configuration:", err)
	}
	if options.Listen != "" {
		cfg.ListenIP, cfg.ListenPort = splitListen(options.Listen, cfg.ListenIP, cfg.ListenPort, logger)
	}
	if options.File != "" {
		cfg.FilePath = options.File
	}
	if options.Proto != "" {
		cfg.Protocol = options.Proto
	}

	if cfg.Metrics.Enable {
		metrics.StartMetrics(cfg.Metrics.Port, logger)
	}

	diagnostics := buildSink(cfg, telemetry.RoleSender, logger)

	proto := netio.TCP
	if cfg.Protocol == "udp" {
		proto = netio.UDP
	}

	sender := netio.NewSender(proto, cfg.FilePath, diagnostics)
	sender.SetDebug(cfg.Debug)
	if proto == netio.UDP {
		sender.SetSessionCache(session.NewCache(0))
	}

	logger.Infoln("mesxfer-send starting, listening on", cfg.EndpointString())

	var wait errgroup.Group
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	wait.Go(func() error {
		sender.Work(cfg.EndpointString())
		if sender.ShouldContinue() {
			metrics.TransfersCompleted.Inc()
		}
		signal.Stop(sigCh)
		close(sigCh)
		return nil
	})
	wait.Go(func() error {
		if _, ok := <-sigCh; ok {
			logger.Infoln("mesxfer-send received shutdown signal, stopping")
			sender.Stop()
		}
		return nil
	})
	wait.Wait()
}

func buildSink(cfg config.RunConfig, role telemetry.Role, logger logrus.FieldLogger) sink.LineSink {
	base := sink.NewLogrusSink(logger, nil)
	if cfg.Telemetry.Backend == "" {
		return base
	}

	var publisher telemetry.Publisher
	var err error
	switch cfg.Telemetry.Backend {
	case "amqp":
		publisher, err = telemetry.NewAMQPForwarder(cfg.Telemetry.URL, cfg.Telemetry.Exchange, logger)
	case "stomp":
		addr, parseErr := url.Parse(cfg.Telemetry.URL)
		if parseErr != nil {
			err = parseErr
			break
		}
		publisher = telemetry.NewSTOMPForwarder(
			cfg.Telemetry.Username, cfg.Telemetry.Password, *addr,
			cfg.Telemetry.Host, cfg.Telemetry.Exchange, cfg.Telemetry.UseTLS, logger)
	default:
		logger.Warnln("unknown telemetry backend", cfg.Telemetry.Backend, "- logging locally only")
		return base
	}
	if err != nil {
		logger.Errorln("failed to start telemetry forwarder:", err)
		return base
	}

	forwarding := telemetry.NewForwardingSink(publisher, role, logger)
	queued, err := sink.NewQueuedSink("/tmp/mesxfer-send-queue", forwarding, logger, func(n int) {
		metrics.QueueDepth.Set(float64(n))
	})
	if err != nil {
		logger.Errorln("failed to start durable queue sink, falling back to direct logging:", err)
		return base
	}
	return queued
}

func splitListen(listen, defaultIP string, defaultPort int, logger logrus.FieldLogger) (string, int) {
	ep, err := netio.ParseConfig(listen)
	if err != nil {
		logger.Errorln("invalid --listen value, keeping config default:", err)
		return defaultIP, defaultPort
	}
	local := ep.Local()
	return local.Addr, int(local.Port)
}
