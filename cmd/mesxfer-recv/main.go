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
	"github.com/mesxfer/mesxfer/internal/sink"
	"github.com/mesxfer/mesxfer/internal/telemetry"
)

var (
	version string
	commit  string
	date    string
)

// Options mirrors cmd/mesxfer-send's shape, swapping the file flag for the
// receiver's listen+peer+output triple.
type Options struct {
	Verbose []bool `short:"v" long:"verbose" description:"Show verbose debug information"`
	Version bool   `short:"V" long:"version" description:"Print version information"`
	Config  string `short:"c" long:"config" description:"Configuration file directory to use" default:"."`
	Listen  string `short:"l" long:"listen" description:"Local listen address ip:port, overrides config"`
	Peer    string `short:"r" long:"peer" description:"Remote sender address ip:port, overrides config"`
	Output  string `short:"o" long:"output" description:"Path to write the received .mes file, overrides config"`
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
		logrus.Infoln("mesxfer-recv", version, "commit:", commit, "built on:", date)
		os.Exit(0)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableLevelTruncation: true})
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
		if ep, err := netio.ParseConfig(options.Listen); err == nil {
			local := ep.Local()
			cfg.ListenIP, cfg.ListenPort = local.Addr, int(local.Port)
		} else {
			logger.Errorln("invalid --listen value, keeping config default:", err)
		}
	}
	if options.Peer != "" {
		cfg.PeerAddr = options.Peer
	}
	if options.Output != "" {
		cfg.OutputPath = options.Output
	}
	if options.Proto != "" {
		cfg.Protocol = options.Proto
	}

	if cfg.Metrics.Enable {
		metrics.StartMetrics(cfg.Metrics.Port, logger)
	}

	diagnostics := buildSink(cfg, logger)

	proto := netio.TCP
	if cfg.Protocol == "udp" {
		proto = netio.UDP
	}

	receiver := netio.NewReceiver(proto, cfg.OutputPath, diagnostics)
	receiver.SetDebug(cfg.Debug)

	logger.Infoln("mesxfer-recv starting, dialing", cfg.EndpointString())

	var wait errgroup.Group
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	wait.Go(func() error {
		receiver.Work(cfg.EndpointString())
		if receiver.ShouldContinue() {
			metrics.TransfersCompleted.Inc()
		}
		signal.Stop(sigCh)
		close(sigCh)
		return nil
	})
	wait.Go(func() error {
		if _, ok := <-sigCh; ok {
			logger.Infoln("mesxfer-recv received shutdown signal, stopping")
			receiver.Stop()
		}
		return nil
	})
	wait.Wait()
}

func buildSink(cfg config.RunConfig, logger logrus.FieldLogger) sink.LineSink {
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

	forwarding := telemetry.NewForwardingSink(publisher, telemetry.RoleReceiver, logger)
	queued, err := sink.NewQueuedSink("/tmp/mesxfer-recv-queue", forwarding, logger, func(n int) {
		metrics.QueueDepth.Set(float64(n))
	})
	if err != nil {
		logger.Errorln("failed to start durable queue sink, falling back to direct logging:", err)
		return base
	}
	return queued
}
