package main

import (
	"io"
	"math/big"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	flags "github.com/jessevdk/go-flags"
	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"
)

var (
	version string
	commit  string
	date    string
)

// Options is the status pollster's go-flags option set, scoped down to
// what a mesxfer transfer's /metrics endpoint actually exposes.
type Options struct {
	Verbose []bool `short:"v" long:"verbose" description:"Show verbose debug information"`
	Version bool   `short:"V" long:"version" description:"Print version information"`
	Period  int    `short:"p" long:"period" description:"Period in seconds between status checks" default:"10"`
	Host    string `short:"H" long:"host" description:"Host:port exposing the mesxfer metrics endpoint" default:"localhost:9701"`
}

// transferStats is the subset of mesxfer_* prometheus counters this
// pollster cares about.
type transferStats struct {
	packetsSent      int64
	packetsReceived  int64
	queueDepth       int64
	transfersDone    int64
	handshakeRetries int64
}

var logger *logrus.Logger

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
		pterm.Println("mesxfer-status", version, "commit:", commit, "built on:", date)
		os.Exit(0)
	}

	logger = logrus.New()
	if len(options.Verbose) > 0 {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	spinnerInitial, _ := pterm.DefaultSpinner.Start("Checking the mesxfer metrics endpoint: " + options.Host)
	initial, err := checkEndpoint(options.Host)
	if err != nil {
		spinnerInitial.Fail("Unable to connect to the mesxfer metrics endpoint")
		logger.Errorln("unable to connect to metrics endpoint:", err)
		os.Exit(1)
	}
	spinnerInitial.Success()

	if initial.queueDepth > 100 {
		pterm.Error.Println("The logging sink queue has", strconv.FormatInt(initial.queueDepth, 10), "lines backed up")
	} else {
		pterm.Success.Println("The logging sink queue is within its normal depth")
	}

	spinnerPeriod, _ := pterm.DefaultSpinner.Start("Waiting " + strconv.Itoa(options.Period) + "s to re-check")
	time.Sleep(time.Duration(options.Period) * time.Second)

	second, err := checkEndpoint(options.Host)
	if err != nil {
		spinnerPeriod.Fail("Unable to re-connect to the mesxfer metrics endpoint")
		os.Exit(1)
	}
	spinnerPeriod.Success()

	if second.packetsSent+second.packetsReceived == initial.packetsSent+initial.packetsReceived {
		pterm.Warning.Println("No new packets were sent or received since the last check")
	} else {
		pterm.Success.Println("Traffic observed since the last check")
	}

	if second.transfersDone > initial.transfersDone {
		pterm.Success.Println("Completed", strconv.FormatInt(second.transfersDone-initial.transfersDone, 10), "transfer(s) since the last check")
	}
}

func checkEndpoint(host string) (transferStats, error) {
	resp, err := http.Get("http://" + host + "/metrics")
	if err != nil {
		return transferStats{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transferStats{}, err
	}
	return parseStats(string(body)), nil
}

func parseMetricValue(line string) int64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	flt, _, err := big.ParseFloat(fields[len(fields)-1], 10, 0, big.ToNearestEven)
	if err != nil {
		logger.Debugln("unable to parse prometheus metric line:", line, err)
		return 0
	}
	v, _ := flt.Int64()
	return v
}

func parseStats(body string) transferStats {
	var stats transferStats
	for _, line := range strings.Split(body, "\n") {
		switch {
		case strings.HasPrefix(line, "mesxfer_packets_sent_total"):
			stats.packetsSent = parseMetricValue(line)
		case strings.HasPrefix(line, "mesxfer_packets_received_total"):
			stats.packetsReceived = parseMetricValue(line)
		case strings.HasPrefix(line, "mesxfer_sink_queue_depth"):
			stats.queueDepth = parseMetricValue(line)
		case strings.HasPrefix(line, "mesxfer_transfers_completed_total"):
			stats.transfersDone = parseMetricValue(line)
		case strings.HasPrefix(line, "mesxfer_handshake_retries_total"):
			stats.handshakeRetries = parseMetricValue(line)
		}
	}
	return stats
}
