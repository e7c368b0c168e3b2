//go:build linux

// Command router runs the IPv4 software router dataplane over raw sockets.
//
// Usage:
//
//	router [flags] <routing-table-file> <iface0> <iface1> ...
//
// The routing table file holds one route per line:
//
//	<prefix> <next-hop> <mask> <interface-index>
//
// where the addresses are dotted quads and the interface index refers to
// the position of the interface name on the command line.
//
// Requires CAP_NET_RAW (typically root).
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/netstacklab/router/pkg/ip"
	"github.com/netstacklab/router/pkg/link"
	"github.com/netstacklab/router/pkg/router"
)

func main() {
	var (
		pcapPath = flag.String("pcap", "", "record all traffic to a pcap file")
		announce = flag.Bool("announce", false, "send gratuitous ARP for every interface at startup")
		debug    = flag.Bool("debug", false, "enable per-frame debug logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <routing-table-file> <iface0> <iface1> ...\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(flag.Arg(0), flag.Args()[1:], *pcapPath, *announce, logger); err != nil {
		logger.Error("router failed", "err", err)
		os.Exit(1)
	}
}

func run(tablePath string, ifaceNames []string, pcapPath string, announce bool, logger *slog.Logger) error {
	routes, err := ip.LoadTable(tablePath, logger)
	if err != nil {
		return err
	}
	logger.Info("routing table loaded", "routes", len(routes), "file", tablePath)

	afp, err := link.OpenAFPacket(ifaceNames, logger)
	if err != nil {
		return err
	}
	defer afp.Close()

	var dataplaneLink router.Link = afp
	if pcapPath != "" {
		f, err := os.Create(pcapPath)
		if err != nil {
			return fmt.Errorf("create pcap file: %w", err)
		}
		defer f.Close()
		tap, err := link.NewPcapTap(afp, f)
		if err != nil {
			return fmt.Errorf("start pcap capture: %w", err)
		}
		dataplaneLink = tap
		logger.Info("recording traffic", "pcap", pcapPath)
	}

	r := router.New(dataplaneLink, router.Config{
		Routes: routes,
		Logger: logger,
	})

	if announce {
		if err := r.Announce(); err != nil {
			return err
		}
	}

	logger.Info("router running", "interfaces", len(ifaceNames))
	return r.Run()
}
