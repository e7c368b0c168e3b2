package ip

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/netstacklab/router/pkg/common"
)

// Route is a routing table entry: traffic for Prefix/Mask leaves through
// Interface toward NextHop.
type Route struct {
	Prefix    common.IPv4Address
	Mask      common.IPv4Address
	NextHop   common.IPv4Address
	Interface int
}

// String returns a human-readable representation of the route.
func (r Route) String() string {
	return fmt.Sprintf("%s/%s via %s dev %d", r.Prefix, r.Mask, r.NextHop, r.Interface)
}

// LoadTable reads a routing table from a line-oriented file. Each line holds
// four whitespace-separated fields: prefix, next hop, and mask as dotted
// quads, followed by an interface index.
//
// Blank lines, malformed lines, and zero-mask entries are skipped with a
// debug diagnostic; a zero mask carries no network bits and is treated as
// "no route". Prefixes are masked on load so that prefix & mask == prefix
// holds for every returned route.
func LoadTable(path string, logger *slog.Logger) ([]Route, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open routing table: %w", err)
	}
	defer f.Close()

	var routes []Route
	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			logger.Debug("skipping blank routing table line", "line", lineno)
			continue
		}

		route, err := parseRoute(line)
		if err != nil {
			logger.Debug("skipping routing table line", "line", lineno, "err", err)
			continue
		}
		if route.Mask.IsZero() {
			logger.Debug("skipping zero-mask route", "line", lineno, "route", route)
			continue
		}
		routes = append(routes, maskRoute(route))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read routing table: %w", err)
	}

	return routes, nil
}

func parseRoute(line string) (Route, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return Route{}, fmt.Errorf("expected 4 fields, got %d", len(fields))
	}

	prefix, err := common.ParseIPv4(fields[0])
	if err != nil {
		return Route{}, fmt.Errorf("prefix: %w", err)
	}
	nextHop, err := common.ParseIPv4(fields[1])
	if err != nil {
		return Route{}, fmt.Errorf("next hop: %w", err)
	}
	mask, err := common.ParseIPv4(fields[2])
	if err != nil {
		return Route{}, fmt.Errorf("mask: %w", err)
	}
	iface, err := strconv.Atoi(fields[3])
	if err != nil {
		return Route{}, fmt.Errorf("interface: %w", err)
	}
	if iface < 0 {
		return Route{}, fmt.Errorf("negative interface index: %d", iface)
	}

	return Route{Prefix: prefix, Mask: mask, NextHop: nextHop, Interface: iface}, nil
}

func maskRoute(r Route) Route {
	for i := range r.Prefix {
		r.Prefix[i] &= r.Mask[i]
	}
	return r
}
