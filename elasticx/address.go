package elasticx

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/gridsearch/x/errorx"
	"github.com/gridsearch/x/loggerx"
	"go.opentelemetry.io/otel/attribute"
)

// Resolver looks up the addresses of a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// resolveAddresses turns `host:port` entries into cluster URLs. Malformed or unresolvable
// entries are logged and skipped; it fails only when nothing survives.
func resolveAddresses(ctx context.Context, l *loggerx.Logger, r Resolver, addresses []string) ([]string, error) {
	urls := make([]string, 0, len(addresses))
	for _, raw := range addresses {
		u, err := resolveAddress(ctx, r, raw)
		if err != nil {
			l.WithError(err).Warn(ctx, "skipping elastic address", attribute.String("address", raw))
			continue
		}
		urls = append(urls, u)
	}

	if len(urls) == 0 {
		return nil, errorx.InvalidArgumentErrorf("no usable elastic address in %v", addresses)
	}

	return urls, nil
}

func resolveAddress(ctx context.Context, r Resolver, raw string) (string, error) {
	addr := strings.TrimSpace(raw)
	scheme := "http"
	if i := strings.Index(addr, "://"); i >= 0 {
		scheme, addr = addr[:i], addr[i+3:]
		if scheme != "http" && scheme != "https" {
			return "", errorx.InvalidArgumentErrorf("unsupported scheme %q", scheme)
		}
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", errorx.InvalidArgumentErrorf("expected host:port, got %q", raw).WithOriginalError(err)
	}
	if host == "" {
		return "", errorx.InvalidArgumentErrorf("missing host in %q", raw)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", errorx.InvalidArgumentErrorf("invalid port in %q", raw)
	}

	if _, err := r.LookupHost(ctx, host); err != nil {
		return "", errorx.InvalidArgumentErrorf("unknown host %q", host).WithOriginalError(err)
	}

	return scheme + "://" + net.JoinHostPort(host, portStr), nil
}
