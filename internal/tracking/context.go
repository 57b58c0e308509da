package tracking

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/mileusna/useragent"
	"go.uber.org/zap"
)

// ipKeys are the JSON field names the lookup services are known to use.
var ipKeys = []string{"ip", "query", "ip_addr", "ipv4"}

// ContextResolver derives ambient client metadata. The expensive part, the
// public IP lookup, runs at most once per session: the first result (success
// or sentinel) is cached in the store for the session lifetime.
type ContextResolver struct {
	store     Store
	endpoints []string
	timeout   time.Duration
	cacheTTL  time.Duration
	client    *http.Client
	logger    *zap.Logger
}

// NewContextResolver creates a client context resolver. endpoints are tried
// in order; each attempt is bounded by timeout.
func NewContextResolver(store Store, endpoints []string, timeout, cacheTTL time.Duration, logger *zap.Logger) *ContextResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextResolver{
		store:     store,
		endpoints: endpoints,
		timeout:   timeout,
		cacheTTL:  cacheTTL,
		client:    &http.Client{},
		logger:    logger,
	}
}

// ResolveIP returns the best-effort public IP for the session. It never
// fails: exhaustion of all sources yields SentinelIP. The transport-level
// address wins when it is already a public IP.
func (r *ContextResolver) ResolveIP(ctx context.Context, sessionID, remoteAddr string) string {
	if cached, ok, err := r.store.GetIP(ctx, sessionID); err == nil && ok {
		return cached
	}

	ip := SentinelIP
	if public := publicIP(remoteAddr); public != "" {
		ip = public
	} else if looked := r.lookupPublicIP(ctx); looked != "" {
		ip = looked
	}

	if err := r.store.PutIP(ctx, sessionID, ip, r.cacheTTL); err != nil {
		r.logger.Warn("ip cache write failed", zap.Error(err), zap.String("session_id", sessionID))
	}
	return ip
}

// lookupPublicIP consults the ordered endpoint list; first recognizable IP
// wins. Returns "" on exhaustion.
func (r *ContextResolver) lookupPublicIP(ctx context.Context) string {
	for _, endpoint := range r.endpoints {
		ip := r.tryEndpoint(ctx, endpoint)
		if ip != "" {
			return ip
		}
	}
	return ""
}

func (r *ContextResolver) tryEndpoint(ctx context.Context, endpoint string) string {
	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ""
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("ip lookup failed", zap.String("endpoint", endpoint), zap.Error(err))
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ""
	}
	for _, key := range ipKeys {
		if v, ok := body[key].(string); ok && net.ParseIP(v) != nil {
			return v
		}
	}
	return ""
}

// publicIP returns remoteAddr if it parses as a public IP, else "".
func publicIP(remoteAddr string) string {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return ""
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
		return ""
	}
	return ip.String()
}

// ParsedUA is browser/OS/device derived from the User-Agent header.
type ParsedUA struct {
	Browser string
	OS      string
	Device  string
}

// ParseUA extracts browser, OS and device type from a user agent string.
func ParseUA(uaString string) ParsedUA {
	ua := useragent.Parse(uaString)

	out := ParsedUA{Browser: ua.Name, OS: ua.OS}
	if out.Browser == "" {
		out.Browser = "Unknown"
	}
	if out.OS == "" {
		out.OS = "Unknown"
	}
	switch {
	case ua.Mobile:
		out.Device = "mobile"
	case ua.Tablet:
		out.Device = "tablet"
	case ua.Bot:
		out.Device = "bot"
	default:
		out.Device = "desktop"
	}
	return out
}
