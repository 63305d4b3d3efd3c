package chi

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	logpkg "github.com/kailas-cloud/opsearch/internal/logger"
)

// limiterResetInterval bounds the memory held by per-client limiters.
const limiterResetInterval = time.Hour

// RateLimiter throttles requests per client IP with a token bucket.
type RateLimiter struct {
	rps     rate.Limit
	burst   int
	proxies proxyTrust
	now     func() time.Time

	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	lastCleanup time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second per IP
// with the given burst. Forwarding headers are read only from trustedProxies.
func NewRateLimiter(rps float64, burst int, trustedProxies ...string) *RateLimiter {
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    max(1, burst),
		proxies:  newProxyTrust(trustedProxies),
		now:      time.Now,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Middleware rejects requests over the limit with 429. Health and metrics are exempt.
func (l *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExempt(r) {
				next.ServeHTTP(w, r)
				return
			}

			ip := l.proxies.clientIP(r)
			if !l.limiter(ip).AllowN(l.now(), 1) {
				logpkg.FromContext(r.Context()).Warn("rate limit exceeded", zap.String("ip", ip))
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, ErrorCodeRateLimited, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *RateLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.lastCleanup.IsZero() {
		l.lastCleanup = now
	}
	if now.Sub(l.lastCleanup) > limiterResetInterval {
		l.limiters = make(map[string]*rate.Limiter)
		l.lastCleanup = now
	}

	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[ip] = lim
	}
	return lim
}

// proxyTrust lists the peers allowed to set X-Forwarded-For and X-Real-IP.
type proxyTrust []netip.Prefix

// newProxyTrust parses IPs and CIDRs. Unparseable entries are skipped.
func newProxyTrust(entries []string) proxyTrust {
	var p proxyTrust
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if prefix, err := netip.ParsePrefix(e); err == nil {
			p = append(p, prefix.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(e); err == nil {
			p = append(p, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
		}
	}
	return p
}

func (p proxyTrust) trusts(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range p {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP returns the peer address. Behind a trusted proxy it walks
// X-Forwarded-For right to left and returns the first untrusted hop.
func (p proxyTrust) clientIP(r *http.Request) string {
	remote := r.RemoteAddr
	if ip, _, err := net.SplitHostPort(remote); err == nil {
		remote = ip
	}
	if !p.trusts(remote) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop != "" && !p.trusts(hop) {
				return hop
			}
		}
		if first := strings.TrimSpace(hops[0]); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return remote
}
