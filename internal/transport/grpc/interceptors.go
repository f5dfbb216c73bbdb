package grpc

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"dothework/internal/auth"
)

func RequestTimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}

type TokenVerifier interface {
	Verify(token string) (auth.Principal, error)
}

// AuthInterceptor puts the caller's principal on the context. Requests
// without an authorization header continue anonymously; a header that does
// not verify is rejected.
func AuthInterceptor(v TokenVerifier, log *slog.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "grpc.auth"))

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get("authorization")
		if len(values) == 0 {
			return handler(ctx, req)
		}

		token, ok := auth.BearerToken(values[0])
		if !ok {
			log.Info("malformed authorization header", slog.String("method", info.FullMethod))
			return nil, status.Error(codes.Unauthenticated, "authorization header must be a bearer token")
		}
		p, err := v.Verify(token)
		if err != nil {
			log.Info("token rejected", slog.String("method", info.FullMethod), slog.Any("err", err))
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}

		return handler(auth.WithPrincipal(ctx, p), req)
	}
}

const msgTooManyRequests = "Te veel verzoeken. Probeer het zo opnieuw."

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps a token bucket per caller. Buckets idle for longer than
// the idle window are dropped.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	lastGC   time.Time
	now      func() time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastGC) > rl.idle {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) > rl.idle {
				delete(rl.visitors, k)
			}
		}
		rl.lastGC = now
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// UnaryInterceptor limits authenticated callers by user id and anonymous
// callers by remote host. It must run after AuthInterceptor.
func (rl *RateLimiter) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if rl.limit <= 0 {
			return handler(ctx, req)
		}
		if !rl.Allow(callerKey(ctx)) {
			return nil, status.Error(codes.ResourceExhausted, msgTooManyRequests)
		}
		return handler(ctx, req)
	}
}

// FailedAuthInterceptor charges the remote host's bucket for every request
// that ends in codes.Unauthenticated and refuses hosts whose bucket is empty.
// It must run before AuthInterceptor so rejected tokens are counted.
func (rl *RateLimiter) FailedAuthInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if rl.limit <= 0 {
			return handler(ctx, req)
		}
		key := "authfail:" + peerKey(ctx)
		if rl.exhausted(key) {
			return nil, status.Error(codes.ResourceExhausted, msgTooManyRequests)
		}
		resp, err := handler(ctx, req)
		if status.Code(err) == codes.Unauthenticated {
			rl.Allow(key)
		}
		return resp, err
	}
}

// exhausted reports whether key has no token left without spending one.
func (rl *RateLimiter) exhausted(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[key]
	if !ok {
		return false
	}
	return v.limiter.TokensAt(rl.now()) < 1
}

func callerKey(ctx context.Context) string {
	if p := auth.FromContext(ctx); p.Authenticated() {
		return "user:" + p.UserID
	}
	return peerKey(ctx)
}

func peerKey(ctx context.Context) string {
	if pr, ok := peer.FromContext(ctx); ok && pr.Addr != nil {
		addr := pr.Addr.String()
		if host, _, err := net.SplitHostPort(addr); err == nil {
			addr = host
		}
		return "addr:" + addr
	}
	return "anonymous"
}

// RecoveryInterceptor converts handler panics into codes.Internal.
func RecoveryInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("handler panic", slog.String("method", info.FullMethod), slog.Any("panic", r))
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
