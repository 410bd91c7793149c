package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"talehub/internal/apperr"
	"talehub/internal/auth"
	"talehub/internal/domain"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const accountKey = "account"

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(header string) (string, bool) {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:]), true
	}
	return "", false
}

// requireAuth accepts the access token from the Authorization header or the
// accessToken cookie and loads the account into the context.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			var err error
			if token, err = s.cookies.Read(c.Request, auth.AccessCookie); err != nil {
				fail(c, apperr.New(apperr.KindAuthInvalid, "access token is required"))
				return
			}
		}

		claims, err := s.tokens.VerifyAccess(token)
		if err != nil {
			fail(c, err)
			return
		}
		acc, err := s.directory.FindAccountByID(c.Request.Context(), claims.AccountID)
		if errors.Is(err, apperr.ErrNotFound) {
			fail(c, apperr.New(apperr.KindAuthInvalid, "account no longer exists"))
			return
		}
		if err != nil {
			fail(c, err)
			return
		}
		c.Set(accountKey, acc)
		c.Next()
	}
}

// currentAccount returns the account set by requireAuth.
func currentAccount(c *gin.Context) domain.Account {
	acc, _ := c.MustGet(accountKey).(domain.Account)
	return acc
}

// ipLimiter keeps one token bucket per client IP.
type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rps      rate.Limit
	burst    int
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(rps float64, burst int) *ipLimiter {
	return &ipLimiter{
		limiters: make(map[string]*limiterEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	e, ok := l.limiters[ip]
	if !ok {
		// drop buckets idle for more than ten minutes
		if len(l.limiters) > 10000 {
			for k, v := range l.limiters {
				if now.Sub(v.lastSeen) > 10*time.Minute {
					delete(l.limiters, k)
				}
			}
		}
		e = &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[ip] = e
	}
	e.lastSeen = now
	return e.limiter.Allow()
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			fail(c, apperr.New(apperr.KindRateLimited, "too many requests, slow down"))
			return
		}
		c.Next()
	}
}

// recordStats feeds the counters served by /healthz.
func (s *Server) recordStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		s.stats.Begin()
		c.Next()
		s.stats.End(c.Writer.Status(), time.Since(start), int64(c.Writer.Size()))
	}
}

func (s *Server) healthz(c *gin.Context) {
	respond(c, http.StatusOK, s.stats.Snapshot(), "ok")
}
