package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiterIdleTTL: за это время бездействия лимит пользователя гарантированно восстановлен,
// поэтому запись можно удалить без изменения поведения.
const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// UploadLimiter ограничивает число загрузок на пользователя в минуту.
type UploadLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

// NewUploadLimiter: perMinute <= 0 отключает ограничение.
func NewUploadLimiter(perMinute int) *UploadLimiter {
	l := &UploadLimiter{
		limiters: make(map[string]*limiterEntry),
		now:      time.Now,
	}
	if perMinute > 0 {
		l.limit = rate.Every(time.Minute / time.Duration(perMinute))
		l.burst = perMinute
	}
	l.lastSweep = l.now()
	return l
}

func (l *UploadLimiter) Allow(key string) bool {
	if l.burst == 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= limiterIdleTTL {
		l.sweep(now)
	}

	entry, ok := l.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}

// sweep вызывается под мьютексом.
func (l *UploadLimiter) sweep(now time.Time) {
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= limiterIdleTTL {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

// Middleware ставится после Auth: ключ - пользователь, без него - адрес клиента.
func (l *UploadLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if principal, ok := MustPrincipal(c); ok {
			key = principal.UserID.String()
		}

		if !l.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many uploads, try again later"})
			return
		}
		c.Next()
	}
}
