// Package middleware holds the request-path filters that run before the
// handlers.
package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/healthcoresys/core/internal/application/dto"
	"github.com/healthcoresys/core/internal/infrastructure/idp"
	"github.com/healthcoresys/core/internal/infrastructure/monitoring"
	"github.com/healthcoresys/core/internal/infrastructure/ratelimit"
	"github.com/healthcoresys/core/internal/interfaces/http/handlers"
	"github.com/healthcoresys/core/pkg/errors"
	"github.com/healthcoresys/core/pkg/logger"
)

// RateLimit gates requests on two independent budgets: one per caller
// identity, one per client address. Both must admit the request. The
// identity key comes from an unverified subject hint so admission always
// completes before any signature check; a forged subject only burns the
// forger's own budget. When the counter store errors, the request is
// admitted and the outage is made visible in logs and metrics instead of
// turning a store outage into a minting outage.
func RateLimit(admitter ratelimit.Admitter, metrics *monitoring.Metrics, log logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("rate_limit")

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ip := handlers.ClientIP(c)

		ipDecision, err := admitter.Admit(ctx, ratelimit.IPKey(ip))
		if err != nil {
			failOpen(c, metrics, log, err)
			return
		}

		decision := ipDecision
		if subject, ok := idp.SubjectHint(c.GetHeader("Authorization")); ok {
			userDecision, err := admitter.Admit(ctx, ratelimit.UserKey(subject))
			if err != nil {
				failOpen(c, metrics, log, err)
				return
			}
			decision = ratelimit.Combine(ipDecision, userDecision)
		}

		setRateHeaders(c, decision)

		if !decision.Allowed {
			dimension := "ip"
			if !ipDecision.Allowed {
				metrics.AdmissionRejections.WithLabelValues("ip").Inc()
			} else {
				dimension = "user"
				metrics.AdmissionRejections.WithLabelValues("user").Inc()
			}
			log.Warn("request rejected by rate limiter",
				logger.String("dimension", dimension),
				logger.String("ip", ip))

			appErr := errors.ErrRateLimited(decision.ResetAt)
			c.Header("Retry-After", strconv.Itoa(int(appErr.RetryAfter().Seconds())))
			c.AbortWithStatusJSON(appErr.HTTPStatus(), dto.Fail(errors.ToErrorResponse(appErr)))
			return
		}

		c.Next()
	}
}

func failOpen(c *gin.Context, metrics *monitoring.Metrics, log logger.Logger, err error) {
	metrics.AdmissionFailOpens.Inc()
	log.Warn("admission store unavailable, admitting without a decision", logger.Err(err))
	c.Next()
}

func setRateHeaders(c *gin.Context, d ratelimit.Decision) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}
