package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/homequote-backend/api/responses"
	pkgerrors "github.com/angelmondragon/homequote-backend/pkg/errors"
	"github.com/angelmondragon/homequote-backend/pkg/logger"
)

type counterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(parts ...string) string
}

// keyFunc extracts the subject a rule counts against. An empty subject skips the rule.
type keyFunc func(r *http.Request) (string, error)

// RateRule caps requests per subject inside the policy window.
type RateRule struct {
	scope string
	limit int64
	key   keyFunc
}

// PerIP counts requests by client address.
func PerIP(limit int) RateRule {
	return RateRule{scope: "ip", limit: int64(limit), key: func(r *http.Request) (string, error) {
		return clientIP(r), nil
	}}
}

// PerEmail counts requests by the hashed "email" field of a JSON body.
// The body is restored for the next handler.
func PerEmail(limit int) RateRule {
	return RateRule{scope: "email", limit: int64(limit), key: func(r *http.Request) (string, error) {
		if r.Body == nil {
			return "", nil
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return "", err
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		email := strings.ToLower(strings.TrimSpace(emailField(body)))
		if email == "" {
			return "", nil
		}
		return hashValue(email), nil
	}}
}

// PerUser counts requests by the authenticated caller. Requires Auth upstream.
func PerUser(limit int) RateRule {
	return RateRule{scope: "user", limit: int64(limit), key: func(r *http.Request) (string, error) {
		return UserIDFromContext(r.Context()), nil
	}}
}

// RateLimitPolicy groups rules sharing one fixed window.
type RateLimitPolicy struct {
	name   string
	window time.Duration
	rules  []RateRule
}

// NewRateLimitPolicy builds a named policy. Rules with a non-positive limit are dropped.
func NewRateLimitPolicy(name string, window time.Duration, rules ...RateRule) RateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "default"
	}
	active := make([]RateRule, 0, len(rules))
	for _, rule := range rules {
		if rule.limit > 0 {
			active = append(active, rule)
		}
	}
	return RateLimitPolicy{name: name, window: window, rules: active}
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && len(p.rules) > 0
}

func (p RateLimitPolicy) counterKey(store counterStore, scope, subject string) string {
	return store.RateLimitKey(p.name, scope, subject)
}

// RateLimit rejects requests with 429 once any rule of the policy is exhausted.
func RateLimit(policy RateLimitPolicy, store counterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			for _, rule := range policy.rules {
				subject, err := rule.key(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				if subject == "" {
					continue
				}
				count, err := store.IncrWithTTL(ctx, policy.counterKey(store, rule.scope, subject), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > rule.limit {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"policy":         policy.name,
							"scope":          rule.scope,
							"attempts":       count,
							"limit":          rule.limit,
							"window_seconds": int(policy.window.Seconds()),
						}), "rate_limit.blocked")
					}
					w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Seconds())))
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func emailField(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	return body.Email
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
