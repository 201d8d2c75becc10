package server

import (
	"net/http"
	"strings"
)

// SecurityConfig controls the HTTP response headers that harden the API
// against clickjacking, MIME sniffing, referrer leakage, and unintended
// resource loading. Zero-valued fields fall back to safe defaults.
type SecurityConfig struct {
	ContentSecurityPolicy string
	FrameAncestors        string
	FrameOptions          string
	ReferrerPolicy        string
	PermissionsPolicy     string
	ContentTypeOptions    string
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func (cfg SecurityConfig) withDefaults() SecurityConfig {
	cfg.FrameAncestors = fallback(cfg.FrameAncestors, "'none'")
	cfg.FrameOptions = fallback(cfg.FrameOptions, "DENY")
	cfg.ReferrerPolicy = fallback(cfg.ReferrerPolicy, "no-referrer")
	cfg.PermissionsPolicy = fallback(cfg.PermissionsPolicy, "camera=(), microphone=(), geolocation=()")
	cfg.ContentTypeOptions = fallback(cfg.ContentTypeOptions, "nosniff")
	cfg.ContentSecurityPolicy = fallback(cfg.ContentSecurityPolicy, defaultContentSecurityPolicy(cfg.FrameAncestors))
	return cfg
}

// defaultContentSecurityPolicy locks every source to the API origin except
// artwork and audio, which also load from the media CDN.
func defaultContentSecurityPolicy(frameAncestors string) string {
	directives := []string{
		"default-src 'self'",
		"connect-src 'self'",
		"img-src 'self' data: https://cdn.harmonia.dev",
		"media-src 'self' https://cdn.harmonia.dev",
		"script-src 'self'",
		"style-src 'self'",
		"font-src 'self'",
		"object-src 'none'",
		"base-uri 'self'",
		"frame-ancestors " + fallback(frameAncestors, "'none'"),
		"form-action 'self'",
	}
	return strings.Join(directives, "; ")
}

func securityHeadersMiddleware(cfg SecurityConfig, next http.Handler) http.Handler {
	effective := cfg.withDefaults()
	fixed := map[string]string{
		"Content-Security-Policy": effective.ContentSecurityPolicy,
		"X-Frame-Options":         effective.FrameOptions,
		"X-Content-Type-Options":  effective.ContentTypeOptions,
		"Referrer-Policy":         effective.ReferrerPolicy,
		"Permissions-Policy":      effective.PermissionsPolicy,
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for name, value := range fixed {
			if value != "" {
				w.Header().Set(name, value)
			}
		}
		next.ServeHTTP(w, r)
	})
}
