package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type ctxKey int

const (
	localeCtxKey ctxKey = iota
	countryCtxKey
	requestIDCtxKey
	ownerCtxKey
	roleCtxKey
)

const fallbackLanguage = "en"

// countryHeaders are set by CDNs and load balancers in front of the API.
var countryHeaders = []string{"CF-IPCountry", "X-Country-Code", "X-Appengine-Country"}

// CountryLookup resolves ISO country codes for an IP address.
type CountryLookup func(ip string) (string, error)

// I18N negotiates the request locale, a base language such as "en", and a
// best-effort country. Order: X-Locale, Accept-Language, the country's main
// language, defaultLocale.
func I18N(defaultLocale string, lookup CountryLookup) func(http.Handler) http.Handler {
	fallback := fallbackLanguage
	if tag, err := language.Parse(strings.TrimSpace(defaultLocale)); err == nil {
		if base := baseLanguage(tag); base != "" {
			fallback = base
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			prefs := preferredTags(r)
			country := requestCountry(r, prefs, lookup)

			locale := fallback
			if len(prefs) > 0 {
				locale = baseLanguage(prefs[0])
			} else if country != "" {
				locale = languageForCountry(country)
			}

			ctx := context.WithValue(r.Context(), localeCtxKey, locale)
			if country != "" {
				ctx = context.WithValue(ctx, countryCtxKey, country)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LocaleFromContext returns the negotiated locale, "en" outside I18N.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(localeCtxKey).(string); ok && v != "" {
		return v
	}
	return fallbackLanguage
}

func CountryFromContext(ctx context.Context) string {
	v, _ := ctx.Value(countryCtxKey).(string)
	return v
}

// preferredTags lists the caller's languages, X-Locale first, then
// Accept-Language by descending weight. Unknown tags are dropped.
func preferredTags(r *http.Request) []language.Tag {
	var tags []language.Tag
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		if tag, err := language.Parse(v); err == nil && baseLanguage(tag) != "" {
			tags = append(tags, tag)
		}
	}
	if v := r.Header.Get("Accept-Language"); v != "" {
		accepted, _, err := language.ParseAcceptLanguage(v)
		if err == nil {
			for _, tag := range accepted {
				if baseLanguage(tag) != "" {
					tags = append(tags, tag)
				}
			}
		}
	}
	return tags
}

// requestCountry prefers proxy headers, then an explicit region in the
// caller's language tags, then the GeoIP lookup.
func requestCountry(r *http.Request, prefs []language.Tag, lookup CountryLookup) string {
	for _, h := range countryHeaders {
		if v := strings.ToUpper(strings.TrimSpace(r.Header.Get(h))); len(v) == 2 && v != "XX" {
			return v
		}
	}
	for _, tag := range prefs {
		if region, conf := tag.Region(); conf == language.Exact {
			return region.String()
		}
	}
	if lookup == nil {
		return ""
	}
	country, err := lookup(clientIP(r))
	if err != nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(country))
}

// baseLanguage reduces tag to its language subtag, "" when undetermined.
func baseLanguage(tag language.Tag) string {
	base, conf := tag.Base()
	if conf == language.No || base.String() == "und" {
		return ""
	}
	return base.String()
}

// languageForCountry returns the most likely language spoken in the region.
func languageForCountry(country string) string {
	region, err := language.ParseRegion(strings.TrimSpace(country))
	if err != nil {
		return fallbackLanguage
	}
	tag, err := language.Compose(language.Und, region)
	if err != nil {
		return fallbackLanguage
	}
	if base := baseLanguage(tag); base != "" {
		return base
	}
	return fallbackLanguage
}

// clientIP is the host part of RemoteAddr. The router runs chi's RealIP
// first, so forwarded headers are already applied.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
