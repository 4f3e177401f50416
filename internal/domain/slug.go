package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugStrip    = runes.Remove(runes.In(unicode.Mn))
	slugInvalid  = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces   = regexp.MustCompile(`\s+`)
	slugRepeated = regexp.MustCompile(`-+`)
)

// Slugify derives a URL-safe slug from a name: lowercase, accents
// stripped via NFD decomposition, special characters removed, whitespace
// collapsed to single hyphens. The same function runs at create and
// update time so a product's slug is always derivable from its name.
func Slugify(name string) string {
	s := strings.ToLower(name)
	s, _, _ = transform.String(transform.Chain(norm.NFD, slugStrip, norm.NFC), s)
	s = slugInvalid.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = slugSpaces.ReplaceAllString(s, "-")
	return slugRepeated.ReplaceAllString(s, "-")
}

// FormatPrice renders an integer peso amount with dot thousands
// separators and no decimals, e.g. 1234567 -> "$ 1.234.567".
func FormatPrice(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%d", v)
	n := len(s)
	if n > 3 {
		rem := n % 3
		if rem == 0 {
			rem = 3
		}
		out := s[:rem]
		for i := rem; i < n; i += 3 {
			out += "." + s[i:i+3]
		}
		s = out
	}
	if neg {
		return "$ -" + s
	}
	return "$ " + s
}

// WhatsAppURL builds the wa.me checkout handoff link for a product. An
// empty message gets the default interest text.
func WhatsAppURL(cfg SiteConfig, p *Product, message string) string {
	if message == "" {
		message = fmt.Sprintf("¡Hola! Me interesa este producto: %s - %s", p.Name, FormatPrice(p.Price))
	}
	return "https://wa.me/" + cfg.Contact.WhatsApp + "?text=" + url.QueryEscape(message)
}
