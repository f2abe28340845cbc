package services

import (
	"regexp"
)

var bannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "shitty", "bullshit",
	"asshole", "bastard", "bitch", "cunt",
	"nigger", "nigga", "chink", "spic", "kike", "faggot", "fag",
	"retard", "retarded", "tranny",
	"porn", "porno", "nude", "nudes",
	"scammer", "phishing", "malware",
}

// Rejection reasons returned by ContentFilter.Check.
const (
	ReasonLanguage     = "inappropriate_language"
	ReasonURL          = "url_not_allowed"
	ReasonContactInfo  = "contact_info_not_allowed"
	ReasonSpam         = "spam_detected"
	ReasonExcessiveCap = "excessive_caps"
)

var rejectionMessages = map[string]string{
	ReasonLanguage:     "Your comment contains inappropriate language.",
	ReasonURL:          "Links are not allowed in comments.",
	ReasonContactInfo:  "Please do not share contact information in comments.",
	ReasonSpam:         "Your comment appears to be spam.",
	ReasonExcessiveCap: "Please avoid using excessive capital letters.",
}

type contentRule struct {
	reason string
	re     *regexp.Regexp
}

// ContentFilter screens user comments. The compiled rules are read-only after construction.
type ContentFilter struct {
	rules   []contentRule
	allCaps *regexp.Regexp
}

func NewContentFilter() *ContentFilter {
	f := &ContentFilter{allCaps: regexp.MustCompile(`[A-Z]{5,}`)}

	for _, word := range bannedWords {
		f.rules = append(f.rules, contentRule{
			reason: ReasonLanguage,
			re:     regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`),
		})
	}
	f.rules = append(f.rules,
		contentRule{ReasonURL, regexp.MustCompile(`(?i)(https?://\S+|www\.\S+\.\S+)`)},
		contentRule{ReasonContactInfo, regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)},
		contentRule{ReasonContactInfo, regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}|\(\d{3}\)\s*\d{3}[-.\s]?\d{4}`)},
		// Go regexp has no backreferences, so each repeated rune is spelled out.
		contentRule{ReasonSpam, regexp.MustCompile(`(?i)(a{5,}|b{5,}|c{5,}|d{5,}|e{5,}|f{5,}|g{5,}|h{5,}|i{5,}|j{5,}|k{5,}|l{5,}|m{5,}|n{5,}|o{5,}|p{5,}|q{5,}|r{5,}|s{5,}|t{5,}|u{5,}|v{5,}|w{5,}|x{5,}|y{5,}|z{5,}|!{5,}|\?{5,}|\.{5,})`)},
	)
	return f
}

// Check returns ok=false and a reason code when text breaks a rule.
func (f *ContentFilter) Check(text string) (bool, string) {
	if text == "" {
		return true, ""
	}
	for _, rule := range f.rules {
		if rule.re.MatchString(text) {
			return false, rule.reason
		}
	}
	if len(f.allCaps.FindAllString(text, -1)) > 2 {
		return false, ReasonExcessiveCap
	}
	return true, ""
}

func RejectionMessage(reason string) string {
	if msg, ok := rejectionMessages[reason]; ok {
		return msg
	}
	return "Your comment does not meet our content guidelines."
}
