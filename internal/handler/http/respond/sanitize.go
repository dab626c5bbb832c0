package respond

import (
	"regexp"
)

// Order matters: the Anthropic pattern must run before the generic sk- one.
var (
	anthropicKeyPattern = regexp.MustCompile(`sk-ant-[a-zA-Z0-9-_]+`)
	openaiKeyPattern    = regexp.MustCompile(`sk-[a-zA-Z0-9]{10,}`)
	googleKeyPattern    = regexp.MustCompile(`AIza[0-9A-Za-z\-_]{20,}`)
	hfTokenPattern      = regexp.MustCompile(`hf_[a-zA-Z0-9]{10,}`)
	queryKeyPattern     = regexp.MustCompile(`(?i)([?&](?:api_?key|key|token)=)[^&\s"]+`)
	bearerPattern       = regexp.MustCompile(`(?i)(bearer\s+)[a-zA-Z0-9\-_.=]+`)
	userinfoPattern     = regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`)
)

// SanitizeError returns err's message with credentials masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error())
}

// SanitizeString masks credentials in s.
func SanitizeString(s string) string {
	s = anthropicKeyPattern.ReplaceAllString(s, "sk-ant-****")
	s = openaiKeyPattern.ReplaceAllString(s, "sk-****")
	s = googleKeyPattern.ReplaceAllString(s, "AIza****")
	s = hfTokenPattern.ReplaceAllString(s, "hf_****")
	s = queryKeyPattern.ReplaceAllString(s, "${1}****")
	s = bearerPattern.ReplaceAllString(s, "${1}****")
	s = userinfoPattern.ReplaceAllString(s, "://$1:****@")
	return s
}
