package utils

// MaskSecret keeps a short prefix of a credential for log lines
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "*****"
	}
	return s[:4] + "*****"
}
