package domain

import "regexp"

// PhonePattern matches a 10 digit local phone number starting with 0
const PhonePattern = `^0[0-9]{9}$`

var phoneRegexp = regexp.MustCompile(PhonePattern)

// IsValidPhone reports whether s is a valid contact phone number
func IsValidPhone(s string) bool {
	return phoneRegexp.MatchString(s)
}
