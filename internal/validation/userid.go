// Package validation содержит функции валидации входных данных.
package validation

import "unicode"

const maxUserIDLength = 20

// IsValidUserID проверяет идентификатор пользователя платформы:
// непустая строка из цифр не длиннее двадцати знаков.
func IsValidUserID(id string) bool {
	if id == "" || len(id) > maxUserIDLength {
		return false
	}

	for _, ch := range id {
		if !unicode.IsDigit(ch) {
			return false
		}
	}

	return true
}
