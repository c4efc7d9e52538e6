package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Ограничения текстовых полей заказа.
const (
	MinJobTitleLength    = 3
	MaxJobTitleLength    = 200
	MaxCoverLetterLength = 2000
	MinMessageLength     = 1
	MaxMessageLength     = 5000
	MinReasonLength      = 3
	MaxReasonLength      = 1000
	MaxBidAmount         = 100_000_000
)

// ValidateLength проверяет длину строки в символах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// JobTitle проверяет название заказа и возвращает его без пробелов по краям.
func JobTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("название заказа обязательно")
	}
	if err := ValidateLength("заголовок заказа", title, MinJobTitleLength, MaxJobTitleLength); err != nil {
		return "", err
	}
	return title, nil
}

// CoverLetter проверяет сопроводительное письмо к ставке. Письмо необязательно.
func CoverLetter(coverLetter string) (string, error) {
	coverLetter = strings.TrimSpace(coverLetter)
	if err := ValidateLength("сопроводительное письмо", coverLetter, 0, MaxCoverLetterLength); err != nil {
		return "", err
	}
	return coverLetter, nil
}

// BidAmount проверяет сумму ставки в минимальных единицах валюты.
func BidAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("сумма ставки должна быть положительной")
	}
	if amount > MaxBidAmount {
		return fmt.Errorf("сумма ставки не может превышать %d", MaxBidAmount)
	}
	return nil
}

// MessageContent проверяет текст сообщения в переписке.
func MessageContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("сообщение не может быть пустым")
	}
	if err := ValidateLength("сообщение", content, MinMessageLength, MaxMessageLength); err != nil {
		return "", err
	}
	return content, nil
}

// Reason проверяет причину спора или отмены. what подставляется в текст ошибки.
func Reason(what, reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", fmt.Errorf("опишите причину: %s", what)
	}
	if err := ValidateLength("причина", reason, MinReasonLength, MaxReasonLength); err != nil {
		return "", err
	}
	return reason, nil
}
