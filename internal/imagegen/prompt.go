package imagegen

import (
	"fmt"
	"strings"
)

const educationalStyle = "Style: simple, friendly flat illustration with bright colours and an " +
	"uncluttered background, suitable for school students. " +
	"Do not include any text, letters, numbers or labels in the image."

// EnhancePrompt wraps a caller prompt in the fixed educational template
// for its kind.
func EnhancePrompt(prompt string, kind ImageKind) string {
	subject := strings.TrimSpace(prompt)
	switch kind {
	case KindAnswer:
		return fmt.Sprintf("Create an educational illustration that shows the correct answer to a quiz question. Subject: %s. %s",
			subject, educationalStyle)
	default:
		return fmt.Sprintf("Create an educational illustration to accompany a quiz question. Subject: %s. %s",
			subject, educationalStyle)
	}
}

// kindPrompt prefixes a prompt with a short phrase for its kind.
func kindPrompt(prompt string, kind ImageKind) string {
	subject := strings.TrimSpace(prompt)
	if kind == KindAnswer {
		return "Illustration of the answer to a quiz question: " + subject
	}
	return "Illustration for a quiz question: " + subject
}
