package util

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Lowercase alphanumerics keep generated ids safe inside object keys and file names.
const nanoidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func GenerateNChar(n int) (string, error) {
	id, err := gonanoid.Generate(nanoidAlphabet, n)
	if err != nil {
		return "", err
	}
	return id, nil
}
