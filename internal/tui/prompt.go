package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
)

var ErrNoChoices = errors.New("nothing to choose from")

// SelectKey asks the user to pick one of keys.
func SelectKey(title string, keys []string) (string, error) {
	if len(keys) == 0 {
		return "", ErrNoChoices
	}
	var result string
	err := huh.NewSelect[string]().
		Title(title).
		Options(huh.NewOptions(keys...)...).
		Filtering(true).
		Value(&result).
		Run()
	if err != nil {
		return "", fmt.Errorf("prompt: %w", err)
	}
	return result, nil
}

func Confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if err != nil {
		return false, fmt.Errorf("prompt: %w", err)
	}
	return ok, nil
}

// SecretInput reads a value without echoing it.
func SecretInput(title string) (string, error) {
	var result string
	err := huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(&result).
		Run()
	if err != nil {
		return "", fmt.Errorf("prompt: %w", err)
	}
	return result, nil
}
