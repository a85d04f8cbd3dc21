package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// PromptYesNo asks a yes/no question on the terminal. Non-interactive runs
// (CI, pipes) take the default without blocking.
func PromptYesNo(question string, defaultYes bool) bool {
	prompt := question + " [y/N] "
	if defaultYes {
		prompt = question + " [Y/n] "
	}
	if !IsTerminal() {
		fmt.Printf("%s(non-interactive, defaulting to %t)\n", prompt, defaultYes)
		return defaultYes
	}

	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return defaultYes
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	}
	return defaultYes
}
