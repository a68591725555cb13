package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Prompter wraps an input scanner and output writer for interactive prompts.
// Inject a custom reader/writer for tests.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewPrompter creates a Prompter using stdin/stdout.
func NewPrompter() *Prompter {
	return &Prompter{
		scanner: bufio.NewScanner(os.Stdin),
		out:     os.Stdout,
	}
}

// NewPrompterFromReader creates a Prompter with custom reader/writer (for tests).
func NewPrompterFromReader(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{
		scanner: bufio.NewScanner(r),
		out:     w,
	}
}

// String prompts for a string value. Returns defaultVal on empty input.
func (p *Prompter) String(prompt, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", prompt, defaultVal)
	} else {
		fmt.Fprintf(p.out, "%s: ", prompt)
	}
	if !p.scanner.Scan() {
		return defaultVal
	}
	input := strings.TrimSpace(p.scanner.Text())
	if input == "" {
		return defaultVal
	}
	return input
}

// Amount prompts for a positive dollar amount, re-prompting until one parses.
// Returns false when input is exhausted.
func (p *Prompter) Amount(prompt string) (float64, bool) {
	for {
		fmt.Fprintf(p.out, "%s: ", prompt)
		if !p.scanner.Scan() {
			return 0, false
		}
		value, err := parseAmount(p.scanner.Text())
		if err != nil {
			fmt.Fprintf(p.out, "Error: %v\n", err)
			continue
		}
		if value <= 0 {
			fmt.Fprintln(p.out, "Amount must be greater than zero.")
			continue
		}
		return value, true
	}
}

// YesNo prompts for a yes/no answer. Returns defaultYes on empty input.
func (p *Prompter) YesNo(prompt string, defaultYes bool) bool {
	def := "y/N"
	if defaultYes {
		def = "Y/n"
	}
	fmt.Fprintf(p.out, "%s [%s]: ", prompt, def)
	if !p.scanner.Scan() {
		return defaultYes
	}
	input := strings.TrimSpace(strings.ToLower(p.scanner.Text()))
	if input == "" {
		return defaultYes
	}
	return input == "y" || input == "yes"
}

// Choice prompts the user to pick one option from a numbered list.
// Returns the 0-based index of the selection.
func (p *Prompter) Choice(prompt string, options []string, defaultIdx int) int {
	fmt.Fprintln(p.out, prompt)
	for i, opt := range options {
		marker := " "
		if i == defaultIdx {
			marker = "*"
		}
		fmt.Fprintf(p.out, "  %s%d) %s\n", marker, i+1, opt)
	}
	for {
		fmt.Fprintf(p.out, "Select [1-%d]: ", len(options))
		if !p.scanner.Scan() {
			return defaultIdx
		}
		input := strings.TrimSpace(p.scanner.Text())
		if input == "" {
			return defaultIdx
		}
		idx, err := strconv.Atoi(input)
		if err == nil && idx >= 1 && idx <= len(options) {
			return idx - 1
		}
		fmt.Fprintf(p.out, "Please enter a number between 1 and %d.\n", len(options))
	}
}

// parseAmount parses a dollar amount leniently, tolerating "$" signs and
// thousands separators.
func parseAmount(input string) (float64, error) {
	cleaned := strings.TrimSpace(input)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %q to a number", input)
	}
	return value, nil
}
