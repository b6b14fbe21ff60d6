// Package prompt asks the operator to confirm mutating commands.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirm writes question to out and reads one answer line from in. Only
// "y" and "yes" confirm; anything else, including EOF, declines. With
// autoApprove set nothing is read and the answer is yes.
func Confirm(in io.Reader, out io.Writer, question string, autoApprove bool) bool {
	if autoApprove {
		return true
	}

	fmt.Fprintf(out, "%s (y/N): ", question)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && response == "" {
		response = "n"
	}
	response = strings.ToLower(strings.TrimSpace(response))

	if response != "y" && response != "yes" {
		fmt.Fprintln(out, "Cancelled")
		return false
	}
	return true
}
