// Package banner prints the startup banner.
package banner

import (
	"fmt"
	"strings"
)

const logo = `
======================================================================
 _____ _ _      ____           _
|_   _(_) | ___|  _ \ __ _  __| |
  | | | | |/ _ \ |_) / _` + "`" + ` |/ _` + "`" + ` |
  | | | | |  __/  __/ (_| | (_| |
  |_| |_|_|\___|_|   \__,_|\__,_|
----------------------------------------------------------------------`

const footer = `======================================================================`

// ConfigLine is one aligned "label : value" row printed under the logo.
type ConfigLine struct {
	Label string
	Value string
}

// Print writes the logo, service name, and aligned config lines to stdout.
func Print(serviceName string, lines []ConfigLine) {
	fmt.Println(logo)
	fmt.Printf("%s\n", serviceName)

	maxLen := 0
	for _, l := range lines {
		if len(l.Label) > maxLen {
			maxLen = len(l.Label)
		}
	}
	for _, l := range lines {
		padding := strings.Repeat(" ", maxLen-len(l.Label))
		fmt.Printf("  %s%s : %s\n", l.Label, padding, l.Value)
	}

	fmt.Println()
	fmt.Println("Ready.")
	fmt.Println(footer)
	fmt.Println()
}
