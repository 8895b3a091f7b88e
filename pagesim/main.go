// Package main is the entry of the pagesim command-line tool.
package main

import "github.com/sarchlab/pagesim/pagesim/cmd"

func main() {
	cmd.Execute()
}
