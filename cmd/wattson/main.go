package main

import "github.com/wattsonlabs/wattson/internal/cli"

func main() {
	cli.Execute()
}
