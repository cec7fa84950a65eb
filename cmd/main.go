package main

import "lecto-bridge/internal/cli"

func main() {
	cli.Execute()
}
