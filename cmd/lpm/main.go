package main

import "lpm/internal/cli"

func main() {
	cli.Execute()
}
