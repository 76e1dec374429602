package main

import "pysel/internal/cli"

func main() {
	cli.Execute()
}
