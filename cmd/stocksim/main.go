package main

import (
	"stocksim/internal/cli"
)

func main() {
	cli.Execute()
}
