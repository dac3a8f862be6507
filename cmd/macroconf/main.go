package main

import "github.com/turtacn/macroconf/internal/interfaces/cli"

func main() {
	cli.Execute()
}
