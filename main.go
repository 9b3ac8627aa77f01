package main

import "github.com/example/overseer/internal/cli"

func main() {
	cli.Execute()
}
