package main

import "github.com/fundra-network/fundra/internal/cli"

func main() {
	cli.Execute()
}
