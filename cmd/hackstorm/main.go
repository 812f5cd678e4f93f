package main

import "github.com/mcoot/hackstorm/internal/cli"

func main() {
	cli.Execute()
}
