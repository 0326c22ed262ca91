package main

import "github.com/mcoot/levelgrid/internal/cli"

func main() {
	cli.Execute()
}
