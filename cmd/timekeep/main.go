package main

import "github.com/ganot/timekeep/internal/cli"

func main() {
	cli.Execute()
}
