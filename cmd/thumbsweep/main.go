package main

import "thumbsweep/internal/cli"

func main() {
	cli.Execute()
}
