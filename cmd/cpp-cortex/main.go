package main

import "github.com/mvp-joe/cpp-cortex/internal/cli"

func main() {
	cli.Execute()
}
