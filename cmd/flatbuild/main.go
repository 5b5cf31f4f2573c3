package main

import "flatbuild/internal/cli"

func main() {
	cli.Execute()
}
