package main

import "github.com/vigil-project/vigil/internal/cli"

func main() {
	cli.Execute()
}
