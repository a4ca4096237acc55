package main

import "github.com/vietddude/staleguard/internal/cli"

func main() {
	cli.Execute()
}
