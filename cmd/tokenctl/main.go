package main

import "token-oracle-kit/internal/cli"

func main() {
	cli.Execute()
}
