package main

import "github.com/PixPMusic/gopher-footswitch/internal/cli"

func main() {
	cli.Execute()
}
