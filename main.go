package main

import "github.com/tresinky/gallery/cmd"

func main() {
	cmd.Execute()
}
